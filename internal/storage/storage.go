// Package storage implements component E: a uniform interface over the
// File, S3, URL and GCS storage backends. Every backend speaks three
// operations — Head, GetRange, MakeTicket — so component C and component F
// never need to know which backend resolved a given id.
package storage

import (
	"context"
	"io"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
)

// Storage is the uniform backend interface. Implementations are shared
// and internally synchronized; a single Storage instance serves many
// concurrent resolutions (spec.md §5).
type Storage interface {
	// Head returns the total size, in bytes, of the object named by key.
	Head(ctx context.Context, key string) (size uint64, err error)

	// GetRange returns a reader over the inclusive byte range r of the
	// object named by key, used when the resolver itself must read index
	// or header bytes rather than hand a URL to the client.
	GetRange(ctx context.Context, key string, r ourbgzf.ByteRange) (io.ReadCloser, error)

	// MakeTicket returns the URL and headers a client should use to fetch
	// byte range r of the object named by key, without performing any
	// I/O itself.
	MakeTicket(key string, r ourbgzf.ByteRange) (url string, headers map[string]string, err error)
}
