package search

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"

	ourbinary "github.com/ga4gh/htsget-ticket-server/internal/binary"
)

const (
	bamMagic = "BAM\x01"

	// maximumReferenceNameLength guards against unbounded allocation from a
	// malformed header; no real reference name approaches this.
	maximumReferenceNameLength = 1024
)

// BAMResolver reads reference names directly out of a BAM file's own
// header, the way BAI's binary index carries no name table of its own.
type BAMResolver struct {
	// Open returns a fresh reader positioned at the start of the BAM file
	// each time it is called; header parsing consumes the stream.
	Open func() (io.ReadCloser, error)
}

// ResolveReference implements search.ReferenceResolver.
func (b BAMResolver) ResolveReference(name string) (int, error) {
	rc, err := b.Open()
	if err != nil {
		return 0, fmt.Errorf("opening BAM: %v", err)
	}
	defer rc.Close()

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return 0, fmt.Errorf("opening BGZF stream: %v", err)
	}
	if err := ourbinary.ExpectBytes(gz, []byte(bamMagic)); err != nil {
		return 0, fmt.Errorf("reading magic: %v", err)
	}
	var length int32
	if err := ourbinary.Read(gz, &length); err != nil {
		return 0, fmt.Errorf("reading SAM header length: %v", err)
	}
	if _, err := io.CopyN(ioutil.Discard, gz, int64(length)); err != nil {
		return 0, fmt.Errorf("skipping SAM header: %v", err)
	}
	var count int32
	if err := ourbinary.Read(gz, &count); err != nil {
		return 0, fmt.Errorf("reading reference count: %v", err)
	}
	for i := int32(0); i < count; i++ {
		if err := ourbinary.Read(gz, &length); err != nil {
			return 0, fmt.Errorf("reading name length: %v", err)
		}
		if length < 1 || length > maximumReferenceNameLength {
			return 0, fmt.Errorf("invalid reference name length (%d bytes)", length)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(gz, buf); err != nil {
			return 0, fmt.Errorf("reading name: %v", err)
		}
		if string(buf[:length-1]) == name {
			return int(i), nil
		}
		// Skip the reference's sequence length (int32).
		if err := ourbinary.Read(gz, &length); err != nil {
			return 0, fmt.Errorf("reading reference length: %v", err)
		}
	}
	return 0, fmt.Errorf("no reference named %q found", name)
}
