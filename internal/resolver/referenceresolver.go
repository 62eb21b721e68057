package resolver

import (
	"context"
	"errors"
	"io"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
	"github.com/ga4gh/htsget-ticket-server/internal/index"
	"github.com/ga4gh/htsget-ticket-server/internal/search"
	"github.com/ga4gh/htsget-ticket-server/internal/storage"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

// referenceResolverFor builds the format-specific fallback used when an
// index carries no reference-name table of its own (BAI, CSI): it reads
// the data object's own header, bounded by headerEnd, the same range
// component C already computed for the header ticket entry.
func referenceResolverFor(format genomics.Format, ctx context.Context, backend storage.Storage, key string, headerEnd ourbgzf.VirtualPosition) search.ReferenceResolver {
	open := func() (io.ReadCloser, error) {
		headerRange := ourbgzf.Chunk{Start: ourbgzf.NewVirtualPosition(0, 0), End: headerEnd}.ToByteRange()
		return backend.GetRange(ctx, key, headerRange)
	}

	switch format {
	case genomics.BAM:
		return search.BAMResolver{Open: open}
	case genomics.CRAM:
		return search.CRAMResolver{Open: open}
	case genomics.BCF:
		return search.BCFResolver{Open: open}
	case genomics.VCF:
		return search.VCFResolver{Open: open}
	default:
		return noopResolver{}
	}
}

type noopResolver struct{}

func (noopResolver) ResolveReference(name string) (int, error) {
	return 0, errors.New("no reference resolver for this format")
}

// asTicketError wraps a generic storage error as an InternalError unless it
// already carries a taxonomy code (storage backends map their own
// not-found/permission errors already — see internal/storage).
func asTicketError(err error, context string) error {
	if _, ok := ticket.AsError(err); ok {
		return err
	}
	return ticket.NewInternalError(context, err)
}

// asNoReference reports whether err wraps index.ErrNoReference, the
// sentinel component C returns when neither the index nor the data file's
// own header names the requested reference.
func asNoReference(err error) (error, bool) {
	if errors.Is(err, index.ErrNoReference) {
		return err, true
	}
	return nil, false
}
