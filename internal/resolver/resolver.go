// Package resolver wires components D through G together into the
// ticket resolver: given a Query it locates the backend (D), fetches and
// parses the index (B), computes the chunk plan (C), optionally
// re-wraps a Crypt4GH container (G), and assembles the wire response
// (F). It never imports net/http; component J (internal/httpapi) is the
// only layer that serves HTTP requests.
package resolver

import (
	"context"
	"encoding/base64"
	"fmt"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/crypt4gh"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
	"github.com/ga4gh/htsget-ticket-server/internal/index"
	"github.com/ga4gh/htsget-ticket-server/internal/location"
	"github.com/ga4gh/htsget-ticket-server/internal/search"
	"github.com/ga4gh/htsget-ticket-server/internal/storage"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

// headerPrefetchSize bounds how much of a Crypt4GH object's leading bytes
// are fetched to locate its header; real headers (a handful of packets)
// are far smaller than this.
const headerPrefetchSize = 64 * 1024

// Resolver is the ticket resolver core. Locations is shared read-only for
// the life of the process; CoalesceGap tunes the byte-range merge of
// component A.
type Resolver struct {
	Locations   location.Table
	CoalesceGap uint64
}

// New builds a Resolver over locations.
func New(locations location.Table) *Resolver {
	return &Resolver{Locations: locations}
}

// Resolve plans and assembles the ticket for query, or returns a
// *ticket.Error carrying the wire error code to report.
func (r *Resolver) Resolve(ctx context.Context, query genomics.Query) (ticket.Response, error) {
	if err := query.Validate(); err != nil {
		return ticket.Response{}, ticket.NewInvalidInput("validating query", err)
	}

	resolved, ok := r.Locations.Resolve(query.ID, query)
	if !ok {
		return ticket.Response{}, ticket.NewNotFound("no location matches id", fmt.Errorf("id %q", query.ID))
	}

	backend, ok := resolved.Location.BackendRef.(storage.Storage)
	if !ok {
		return ticket.Response{}, ticket.NewInternalError("location has no storage backend bound", nil)
	}
	key := resolved.ResolvedID

	if resolved.Location.ObjectKind == location.Crypt4GH {
		return r.resolveCrypt4GH(ctx, query, backend, key, resolved.Location)
	}
	return r.resolvePlain(ctx, query, backend, key)
}

func (r *Resolver) resolvePlain(ctx context.Context, query genomics.Query, backend storage.Storage, key string) (ticket.Response, error) {
	dataSize, err := backend.Head(ctx, key)
	if err != nil {
		return ticket.Response{}, asTicketError(err, "heading data object")
	}

	kind := index.DefaultKind(query.Format)
	indexKey := key + kind.Suffix()
	indexSize, err := backend.Head(ctx, indexKey)
	if err != nil {
		return ticket.Response{}, asTicketError(err, "heading index object")
	}
	indexBody, err := backend.GetRange(ctx, indexKey, ourbgzf.ByteRange{Start: 0, End: indexSize - 1})
	if err != nil {
		return ticket.Response{}, asTicketError(err, "fetching index object")
	}
	defer indexBody.Close()

	idx, err := index.Open(query.Format, kind, indexBody, dataSize)
	if err != nil {
		return ticket.Response{}, ticket.NewInternalError("parsing index", err)
	}

	resolver := referenceResolverFor(query.Format, ctx, backend, key, idx.HeaderEnd())
	result, err := search.Compute(idx, resolver, query, dataSize, r.CoalesceGap)
	if err != nil {
		if indexErr, ok := asNoReference(err); ok {
			return ticket.Response{}, ticket.NewNotFound("resolving reference name", indexErr)
		}
		return ticket.Response{}, ticket.NewInternalError("computing chunk plan", err)
	}

	response, err := ticket.Assemble(query.Format, key, backend, result.HeaderRanges, result.BodyRanges)
	if err != nil {
		return ticket.Response{}, ticket.NewInternalError("assembling ticket", err)
	}
	return response, nil
}

// resolveCrypt4GH runs the same plan over the object's plaintext
// coordinates, then translates every resulting byte range into the
// encrypted container via component G before assembling the response.
func (r *Resolver) resolveCrypt4GH(ctx context.Context, query genomics.Query, backend storage.Storage, key string, loc *location.Location) (ticket.Response, error) {
	keys, ok := loc.C4GHKeys.(crypt4gh.LocationKeys)
	if !ok {
		return ticket.Response{}, ticket.NewInternalError("Crypt4GH location missing key configuration", nil)
	}

	dataSize, err := backend.Head(ctx, key)
	if err != nil {
		return ticket.Response{}, asTicketError(err, "heading Crypt4GH object")
	}

	prefixEnd := dataSize - 1
	if headerPrefetchSize-1 < prefixEnd {
		prefixEnd = headerPrefetchSize - 1
	}
	prefixBody, err := backend.GetRange(ctx, key, ourbgzf.ByteRange{Start: 0, End: prefixEnd})
	if err != nil {
		return ticket.Response{}, asTicketError(err, "fetching Crypt4GH header")
	}
	defer prefixBody.Close()

	hdr, err := crypt4gh.ReadHeader(prefixBody)
	if err != nil {
		return ticket.Response{}, ticket.NewInternalError("parsing Crypt4GH header", err)
	}
	if err := hdr.Unseal(keys.Owner); err != nil {
		return ticket.Response{}, ticket.NewPermissionDenied("unsealing Crypt4GH header", err)
	}

	kind := index.DefaultKind(query.Format)
	indexKey := key + kind.Suffix()
	indexSize, err := backend.Head(ctx, indexKey)
	if err != nil {
		return ticket.Response{}, asTicketError(err, "heading index object")
	}
	indexBody, err := backend.GetRange(ctx, indexKey, ourbgzf.ByteRange{Start: 0, End: indexSize - 1})
	if err != nil {
		return ticket.Response{}, asTicketError(err, "fetching index object")
	}
	defer indexBody.Close()

	// The index and its BGZF chunks always address the plaintext file, not
	// the encrypted container, so component C's fileSize bound must be the
	// recovered plaintext size.
	plaintextSize := plaintextFileSize(hdr.HeaderLength, dataSize)

	idx, err := index.Open(query.Format, kind, indexBody, plaintextSize)
	if err != nil {
		return ticket.Response{}, ticket.NewInternalError("parsing index", err)
	}

	resolver := referenceResolverFor(query.Format, ctx, backend, key, idx.HeaderEnd())
	result, err := search.Compute(idx, resolver, query, plaintextSize, r.CoalesceGap)
	if err != nil {
		if indexErr, ok := asNoReference(err); ok {
			return ticket.Response{}, ticket.NewNotFound("resolving reference name", indexErr)
		}
		return ticket.Response{}, ticket.NewInternalError("computing chunk plan", err)
	}

	windows := make([]crypt4gh.Window, 0, len(result.HeaderRanges)+len(result.BodyRanges))
	for _, br := range append(append([]ourbgzf.ByteRange{}, result.HeaderRanges...), result.BodyRanges...) {
		windows = append(windows, crypt4gh.Window{Start: br.Start, End: br.End + 1})
	}

	rewrapped, err := crypt4gh.Rewrap(hdr, keys.Owner, keys.RecipientPublic, windows, plaintextSize)
	if err != nil {
		return ticket.Response{}, ticket.NewInternalError("rewrapping Crypt4GH header", err)
	}

	urls := []ticket.URL{{URL: inlineDataURL(rewrapped.Header), Class: ticket.ClassHeader}}
	for _, dr := range rewrapped.DataRanges {
		url, headers, err := backend.MakeTicket(key, dr)
		if err != nil {
			return ticket.Response{}, ticket.NewInternalError("making Crypt4GH data ticket", err)
		}
		headers = withRangeHeader(headers, dr)
		urls = append(urls, ticket.URL{URL: url, Headers: headers, Class: ticket.ClassBody})
	}

	return ticket.AssembleInline(query.Format, urls), nil
}

func withRangeHeader(base map[string]string, r ourbgzf.ByteRange) map[string]string {
	headers := make(map[string]string, len(base)+1)
	for k, v := range base {
		headers[k] = v
	}
	headers["Range"] = r.String()
	return headers
}

func inlineDataURL(body []byte) string {
	return "data:;base64," + base64.StdEncoding.EncodeToString(body)
}

// plaintextFileSize inverts the Crypt4GH data-block framing to recover the
// decrypted file size from the encrypted object's size, assuming every
// data block but possibly the last is a full 64KiB plaintext block.
func plaintextFileSize(headerLength int64, encryptedSize uint64) uint64 {
	encryptedData := encryptedSize - uint64(headerLength)
	fullBlocks := encryptedData / crypt4gh.DataBlockCiphertextSize
	remainder := encryptedData % crypt4gh.DataBlockCiphertextSize

	size := fullBlocks * crypt4gh.DataBlockPlaintextSize
	if remainder > 0 {
		size += remainder - (crypt4gh.DataBlockCiphertextSize - crypt4gh.DataBlockPlaintextSize)
	}
	return size
}
