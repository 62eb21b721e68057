// Package index provides a uniform view over the four genomic index
// formats (BAI, CSI, TABIX, CRAI) that htsget needs in order to translate
// a (reference, interval) query into BGZF or byte chunks.
//
// Binary parsing of BAI, CSI and TABIX is delegated to
// github.com/biogo/hts, the trusted upstream genomics library referenced
// by spec.md §9 ("prefer a trusted upstream genomics library for binary
// parsing"); this package adapts biogo's types to the chunk/virtual-offset
// model used for ticketing (internal/bgzf). CRAI has no binning index of
// its own and is parsed directly in crai.go.
package index

import (
	"fmt"

	biogobgzf "github.com/biogo/hts/bgzf"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
)

// Index is the uniform view every format-specific reader in this package
// produces. Format search (internal/search) depends only on this
// interface, never on the underlying library types, keeping component C
// format-agnostic per spec.md §4.C.
type Index interface {
	// HeaderEnd returns the virtual position immediately following the
	// file's header region, i.e. the smallest Start virtual offset seen
	// across every bin in the index.
	HeaderEnd() ourbgzf.VirtualPosition

	// Chunks returns the BGZF chunks that may contain a record for
	// reference refID overlapping the half-open interval [start, end).
	// refID uses the index's own reference numbering; callers resolve a
	// reference name to an ID with ReferenceID first.
	Chunks(refID, start, end int) ([]ourbgzf.Chunk, error)

	// ReferenceID resolves a reference name to the index's internal
	// reference ID. Indices that carry no name table of their own (BAI)
	// return ok=false; the caller falls back to the file's own header.
	ReferenceID(name string) (id int, ok bool)

	// NumRefs returns the number of references the index covers.
	NumRefs() int

	// UnmappedChunk returns the chunk covering unplaced, unmapped
	// records, if the index records one.
	UnmappedChunk() (ourbgzf.Chunk, bool)
}

// ErrNoReference is returned by format search when a requested reference
// name cannot be found in either the index or the file header.
var ErrNoReference = fmt.Errorf("reference not found")

func fromOffset(o biogobgzf.Offset) ourbgzf.VirtualPosition {
	return ourbgzf.NewVirtualPosition(uint64(o.File), o.Block)
}

func fromChunk(c biogobgzf.Chunk) ourbgzf.Chunk {
	return ourbgzf.Chunk{Start: fromOffset(c.Begin), End: fromOffset(c.End)}
}

func fromChunks(cs []biogobgzf.Chunk) []ourbgzf.Chunk {
	out := make([]ourbgzf.Chunk, len(cs))
	for i, c := range cs {
		out[i] = fromChunk(c)
	}
	return out
}

// minStart returns the smallest Start virtual position across chunks, or
// max if chunks is empty.
func minStart(chunks []ourbgzf.Chunk, max ourbgzf.VirtualPosition) ourbgzf.VirtualPosition {
	best := max
	for _, c := range chunks {
		if c.Start < best {
			best = c.Start
		}
	}
	return best
}
