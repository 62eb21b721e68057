package index

import (
	"fmt"
	"io"

	biogotabix "github.com/biogo/hts/tabix"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
)

// tabixIndex adapts a biogo *tabix.Index to the uniform Index interface.
// TABIX is used for VCF.gz and any other bgzipped, tab-delimited format;
// unlike BAI and CSI it carries its own reference name table.
type tabixIndex struct {
	idx *biogotabix.Index
}

// ReadTABIX parses a decompressed .tbi index from r.
func ReadTABIX(r io.Reader) (Index, error) {
	idx, err := biogotabix.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("reading TABIX: %v", err)
	}
	return &tabixIndex{idx: idx}, nil
}

func (t *tabixIndex) NumRefs() int { return t.idx.NumRefs() }

func (t *tabixIndex) ReferenceID(name string) (int, bool) {
	id, ok := t.idx.IDs()[name]
	return id, ok
}

func (t *tabixIndex) Chunks(refID, start, end int) ([]ourbgzf.Chunk, error) {
	names := t.idx.Names()
	if refID < 0 || refID >= len(names) {
		return nil, ErrNoReference
	}
	chunks, err := t.idx.Chunks(names[refID], start, end)
	if err != nil {
		return nil, fmt.Errorf("computing chunks: %v", err)
	}
	return fromChunks(chunks), nil
}

func (t *tabixIndex) UnmappedChunk() (ourbgzf.Chunk, bool) {
	// TABIX indexes plain tab-delimited text, which has no unmapped
	// concept distinct from "not covered by any bin".
	return ourbgzf.Chunk{}, false
}

func (t *tabixIndex) HeaderEnd() ourbgzf.VirtualPosition {
	best := ourbgzf.LastAddress
	for i := 0; i < t.idx.NumRefs(); i++ {
		stats, ok := t.idx.ReferenceStats(i)
		if !ok {
			continue
		}
		v := fromOffset(stats.Chunk.Begin)
		if v < best {
			best = v
		}
	}
	if best == ourbgzf.LastAddress {
		// A header-only file (no bins recorded) still has a header;
		// fall back to the start of the file in that case.
		return ourbgzf.NewVirtualPosition(0, 0)
	}
	return best
}
