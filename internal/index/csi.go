package index

import (
	biogocsi "github.com/biogo/hts/csi"

	"fmt"
	"io"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
)

// csiIndex adapts a biogo *csi.Index to the uniform Index interface. CSI is
// used for CRAM, BCF, and optionally VCF.gz (spec.md §4.B).
type csiIndex struct {
	idx *biogocsi.Index
}

// ReadCSI parses a decompressed .csi index from r. CSI files are
// themselves BGZF-compressed; callers must gunzip before calling this
// (see internal/index.Open).
func ReadCSI(r io.Reader) (Index, error) {
	idx, err := biogocsi.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSI: %v", err)
	}
	return &csiIndex{idx: idx}, nil
}

func (c *csiIndex) NumRefs() int { return c.idx.NumRefs() }

func (c *csiIndex) ReferenceID(name string) (int, bool) {
	// CSI stores no reference names of its own; VCF/BCF/CRAM resolve names
	// against their own text or SAM header (see internal/search).
	return 0, false
}

func (c *csiIndex) Chunks(refID, start, end int) ([]ourbgzf.Chunk, error) {
	return fromChunks(c.idx.Chunks(refID, start, end)), nil
}

func (c *csiIndex) UnmappedChunk() (ourbgzf.Chunk, bool) {
	n, ok := c.idx.Unmapped()
	if !ok || n == 0 {
		return ourbgzf.Chunk{}, false
	}
	end, ok := c.LastReferenceEnd()
	if !ok {
		return ourbgzf.Chunk{}, false
	}
	return ourbgzf.Chunk{Start: end, End: ourbgzf.LastAddress}, true
}

func (c *csiIndex) HeaderEnd() ourbgzf.VirtualPosition {
	best := ourbgzf.LastAddress
	for i := 0; i < c.idx.NumRefs(); i++ {
		stats, ok := c.idx.ReferenceStats(i)
		if !ok {
			continue
		}
		v := fromOffset(stats.Chunk.Begin)
		if v < best {
			best = v
		}
	}
	return best
}

// LastReferenceEnd returns the End virtual position of the last reference
// with recorded statistics, used by format search to locate the unmapped
// tail of a coordinate-sorted file.
func (c *csiIndex) LastReferenceEnd() (ourbgzf.VirtualPosition, bool) {
	var best ourbgzf.VirtualPosition
	found := false
	for i := 0; i < c.idx.NumRefs(); i++ {
		stats, ok := c.idx.ReferenceStats(i)
		if !ok {
			continue
		}
		v := fromOffset(stats.Chunk.End)
		if v > best {
			best = v
			found = true
		}
	}
	return best, found
}
