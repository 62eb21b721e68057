package index

import (
	"fmt"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
)

// baiIndex adapts a biogo *bam.Index to the uniform Index interface.
type baiIndex struct {
	idx  *bam.Index
	refs []*sam.Reference // placeholder references, one per reference ID
}

// ReadBAI parses a .bai index from r.
func ReadBAI(r io.Reader) (Index, error) {
	idx, err := bam.ReadIndex(r)
	if err != nil {
		return nil, fmt.Errorf("reading BAI: %v", err)
	}
	if idx == nil {
		return nil, fmt.Errorf("reading BAI: empty index")
	}
	refs, err := placeholderReferences(idx.NumRefs())
	if err != nil {
		return nil, fmt.Errorf("building reference table: %v", err)
	}
	return &baiIndex{idx: idx, refs: refs}, nil
}

// placeholderReferences builds n *sam.Reference values, added to a scratch
// sam.Header so each carries the sequential ID biogo's Index.Chunks needs.
// The index format does not store reference names, only a per-reference
// bin table, so the names here are never inspected.
func placeholderReferences(n int) ([]*sam.Reference, error) {
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, err
	}
	refs := make([]*sam.Reference, n)
	for i := 0; i < n; i++ {
		ref, err := sam.NewReference(fmt.Sprintf("ref%d", i), "", "", 1, nil, nil)
		if err != nil {
			return nil, err
		}
		if err := h.AddReference(ref); err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

func (b *baiIndex) NumRefs() int { return b.idx.NumRefs() }

func (b *baiIndex) ReferenceID(name string) (int, bool) {
	// BAI stores no reference names; resolution happens against the BAM
	// file's own header (see internal/search/bam.go).
	return 0, false
}

func (b *baiIndex) Chunks(refID, start, end int) ([]ourbgzf.Chunk, error) {
	if refID < 0 || refID >= len(b.refs) {
		return nil, ErrNoReference
	}
	chunks, err := b.idx.Chunks(b.refs[refID], start, end)
	if err != nil {
		return nil, fmt.Errorf("computing chunks: %v", err)
	}
	return fromChunks(chunks), nil
}

func (b *baiIndex) UnmappedChunk() (ourbgzf.Chunk, bool) {
	// BAI carries no chunk boundary for the unmapped tail directly; it is
	// taken to start where the last reference's mapped data ends and run
	// to the end of the file (see internal/search/bam.go).
	best := ourbgzf.VirtualPosition(0)
	found := false
	for i := 0; i < len(b.refs); i++ {
		stats, ok := b.idx.ReferenceStats(i)
		if !ok {
			continue
		}
		v := fromOffset(stats.Chunk.End)
		if v > best {
			best = v
			found = true
		}
	}
	if !found {
		return ourbgzf.Chunk{}, false
	}
	return ourbgzf.Chunk{Start: best, End: ourbgzf.LastAddress}, true
}

func (b *baiIndex) HeaderEnd() ourbgzf.VirtualPosition {
	best := ourbgzf.LastAddress
	for i := 0; i < len(b.refs); i++ {
		stats, ok := b.idx.ReferenceStats(i)
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
