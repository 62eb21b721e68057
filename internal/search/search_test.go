package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
)

type fakeIndex struct {
	headerEnd   ourbgzf.VirtualPosition
	chunks      map[int][]ourbgzf.Chunk
	names       map[string]int
	unmapped    ourbgzf.Chunk
	hasUnmapped bool
}

func (f *fakeIndex) HeaderEnd() ourbgzf.VirtualPosition { return f.headerEnd }

func (f *fakeIndex) Chunks(refID, start, end int) ([]ourbgzf.Chunk, error) {
	return f.chunks[refID], nil
}

func (f *fakeIndex) ReferenceID(name string) (int, bool) {
	id, ok := f.names[name]
	return id, ok
}

func (f *fakeIndex) NumRefs() int { return len(f.names) }

func (f *fakeIndex) UnmappedChunk() (ourbgzf.Chunk, bool) { return f.unmapped, f.hasUnmapped }

func u32(v uint32) *uint32 { return &v }

func TestComputeHeaderClassShortCircuits(t *testing.T) {
	idx := &fakeIndex{headerEnd: ourbgzf.NewVirtualPosition(1000, 0)}
	result, err := Compute(idx, nil, genomics.Query{Class: genomics.Header}, 5000, 0)
	require.NoError(t, err)
	assert.Empty(t, result.BodyRanges)
	require.Len(t, result.HeaderRanges, 1)
	assert.Equal(t, uint64(999), result.HeaderRanges[0].End)
}

func TestComputeNoRegionsReturnsWholeBody(t *testing.T) {
	idx := &fakeIndex{headerEnd: ourbgzf.NewVirtualPosition(100, 0)}
	result, err := Compute(idx, nil, genomics.Query{}, 5000, 0)
	require.NoError(t, err)
	require.Len(t, result.BodyRanges, 1)
	assert.Equal(t, ourbgzf.ByteRange{Start: 100, End: 4999}, result.BodyRanges[0])
}

func TestComputeResolvesNamedRegion(t *testing.T) {
	idx := &fakeIndex{
		headerEnd: ourbgzf.NewVirtualPosition(100, 0),
		names:     map[string]int{"chr1": 0},
		chunks: map[int][]ourbgzf.Chunk{
			0: {{Start: ourbgzf.NewVirtualPosition(200, 0), End: ourbgzf.NewVirtualPosition(300, 0)}},
		},
	}
	query := genomics.Query{Regions: []genomics.Region{{ReferenceName: "chr1", Interval: genomics.Interval{Start: u32(10), End: u32(20)}}}}
	result, err := Compute(idx, nil, query, 5000, 0)
	require.NoError(t, err)
	require.Len(t, result.BodyRanges, 1)
	assert.Equal(t, uint64(200), result.BodyRanges[0].Start)
}

func TestComputeWildcardUsesUnmappedChunk(t *testing.T) {
	idx := &fakeIndex{
		headerEnd:   ourbgzf.NewVirtualPosition(100, 0),
		unmapped:    ourbgzf.Chunk{Start: ourbgzf.NewVirtualPosition(900, 0), End: ourbgzf.LastAddress},
		hasUnmapped: true,
	}
	query := genomics.Query{Regions: []genomics.Region{{ReferenceName: genomics.Wildcard}}}
	result, err := Compute(idx, nil, query, 5000, 0)
	require.NoError(t, err)
	require.Len(t, result.BodyRanges, 1)
	assert.Equal(t, ourbgzf.ByteRange{Start: 900, End: 4999}, result.BodyRanges[0])
}

func TestComputeUnresolvableReferenceFallsBackToResolver(t *testing.T) {
	idx := &fakeIndex{headerEnd: ourbgzf.NewVirtualPosition(100, 0)}
	resolver := stubResolver{id: -1, err: assertErr{"boom"}}
	query := genomics.Query{Regions: []genomics.Region{{ReferenceName: "chrZ"}}}
	_, err := Compute(idx, resolver, query, 5000, 0)
	assert.Error(t, err)
}

type stubResolver struct {
	id  int
	err error
}

func (s stubResolver) ResolveReference(name string) (int, error) { return s.id, s.err }

type assertErr struct{ msg string }

func (a assertErr) Error() string { return a.msg }
