// Package search implements the shared chunk-search algorithm of
// component C: given a parsed index and a query it produces the ordered
// list of byte ranges a ticket must cover, deferring format-specific
// reference-name lookup to the small per-format files in this package.
package search

import (
	"fmt"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
	"github.com/ga4gh/htsget-ticket-server/internal/index"
)

// ReferenceResolver maps a reference name to the index's internal
// reference ID for formats whose index carries no name table of its own.
type ReferenceResolver interface {
	ResolveReference(name string) (int, error)
}

// Result is the ordered plan for one query: the byte ranges that make up
// the header, followed by the byte ranges that make up the body. Both are
// already merged and sorted ascending. The EOF trailer is not part of a
// Result; it is appended by the ticket assembler, which alone knows the
// format-specific trailer bytes.
type Result struct {
	HeaderRanges []ourbgzf.ByteRange
	BodyRanges   []ourbgzf.ByteRange
}

// Compute runs the shared 7-step algorithm from spec.md §4.C against idx,
// resolving any reference name in query.Regions via resolver when idx
// itself carries no name table. fileSize is the total size, in bytes, of
// the underlying data object; it bounds an unqualified "whole file" query
// and the wildcard unmapped tail. coalesceGap is passed straight through
// to the BGZF range merge (see internal/bgzf.MergeByteRanges).
func Compute(idx index.Index, resolver ReferenceResolver, query genomics.Query, fileSize uint64, coalesceGap uint64) (Result, error) {
	headerChunk := ourbgzf.Chunk{Start: ourbgzf.NewVirtualPosition(0, 0), End: idx.HeaderEnd()}
	headerRange := headerChunk.ToByteRange()

	result := Result{HeaderRanges: []ourbgzf.ByteRange{headerRange}}
	if query.Class == genomics.Header {
		return result, nil
	}

	if len(query.Regions) == 0 {
		if fileSize == 0 || fileSize-1 <= headerRange.End {
			return result, nil
		}
		result.BodyRanges = []ourbgzf.ByteRange{{Start: headerRange.End + 1, End: fileSize - 1}}
		return result, nil
	}

	var chunks []ourbgzf.Chunk
	for _, region := range query.Regions {
		regionChunks, err := chunksForRegion(idx, resolver, region, fileSize)
		if err != nil {
			return Result{}, err
		}
		chunks = append(chunks, regionChunks...)
	}

	merged := ourbgzf.MergeChunks(chunks, coalesceGap)
	ranges := make([]ourbgzf.ByteRange, len(merged))
	for i, c := range merged {
		ranges[i] = c.ToByteRange()
	}
	result.BodyRanges = ourbgzf.MergeByteRanges(ranges, coalesceGap)
	return result, nil
}

func chunksForRegion(idx index.Index, resolver ReferenceResolver, region genomics.Region, fileSize uint64) ([]ourbgzf.Chunk, error) {
	if region.ReferenceName == genomics.Wildcard {
		chunk, ok := idx.UnmappedChunk()
		if !ok {
			return nil, nil
		}
		if chunk.End == ourbgzf.LastAddress && fileSize > 0 {
			chunk.End = ourbgzf.NewVirtualPosition(fileSize, 0)
		}
		return []ourbgzf.Chunk{chunk}, nil
	}

	refID, ok := idx.ReferenceID(region.ReferenceName)
	if !ok {
		var err error
		refID, err = resolver.ResolveReference(region.ReferenceName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", index.ErrNoReference, err)
		}
	}

	start := int(region.Interval.StartOr(0))
	end := int(region.Interval.EndOr(0))
	chunks, err := idx.Chunks(refID, start, end)
	if err != nil {
		return nil, fmt.Errorf("computing chunks for %q: %v", region.ReferenceName, err)
	}
	return chunks, nil
}
