// Package bgzf provides the virtual-offset arithmetic used to translate
// BGZF coordinates into HTTP byte ranges.
//
// A BGZF stream is a concatenation of independently gzip-compressible
// blocks, each holding at most 64KiB of uncompressed data. A "virtual
// offset" addresses a byte inside that uncompressed stream without
// decompressing it: the high 48 bits name the compressed offset of the
// block in the file and the low 16 bits name the byte inside the
// decompressed block.
package bgzf

import (
	"fmt"
	"sort"
)

// MaximumBlockSize is the largest a single BGZF block may be, compressed or
// uncompressed. The EOF marker and most real blocks are far smaller.
const MaximumBlockSize = 1 << 16

// LastAddress is the largest representable VirtualPosition; used as the
// starting point for computing the minimum of a set of candidate offsets.
const LastAddress = VirtualPosition(^uint64(0))

// VirtualPosition is a BGZF virtual offset: the pair (compressed offset,
// uncompressed offset) packed into a single comparable uint64, as specified
// by the SAM/BAM binary index formats.
type VirtualPosition uint64

// NewVirtualPosition packs a compressed block offset and a within-block
// uncompressed offset into a VirtualPosition.
func NewVirtualPosition(compressed uint64, uncompressed uint16) VirtualPosition {
	return VirtualPosition(compressed<<16 | uint64(uncompressed))
}

// Compressed returns the offset, in the compressed file, of the BGZF block
// that holds the addressed byte.
func (v VirtualPosition) Compressed() uint64 {
	return uint64(v) >> 16
}

// Uncompressed returns the offset, inside the decompressed block, of the
// addressed byte.
func (v VirtualPosition) Uncompressed() uint16 {
	return uint16(v)
}

func (v VirtualPosition) String() string {
	return fmt.Sprintf("%d+%d", v.Compressed(), v.Uncompressed())
}

// Chunk is a pair of virtual positions bounding a contiguous region of
// interest inside a BGZF file, as produced by a binning-index bin.
type Chunk struct {
	Start, End VirtualPosition
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%s, %s)", c.Start, c.End)
}

// ByteRange is an inclusive-inclusive byte range over the underlying
// compressed object, suitable for an HTTP Range header.
type ByteRange struct {
	Start, End uint64
}

func (r ByteRange) String() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ToByteRange translates a Chunk into the ByteRange of compressed bytes
// that must be fetched to cover it.
//
// The exact upper bound of a chunk whose End has a non-zero uncompressed
// offset is ambiguous without reading the BGZF block header at End.Compressed
// (see spec open question on BGZF chunk upper bounds). This implementation
// picks the "over-fetch" convention consistently: when the uncompressed
// offset is zero the block starting at End.Compressed is not needed at all,
// so the range stops one byte short of it; otherwise the full following
// block is requested and the client's BGZF reader is expected to stop
// decoding at the record boundary.
func (c Chunk) ToByteRange() ByteRange {
	start := c.Start.Compressed()
	var end uint64
	if c.End.Uncompressed() == 0 {
		if c.End.Compressed() == 0 {
			end = 0
		} else {
			end = c.End.Compressed() - 1
		}
	} else {
		end = c.End.Compressed() + MaximumBlockSize - 1
	}
	return ByteRange{Start: start, End: end}
}

// MergeChunks sorts chunks by start offset and merges any two whose gap (in
// compressed bytes) does not exceed coalesceGap, or which overlap outright.
// The result is minimal, non-overlapping and ascending by start offset.
func MergeChunks(chunks []Chunk, coalesceGap uint64) []Chunk {
	if len(chunks) == 0 {
		return nil
	}

	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Chunk{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if next.Start.Compressed() <= last.End.Compressed()+coalesceGap {
			if next.End > last.End {
				last.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// MergeByteRanges sorts ranges by start and merges any two whose gap does
// not exceed coalesceGap. Input ranges must already be non-overlapping
// within themselves; the result is ascending and non-overlapping.
func MergeByteRanges(ranges []ByteRange, coalesceGap uint64) []ByteRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]ByteRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []ByteRange{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if next.Start <= last.End+coalesceGap+1 {
			if next.End > last.End {
				last.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}
