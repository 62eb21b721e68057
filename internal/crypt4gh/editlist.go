package crypt4gh

import "sort"

// Window is a requested plaintext byte range [Start, End) of the
// decrypted stream.
type Window struct {
	Start, End uint64
}

// ClampedRange is a Window rounded outward to the data-block boundaries
// that must be fetched whole, since Crypt4GH data blocks are encrypted
// and therefore indivisible (spec.md §4.G).
type ClampedRange struct {
	Start, End uint64 // plaintext offsets, multiples of DataBlockPlaintextSize except an End capped at fileSize
}

// clampToBlocks rounds w outward to whole data blocks, but never past
// fileSize: the file's final data block is commonly partial (plaintext
// length is rarely an exact multiple of DataBlockPlaintextSize), and
// there are no bytes beyond fileSize to fetch.
func clampToBlocks(w Window, fileSize uint64) ClampedRange {
	start := (w.Start / DataBlockPlaintextSize) * DataBlockPlaintextSize
	end := ((w.End + DataBlockPlaintextSize - 1) / DataBlockPlaintextSize) * DataBlockPlaintextSize
	if end > fileSize {
		end = fileSize
	}
	return ClampedRange{Start: start, End: end}
}

// BuildEditList clamps every window to block boundaries, merges
// overlapping or adjacent clamped ranges, and returns both the merged
// ranges (ascending, non-overlapping — these are what must be fetched)
// and the edit list that tells a decoder, given the concatenation of the
// decrypted clamped ranges in order, which bytes to discard and which to
// keep so the output is exactly the union of the original windows.
//
// windows need not be sorted or disjoint; BuildEditList sorts a private
// copy. Overlapping windows collapse in the edit list the same way they
// would in the output: the union of the plaintext they request. fileSize
// is the container's plaintext length, which bounds the last clamped
// range so it never reaches past the file's true end.
func BuildEditList(windows []Window, fileSize uint64) (EditList, []ClampedRange) {
	if len(windows) == 0 {
		return nil, nil
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := mergeWindows(sorted)

	type block struct {
		clamp   ClampedRange
		windows []Window
	}
	var blocks []block
	for _, w := range merged {
		c := clampToBlocks(w, fileSize)
		if n := len(blocks); n > 0 && c.Start <= blocks[n-1].clamp.End {
			if c.End > blocks[n-1].clamp.End {
				blocks[n-1].clamp.End = c.End
			}
			blocks[n-1].windows = append(blocks[n-1].windows, w)
			continue
		}
		blocks = append(blocks, block{clamp: c, windows: []Window{w}})
	}

	var edits EditList
	var streamPos, consumed uint64
	ranges := make([]ClampedRange, 0, len(blocks))
	for _, b := range blocks {
		for _, w := range b.windows {
			windowStreamPos := streamPos + (w.Start - b.clamp.Start)
			discard := windowStreamPos - consumed
			keep := w.End - w.Start
			edits = append(edits, discard, keep)
			consumed = windowStreamPos + keep
		}
		streamPos += b.clamp.End - b.clamp.Start
		ranges = append(ranges, b.clamp)
	}
	return edits, ranges
}

// mergeWindows merges overlapping or touching windows, assuming sorted
// ascending by Start.
func mergeWindows(sorted []Window) []Window {
	merged := []Window{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
