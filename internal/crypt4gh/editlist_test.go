package crypt4gh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// hugeFile is a stand-in file size for tests that only care about block
// arithmetic well clear of any EOF clamping.
const hugeFile = 10 * DataBlockPlaintextSize

func TestBuildEditListSingleWindowWithinOneBlock(t *testing.T) {
	edits, ranges := BuildEditList([]Window{{Start: 100, End: 200}}, hugeFile)

	assert.Equal(t, []ClampedRange{{Start: 0, End: DataBlockPlaintextSize}}, ranges)
	assert.Equal(t, EditList{100, 100}, edits)
}

func TestBuildEditListWindowSpanningTwoBlocks(t *testing.T) {
	start := uint64(DataBlockPlaintextSize - 10)
	end := uint64(DataBlockPlaintextSize + 10)
	edits, ranges := BuildEditList([]Window{{Start: start, End: end}}, hugeFile)

	assert.Equal(t, []ClampedRange{{Start: 0, End: 2 * DataBlockPlaintextSize}}, ranges)
	assert.Equal(t, EditList{DataBlockPlaintextSize - 10, 20}, edits)
}

func TestBuildEditListTwoWindowsInSameBlock(t *testing.T) {
	edits, ranges := BuildEditList([]Window{
		{Start: 100, End: 200},
		{Start: 500, End: 600},
	}, hugeFile)

	assert.Equal(t, []ClampedRange{{Start: 0, End: DataBlockPlaintextSize}}, ranges)
	// discard 100, keep 100 (bytes [100,200)), then discard 300 (bytes
	// [200,500) skipped), keep 100 (bytes [500,600)).
	assert.Equal(t, EditList{100, 100, 300, 100}, edits)
}

func TestBuildEditListTwoWindowsInAdjacentBlocks(t *testing.T) {
	secondBlockStart := uint64(DataBlockPlaintextSize)
	edits, ranges := BuildEditList([]Window{
		{Start: 100, End: 200},
		{Start: secondBlockStart + 50, End: secondBlockStart + 150},
	}, hugeFile)

	// the two windows clamp to touching block ranges, so they merge into
	// one contiguous fetch spanning both blocks.
	assert.Equal(t, []ClampedRange{{Start: 0, End: 2 * DataBlockPlaintextSize}}, ranges)
	assert.Equal(t, EditList{100, 100, (secondBlockStart + 50) - 200, 100}, edits)
}

func TestBuildEditListOverlappingWindowsMerge(t *testing.T) {
	edits, ranges := BuildEditList([]Window{
		{Start: 100, End: 300},
		{Start: 200, End: 400},
	}, hugeFile)

	assert.Equal(t, []ClampedRange{{Start: 0, End: DataBlockPlaintextSize}}, ranges)
	// overlapping windows merge into their union [100,400) before the
	// edit list is built, so this yields one discard/keep pair.
	assert.Equal(t, EditList{100, 300}, edits)
}

func TestBuildEditListEmptyInput(t *testing.T) {
	edits, ranges := BuildEditList(nil, hugeFile)
	assert.Nil(t, edits)
	assert.Nil(t, ranges)
}

// TestBuildEditListClampsFinalBlockToFileSize mirrors the reference
// fixture in umccr/htsget-rs's edit.rs test_create_edit_list: a window
// reaching to the file's true end, 5485112, must clamp its last block to
// that size rather than rounding up to the next full 65536-byte boundary
// (5505024), since there are no bytes past EOF to fetch.
func TestBuildEditListClampsFinalBlockToFileSize(t *testing.T) {
	const fileSize = 5485112
	edits, ranges := BuildEditList([]Window{
		{Start: 0, End: 7853},
		{Start: 145110, End: 453039},
		{Start: 5485074, End: 5485112},
	}, fileSize)

	assert.Equal(t, []ClampedRange{
		{Start: 0, End: 65536},
		{Start: 131072, End: 458752},
		{Start: 5439488, End: 5485112},
	}, ranges)
	assert.Equal(t, EditList{0, 7853, 71721, 307929, 51299, 38}, edits)
}
