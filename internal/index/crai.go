package index

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
)

// craiEntry is one row of a CRAM index (.crai) file: a tab-separated
// six-column table with no binary binning index of its own.
type craiEntry struct {
	sequenceID      int32
	alignmentStart  uint32
	alignmentLength uint32
	containerStart  uint64
}

// craiIndex adapts a parsed CRAI table to the uniform Index interface.
// CRAM containers are not BGZF blocks, so Chunk virtual positions here
// always carry an uncompressed offset of zero: the container start byte
// packed as the compressed half. This falls into ToByteRange's exact
// branch, giving a precise byte range rather than an over-fetch.
type craiIndex struct {
	entries  []craiEntry
	fileSize uint64
}

// ReadCRAI parses a gzipped CRAI table from r. fileSize is the total size
// of the CRAM file the index describes, needed to bound the last
// container since CRAI records only container start offsets.
func ReadCRAI(r io.Reader, fileSize uint64) (Index, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("ungzipping CRAI: %v", err)
	}
	defer gz.Close()

	var entries []craiEntry
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 6 {
			return nil, fmt.Errorf("CRAI row has %d columns, want 6", len(fields))
		}
		seqID, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing sequence ID: %v", err)
		}
		start, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing alignment start: %v", err)
		}
		length, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing alignment length: %v", err)
		}
		containerStart, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing container start: %v", err)
		}
		entries = append(entries, craiEntry{
			sequenceID:      int32(seqID),
			alignmentStart:  uint32(start),
			alignmentLength: uint32(length),
			containerStart:  containerStart,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning CRAI: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].containerStart < entries[j].containerStart })
	return &craiIndex{entries: entries, fileSize: fileSize}, nil
}

// containerEnd returns the byte offset one past the container starting at
// start, found as the next distinct container start in the sorted table,
// or the file size for the final container.
func (c *craiIndex) containerEnd(start uint64) uint64 {
	for _, e := range c.entries {
		if e.containerStart > start {
			return e.containerStart
		}
	}
	return c.fileSize
}

func (c *craiIndex) NumRefs() int {
	max := int32(-1)
	for _, e := range c.entries {
		if e.sequenceID > max {
			max = e.sequenceID
		}
	}
	return int(max + 1)
}

func (c *craiIndex) ReferenceID(name string) (int, bool) {
	// CRAI carries no reference names; CRAM resolves names against its own
	// embedded SAM header (see internal/search/cram.go).
	return 0, false
}

func (c *craiIndex) Chunks(refID, start, end int) ([]ourbgzf.Chunk, error) {
	var chunks []ourbgzf.Chunk
	for _, e := range c.entries {
		if refID >= 0 && int32(refID) != e.sequenceID {
			continue
		}
		alignmentEnd := uint64(e.alignmentStart) + uint64(e.alignmentLength)
		if uint64(end) != 0 && uint64(end) < uint64(e.alignmentStart) {
			continue
		}
		if uint64(start) > alignmentEnd {
			continue
		}
		chunks = append(chunks, ourbgzf.Chunk{
			Start: ourbgzf.NewVirtualPosition(e.containerStart, 0),
			End:   ourbgzf.NewVirtualPosition(c.containerEnd(e.containerStart), 0),
		})
	}
	return chunks, nil
}

func (c *craiIndex) UnmappedChunk() (ourbgzf.Chunk, bool) {
	// Unplaced, unmapped CRAM records carry sequenceID -1; the chunk runs
	// from the first container holding such rows to the end of the last.
	var start, end uint64
	found := false
	for _, e := range c.entries {
		if e.sequenceID >= 0 {
			continue
		}
		if !found {
			start = e.containerStart
			found = true
		}
		end = c.containerEnd(e.containerStart)
	}
	if !found {
		return ourbgzf.Chunk{}, false
	}
	return ourbgzf.Chunk{
		Start: ourbgzf.NewVirtualPosition(start, 0),
		End:   ourbgzf.NewVirtualPosition(end, 0),
	}, true
}

func (c *craiIndex) HeaderEnd() ourbgzf.VirtualPosition {
	if len(c.entries) == 0 {
		return ourbgzf.NewVirtualPosition(0, 0)
	}
	return ourbgzf.NewVirtualPosition(c.entries[0].containerStart, 0)
}
