package index

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
)

func writeGzippedCRAI(t *testing.T, text string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		t.Fatalf("writing CRAI fixture: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return &buf
}

func TestReadCRAIParsesRows(t *testing.T) {
	text := strings.Join([]string{
		"0\t0\t100\t0\t10\t20",
		"0\t100\t100\t200\t15\t25",
		"-1\t0\t0\t400\t5\t10",
	}, "\n") + "\n"

	idx, err := ReadCRAI(writeGzippedCRAI(t, text), 500)
	if err != nil {
		t.Fatalf("ReadCRAI: %v", err)
	}

	if got, want := idx.NumRefs(), 1; got != want {
		t.Errorf("NumRefs() = %d, want %d", got, want)
	}

	chunks, err := idx.Chunks(0, 0, 300)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Chunks(0, 0, 300) returned %d chunks, want 2", len(chunks))
	}
	if got, want := chunks[0].Start.Compressed(), uint64(0); got != want {
		t.Errorf("chunks[0].Start.Compressed() = %d, want %d", got, want)
	}
	if got, want := chunks[0].End.Compressed(), uint64(200); got != want {
		t.Errorf("chunks[0].End.Compressed() = %d, want %d", got, want)
	}
	if got, want := chunks[1].End.Compressed(), uint64(400); got != want {
		t.Errorf("chunks[1].End.Compressed() = %d, want %d", got, want)
	}

	unmapped, ok := idx.UnmappedChunk()
	if !ok {
		t.Fatal("UnmappedChunk() ok = false, want true")
	}
	if got, want := unmapped.Start.Compressed(), uint64(400); got != want {
		t.Errorf("unmapped.Start.Compressed() = %d, want %d", got, want)
	}
	if got, want := unmapped.End.Compressed(), uint64(500); got != want {
		t.Errorf("unmapped.End.Compressed() = %d, want %d", got, want)
	}
}

func TestReadCRAIRejectsMalformedRow(t *testing.T) {
	if _, err := ReadCRAI(writeGzippedCRAI(t, "0\t1\t2\n"), 100); err == nil {
		t.Fatal("expected an error for a malformed CRAI row, got nil")
	}
}

func TestReadCRAINoEntriesHeaderEndIsZero(t *testing.T) {
	idx, err := ReadCRAI(writeGzippedCRAI(t, ""), 0)
	if err != nil {
		t.Fatalf("ReadCRAI: %v", err)
	}
	if got := idx.HeaderEnd(); got.Compressed() != 0 || got.Uncompressed() != 0 {
		t.Errorf("HeaderEnd() = %s, want 0+0", got)
	}
}
