package storage

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

func newTestFileBackend(t *testing.T) (*File, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.bam"), []byte("0123456789"), 0o644))
	return NewFile(FileConfig{Root: dir, Scheme: "http", Authority: "data.example.org"}), dir
}

func TestFileHeadReturnsSize(t *testing.T) {
	f, _ := newTestFileBackend(t)
	size, err := f.Head(context.Background(), "sample.bam")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), size)
}

func TestFileHeadMissingIsNotFound(t *testing.T) {
	f, _ := newTestFileBackend(t)
	_, err := f.Head(context.Background(), "missing.bam")
	te, ok := ticket.AsError(err)
	require.True(t, ok)
	assert.Equal(t, ticket.NotFound, te.Code)
}

func TestFileGetRangeReturnsRequestedSlice(t *testing.T) {
	f, _ := newTestFileBackend(t)
	rc, err := f.GetRange(context.Background(), "sample.bam", ourbgzf.ByteRange{Start: 2, End: 4})
	require.NoError(t, err)
	defer rc.Close()
	data, err := ioutil.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "234", string(data))
}

func TestFileRejectsPathTraversal(t *testing.T) {
	f, _ := newTestFileBackend(t)
	for _, key := range []string{"../secret", "a/../../secret", "../../etc/passwd"} {
		_, err := f.Head(context.Background(), key)
		te, ok := ticket.AsError(err)
		require.True(t, ok, "key %q should produce a ticket.Error", key)
		assert.Equal(t, ticket.InvalidInput, te.Code, "key %q", key)
	}
}

func TestFileMakeTicketBuildsURL(t *testing.T) {
	f, _ := newTestFileBackend(t)
	url, headers, err := f.MakeTicket("sample.bam", ourbgzf.ByteRange{Start: 0, End: 9})
	require.NoError(t, err)
	assert.Equal(t, "http://data.example.org/sample.bam", url)
	assert.Empty(t, headers)
}
