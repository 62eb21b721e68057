package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

// FileConfig configures a File backend: a root directory served as a
// local HTTP file tree at scheme://authority.
type FileConfig struct {
	Root      string
	Scheme    string
	Authority string
	// URLPrefix is prepended to the key in generated tickets, letting the
	// data server mount the tree under a path other than "/".
	URLPrefix string
}

// File is the File storage backend of spec.md §4.E.
type File struct {
	cfg FileConfig
}

// NewFile returns a File backend rooted at cfg.Root.
func NewFile(cfg FileConfig) *File {
	return &File{cfg: cfg}
}

// resolvePath canonicalizes key against the backend's root and rejects
// any path that would escape it, the path-traversal guard spec.md §4.E
// and §8 require.
func (f *File) resolvePath(key string) (string, error) {
	root, err := filepath.Abs(f.cfg.Root)
	if err != nil {
		return "", ticket.NewInternalError("resolving root", err)
	}
	joined := filepath.Join(root, key)
	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ticket.NewInvalidInput("path traversal", fmt.Errorf("key %q escapes root", key))
	}
	return joined, nil
}

// Head implements Storage.
func (f *File) Head(ctx context.Context, key string) (uint64, error) {
	path, err := f.resolvePath(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, ticket.NewNotFound("stat", err)
	}
	if err != nil {
		return 0, ticket.NewInternalError("stat", err)
	}
	return uint64(info.Size()), nil
}

// GetRange implements Storage.
func (f *File) GetRange(ctx context.Context, key string, r ourbgzf.ByteRange) (io.ReadCloser, error) {
	path, err := f.resolvePath(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ticket.NewNotFound("open", err)
	}
	if err != nil {
		return nil, ticket.NewInternalError("open", err)
	}
	if _, err := file.Seek(int64(r.Start), io.SeekStart); err != nil {
		file.Close()
		return nil, ticket.NewInternalError("seek", err)
	}
	length := int64(r.End) - int64(r.Start) + 1
	return &limitedReadCloser{r: io.LimitReader(file, length), c: file}, nil
}

// MakeTicket implements Storage.
func (f *File) MakeTicket(key string, r ourbgzf.ByteRange) (string, map[string]string, error) {
	if _, err := f.resolvePath(key); err != nil {
		return "", nil, err
	}
	url := fmt.Sprintf("%s://%s%s/%s", f.cfg.Scheme, f.cfg.Authority, f.cfg.URLPrefix, key)
	return url, nil, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }
