package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

func TestURLHeadReturnsContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "42")
	}))
	defer server.Close()

	backend := NewURL(URLConfig{FetchURL: server.URL}, server.Client())
	size, err := backend.Head(context.Background(), "sample.bam")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), size)
}

func TestURLHeadNotFoundMapsToTicketError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	backend := NewURL(URLConfig{FetchURL: server.URL}, server.Client())
	_, err := backend.Head(context.Background(), "missing.bam")
	te, ok := ticket.AsError(err)
	require.True(t, ok)
	assert.Equal(t, ticket.NotFound, te.Code)
}

func TestURLFilterHeadersRespectsAllowlist(t *testing.T) {
	backend := NewURL(URLConfig{ForwardAllow: map[string]bool{"Authorization": true}}, nil)
	out := backend.FilterHeaders(map[string][]string{
		"Authorization": {"Bearer abc"},
		"X-Other":       {"nope"},
	})
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc"}, out)
}

func TestURLMakeTicketPrefersResponseURL(t *testing.T) {
	backend := NewURL(URLConfig{FetchURL: "https://fetch.example.org", ResponseURL: "https://public.example.org"}, nil)
	url, headers, err := backend.MakeTicket("key", ourbgzf.ByteRange{Start: 0, End: 9})
	require.NoError(t, err)
	assert.Equal(t, "https://public.example.org/key", url)
	assert.Equal(t, "bytes=0-9", headers["Range"])
}
