package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

// URLConfig configures a URL backend: a remote HTTP origin that proxies
// files, with the client ticket pointing either back at that origin or at
// a separately configured response URL.
type URLConfig struct {
	FetchURL     string
	ResponseURL  string
	ForwardAllow map[string]bool
	ForwardDeny  map[string]bool
}

// URL is the URL storage backend of spec.md §4.E.
type URL struct {
	cfg    URLConfig
	client *http.Client
}

// NewURL returns a URL backend. client's Transport carries the caller's
// TLS configuration and root-cert store (spec.md §4.E).
func NewURL(cfg URLConfig, client *http.Client) *URL {
	if client == nil {
		client = http.DefaultClient
	}
	return &URL{cfg: cfg, client: client}
}

func (u *URL) origin() string {
	if u.cfg.ResponseURL != "" {
		return u.cfg.ResponseURL
	}
	return u.cfg.FetchURL
}

// Head implements Storage.
func (u *URL) Head(ctx context.Context, key string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, joinURL(u.cfg.FetchURL, key), nil)
	if err != nil {
		return 0, ticket.NewInternalError("building HEAD request", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return 0, ticket.NewInternalError("performing HEAD request", err)
	}
	defer resp.Body.Close()
	if err := mapHTTPStatus("HEAD", resp.StatusCode); err != nil {
		return 0, err
	}
	return uint64(resp.ContentLength), nil
}

// GetRange implements Storage.
func (u *URL) GetRange(ctx context.Context, key string, r ourbgzf.ByteRange) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(u.cfg.FetchURL, key), nil)
	if err != nil {
		return nil, ticket.NewInternalError("building GET request", err)
	}
	req.Header.Set("Range", r.String())
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, ticket.NewInternalError("performing GET request", err)
	}
	if err := mapHTTPStatus("GET", resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// MakeTicket implements Storage. The ticket is the object's URL under the
// configured origin with a Range header only; no client headers are
// forwarded, and FilterHeaders is not applied here.
func (u *URL) MakeTicket(key string, r ourbgzf.ByteRange) (string, map[string]string, error) {
	return joinURL(u.origin(), key), map[string]string{"Range": r.String()}, nil
}

// FilterHeaders applies the backend's allowlist/denylist to a set of
// client-supplied headers, returning only those permitted to forward.
func (u *URL) FilterHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string)
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		if u.cfg.ForwardDeny[name] {
			continue
		}
		if u.cfg.ForwardAllow != nil && !u.cfg.ForwardAllow[name] {
			continue
		}
		out[name] = values[0]
	}
	return out
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

func mapHTTPStatus(context string, status int) error {
	switch status {
	case http.StatusOK, http.StatusPartialContent:
		return nil
	case http.StatusNotFound:
		return ticket.NewNotFound(context, fmt.Errorf("status %d", status))
	case http.StatusUnauthorized:
		return ticket.NewInvalidAuthentication(context, fmt.Errorf("status %d", status))
	case http.StatusForbidden:
		return ticket.NewPermissionDenied(context, fmt.Errorf("status %d", status))
	default:
		return ticket.NewInternalError(context, fmt.Errorf("status %d", status))
	}
}
