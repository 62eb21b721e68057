package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

// GCSConfig configures a GCS backend: the bucket an id resolves into,
// plus the signing identity used to mint presigned ticket URLs.
type GCSConfig struct {
	Bucket         string
	SignBy         string
	PrivateKeyPEM  []byte
	SignExpiryMins int
}

// GCS is the fourth storage backend added by this expansion (SPEC_FULL.md
// §9), grounded in the teacher's entire reason for existing: serving
// htsget directly off Google Cloud Storage.
type GCS struct {
	cfg    GCSConfig
	client *storage.Client
}

// NewGCS returns a GCS backend using client for API calls.
func NewGCS(cfg GCSConfig, client *storage.Client) *GCS {
	if cfg.SignExpiryMins == 0 {
		cfg.SignExpiryMins = 15
	}
	return &GCS{cfg: cfg, client: client}
}

// Head implements Storage.
func (g *GCS) Head(ctx context.Context, key string) (uint64, error) {
	attrs, err := g.client.Bucket(g.cfg.Bucket).Object(key).Attrs(ctx)
	if err != nil {
		return 0, mapGCSError("reading attributes", err)
	}
	return uint64(attrs.Size), nil
}

// GetRange implements Storage.
func (g *GCS) GetRange(ctx context.Context, key string, r ourbgzf.ByteRange) (io.ReadCloser, error) {
	length := int64(r.End) - int64(r.Start) + 1
	reader, err := g.client.Bucket(g.cfg.Bucket).Object(key).NewRangeReader(ctx, int64(r.Start), length)
	if err != nil {
		return nil, mapGCSError("opening range reader", err)
	}
	return reader, nil
}

// MakeTicket implements Storage, returning a presigned GET URL for key
// with the requested Range sent as a header by the client.
func (g *GCS) MakeTicket(key string, r ourbgzf.ByteRange) (string, map[string]string, error) {
	url, err := storage.SignedURL(g.cfg.Bucket, key, &storage.SignedURLOptions{
		GoogleAccessID: g.cfg.SignBy,
		PrivateKey:     g.cfg.PrivateKeyPEM,
		Method:         http.MethodGet,
		Expires:        signedURLExpiry(g.cfg.SignExpiryMins),
	})
	if err != nil {
		return "", nil, ticket.NewInternalError("signing URL", err)
	}
	return url, map[string]string{"Range": r.String()}, nil
}

func signedURLExpiry(minutes int) time.Time {
	return time.Now().Add(time.Duration(minutes) * time.Minute)
}

func mapGCSError(context string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ticket.NewNotFound(context, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return ticket.NewInvalidAuthentication(context, err)
		case http.StatusForbidden:
			return ticket.NewPermissionDenied(context, err)
		case http.StatusNotFound:
			return ticket.NewNotFound(context, err)
		}
	}
	return ticket.NewInternalError(context, fmt.Errorf("%s: %v", context, err))
}
