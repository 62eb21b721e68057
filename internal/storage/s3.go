package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
	"github.com/ga4gh/htsget-ticket-server/internal/ticket"
)

// S3Config configures an S3 backend.
type S3Config struct {
	Bucket        string
	Endpoint      string
	PathStyle     bool
	PresignExpiry time.Duration
}

// S3 is the S3 storage backend of spec.md §4.E: head/get via the AWS SDK,
// tickets as presigned GET URLs with the Range embedded as a header the
// client is told to forward.
type S3 struct {
	cfg      S3Config
	client   *s3.Client
	presign  *s3.PresignClient
}

// NewS3 returns an S3 backend using client for API calls.
func NewS3(cfg S3Config, client *s3.Client) *S3 {
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}
	return &S3{cfg: cfg, client: client, presign: s3.NewPresignClient(client)}
}

// Head implements Storage.
func (s *S3) Head(ctx context.Context, key string) (uint64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.cfg.Bucket, Key: &key})
	if err != nil {
		return 0, mapS3Error("head object", err)
	}
	if out.ContentLength == nil {
		return 0, ticket.NewInternalError("head object", errors.New("missing content length"))
	}
	return uint64(*out.ContentLength), nil
}

// GetRange implements Storage.
func (s *S3) GetRange(ctx context.Context, key string, r ourbgzf.ByteRange) (io.ReadCloser, error) {
	rangeHeader := r.String()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.cfg.Bucket, Key: &key, Range: &rangeHeader})
	if err != nil {
		return nil, mapS3Error("get object", err)
	}
	return out.Body, nil
}

// MakeTicket implements Storage. It returns a presigned GET URL and a
// Range header for the client to send, following the forward-header
// model of spec.md §4.E (S3 presigned URLs do not embed Range).
func (s *S3) MakeTicket(key string, r ourbgzf.ByteRange) (string, map[string]string, error) {
	req, err := s.presign.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.PresignExpiry))
	if err != nil {
		return "", nil, mapS3Error("presigning", err)
	}
	return req.URL, map[string]string{"Range": r.String()}, nil
}

// downloadManager returns the concurrent range-download helper from
// aws-sdk-go-v2/feature/s3/manager. Nothing in this module calls it; the
// resolver reads index objects through GetRange.
func (s *S3) downloadManager() *manager.Downloader {
	return manager.NewDownloader(s.client)
}

func mapS3Error(context string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return ticket.NewNotFound(context, err)
		case "AccessDenied":
			return ticket.NewPermissionDenied(context, err)
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return ticket.NewNotFound(context, err)
		case http.StatusForbidden:
			return ticket.NewPermissionDenied(context, err)
		case http.StatusUnauthorized:
			return ticket.NewInvalidAuthentication(context, err)
		}
	}
	return ticket.NewInternalError(context, fmt.Errorf("%s: %v", context, err))
}
