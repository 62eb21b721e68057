// Package analytics implements component K: optional, anonymous,
// fire-and-forget usage telemetry. Only request shape is recorded —
// endpoint, format and error class — never an id, region or credential.
package analytics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

const (
	defaultEndpoint  = "https://www.google-analytics.com/"
	defaultBatchSize = 20
)

// Hit is a single analytics event.
type Hit map[string]string

// Event builds a typed Hit. label may be empty and value nil; category and
// action are required. Callers in this package never pass an id, region
// or header value as a label.
func Event(category, action, label string, value *int64) Hit {
	hit := Hit{"t": "event", "ec": category, "ea": action}
	if label != "" {
		hit["el"] = label
	}
	if value != nil {
		hit["ev"] = strconv.FormatInt(*value, 10)
	}
	return hit
}

// Tracker sends batches of hits to a telemetry backend. It is an
// interface, rather than a concrete measurement-protocol client, so the
// wire format can be swapped without touching call sites.
type Tracker interface {
	Send(hits []Hit) error
}

// Disabled is a Tracker that discards every hit; the default when
// telemetry is not configured.
type Disabled struct{}

// Send implements Tracker.
func (Disabled) Send([]Hit) error { return nil }

// Client sends hits to the Google Analytics Measurement Protocol
// endpoint, batched defaultBatchSize at a time.
type Client struct {
	propertyID string
	clientID   string
	endpoint   string
	batchSize  int
	http       *http.Client
}

// NewClient returns a Client identified by propertyID, with a fresh
// random anonymous client id.
func NewClient(propertyID string) *Client {
	return &Client{
		propertyID: propertyID,
		clientID:   uuid.NewString(),
		endpoint:   defaultEndpoint,
		batchSize:  defaultBatchSize,
		http:       http.DefaultClient,
	}
}

// Send implements Tracker.
func (c *Client) Send(hits []Hit) error {
	for i := 0; i < len(hits); i += c.batchSize {
		end := i + c.batchSize
		if end > len(hits) {
			end = len(hits)
		}
		if err := c.upload(hits[i:end]); err != nil {
			return fmt.Errorf("uploading hits: %v", err)
		}
	}
	return nil
}

func (c *Client) upload(hits []Hit) error {
	var body bytes.Buffer
	for _, hit := range hits {
		payload := url.Values{
			"v":   []string{"1"},
			"tid": []string{c.propertyID},
			"cid": []string{c.clientID},
		}
		for k, v := range hit {
			payload.Add(k, v)
		}
		body.WriteString(payload.Encode())
		body.WriteByte('\n')
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint+"batch", &body)
	if err != nil {
		return fmt.Errorf("creating request: %v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status: %v", resp.Status)
	}
	return nil
}

type contextKey int

const hitsKey contextKey = 1

// WithBuffer returns a context that accumulates hits recorded by
// TrackFromContext until Flush is called.
func WithBuffer(ctx context.Context) context.Context {
	var hits []Hit
	return context.WithValue(ctx, hitsKey, &hits)
}

// TrackFromContext records hit against the buffer installed by
// WithBuffer, or discards it if the context carries no buffer.
func TrackFromContext(ctx context.Context, hit Hit) {
	if hits, ok := ctx.Value(hitsKey).(*[]Hit); ok {
		*hits = append(*hits, hit)
	}
}

// Flush sends every hit accumulated on ctx to tracker.
func Flush(ctx context.Context, tracker Tracker) error {
	hits, ok := ctx.Value(hitsKey).(*[]Hit)
	if !ok || len(*hits) == 0 {
		return nil
	}
	return tracker.Send(*hits)
}
