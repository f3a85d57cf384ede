package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gettrapd/trapd/pkg/capture"
)

// DefaultTimeout bounds each remote delivery attempt. The original
// behavior had no explicit bound; this margin exists only to keep a hung
// endpoint from pinning handler goroutines indefinitely.
const DefaultTimeout = 5 * time.Second

// RemoteSink forwards each record to a collection endpoint as a JSON POST.
// Delivery is fire-and-forget: the response body is discarded and nothing
// is retried or queued. Only transport-level failure surfaces as an error.
type RemoteSink struct {
	url    string
	client *http.Client
}

// RemoteOption configures a RemoteSink.
type RemoteOption func(*RemoteSink)

// WithRemoteTimeout overrides the delivery timeout.
func WithRemoteTimeout(d time.Duration) RemoteOption {
	return func(s *RemoteSink) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithRemoteClient supplies a custom HTTP client.
func WithRemoteClient(client *http.Client) RemoteOption {
	return func(s *RemoteSink) {
		if client != nil {
			s.client = client
		}
	}
}

// NewRemoteSink creates a RemoteSink posting records to url.
func NewRemoteSink(url string, opts ...RemoteOption) *RemoteSink {
	s := &RemoteSink{
		url:    url,
		client: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Write serializes rec and POSTs it to the collection endpoint with
// Content-Type application/json. The endpoint's response, including its
// status code, is deliberately ignored.
func (s *RemoteSink) Write(rec *capture.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: failed to encode record: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink: failed to create delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink: failed to deliver record: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// Close releases idle connections held by the delivery client.
func (s *RemoteSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Kind returns "remote".
func (s *RemoteSink) Kind() string {
	return KindRemote
}

// URL returns the collection endpoint.
func (s *RemoteSink) URL() string {
	return s.url
}

// Ensure RemoteSink implements Sink.
var _ Sink = (*RemoteSink)(nil)
