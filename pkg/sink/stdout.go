package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gettrapd/trapd/pkg/capture"
)

// StdoutSink writes records as JSON lines to stdout. Useful for
// containerized deployments where captures are collected from stdout.
type StdoutSink struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewStdoutSink creates a new StdoutSink.
func NewStdoutSink() *StdoutSink {
	return &StdoutSink{
		encoder: json.NewEncoder(os.Stdout),
	}
}

// Write emits rec to stdout as a single JSON line.
func (s *StdoutSink) Write(rec *capture.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.encoder.Encode(rec); err != nil {
		return fmt.Errorf("sink: failed to encode record: %w", err)
	}

	return nil
}

// Close is a no-op for the stdout sink.
func (s *StdoutSink) Close() error {
	return nil
}

// Kind returns "stdout".
func (s *StdoutSink) Kind() string {
	return KindStdout
}

// Ensure StdoutSink implements Sink.
var _ Sink = (*StdoutSink)(nil)
