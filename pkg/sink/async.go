package sink

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gettrapd/trapd/pkg/capture"
	"github.com/gettrapd/trapd/pkg/logging"
	"github.com/gettrapd/trapd/pkg/metrics"
)

// AsyncSink dispatches each write to the wrapped sink in its own
// goroutine, so the caller is never delayed by a slow destination. There
// is no queue and no retry: a delivery failure is logged and counted, and
// the record is gone. Close waits for in-flight deliveries to finish.
type AsyncSink struct {
	inner Sink
	log   *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// AsyncOption configures an AsyncSink.
type AsyncOption func(*AsyncSink)

// WithAsyncLogger sets the logger delivery failures are reported to.
func WithAsyncLogger(log *slog.Logger) AsyncOption {
	return func(s *AsyncSink) {
		if log != nil {
			s.log = log
		}
	}
}

// NewAsyncSink wraps inner so that writes return immediately.
func NewAsyncSink(inner Sink, opts ...AsyncOption) *AsyncSink {
	s := &AsyncSink{
		inner: inner,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write hands rec to the wrapped sink on a fresh goroutine and returns
// nil immediately. Delivery failures never reach the caller; they are
// logged and show up in the sink error metrics.
func (s *AsyncSink) Write(rec *capture.Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("sink: async sink is closed")
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := s.inner.Write(rec); err != nil {
			s.log.Error("async delivery failed", "sink", s.inner.Kind(), "error", err)
			metrics.RecordSinkError(s.inner.Kind())
		}
	}()

	return nil
}

// Close waits for in-flight deliveries, then closes the wrapped sink.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	return s.inner.Close()
}

// Kind returns the wrapped sink's kind; the wrapper is invisible in logs
// and metric labels.
func (s *AsyncSink) Kind() string {
	return s.inner.Kind()
}

// Ensure AsyncSink implements Sink.
var _ Sink = (*AsyncSink)(nil)
