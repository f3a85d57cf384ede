package sink

import (
	"errors"
	"sync"
	"testing"

	"github.com/gettrapd/trapd/pkg/capture"
)

// memorySink collects records for assertions and can be primed to fail.
type memorySink struct {
	mu       sync.Mutex
	recs     []*capture.Record
	writeErr error
	closeErr error
	closed   bool
}

func (m *memorySink) Write(rec *capture.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.closeErr
}

func (m *memorySink) Kind() string { return "memory" }

func (m *memorySink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func TestMultiSink_FanOut(t *testing.T) {
	t.Parallel()

	a := &memorySink{}
	b := &memorySink{}
	m := NewMultiSink(a, b)

	if err := m.Write(testRecord()); err != nil {
		t.Fatalf("fan-out write failed: %v", err)
	}

	if a.count() != 1 || b.count() != 1 {
		t.Errorf("expected both sinks to receive the record, got %d and %d", a.count(), b.count())
	}
}

func TestMultiSink_NilSinksFiltered(t *testing.T) {
	t.Parallel()

	m := NewMultiSink(nil, &memorySink{}, nil)

	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if err := m.Write(testRecord()); err != nil {
		t.Errorf("write through filtered sinks failed: %v", err)
	}
}

func TestMultiSink_ContinuesOnError(t *testing.T) {
	t.Parallel()

	failure := errors.New("disk full")
	failing := &memorySink{writeErr: failure}
	working := &memorySink{}

	m := NewMultiSink(failing, working)

	err := m.Write(testRecord())
	if err == nil {
		t.Fatal("expected joined error, got nil")
	}
	if !errors.Is(err, failure) {
		t.Errorf("joined error does not wrap the failure: %v", err)
	}
	if working.count() != 1 {
		t.Errorf("working sink skipped after failure, got %d records", working.count())
	}
}

func TestMultiSink_CloseAll(t *testing.T) {
	t.Parallel()

	closeFailure := errors.New("close failed")
	a := &memorySink{closeErr: closeFailure}
	b := &memorySink{}

	m := NewMultiSink(a, b)

	err := m.Close()
	if !errors.Is(err, closeFailure) {
		t.Errorf("expected close failure to surface, got: %v", err)
	}
	if !a.closed || !b.closed {
		t.Errorf("expected all sinks closed, got %v and %v", a.closed, b.closed)
	}
}
