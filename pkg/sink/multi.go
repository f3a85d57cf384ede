package sink

import (
	"errors"

	"github.com/gettrapd/trapd/pkg/capture"
)

// MultiSink fans each record out to several sinks. The sink set is fixed
// at construction, so no locking is needed around it.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink over the given sinks. Nil sinks are
// dropped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}

	return &MultiSink{sinks: valid}
}

// Write delivers rec to every sink. All sinks receive the record even if
// some fail; failures are joined into one error.
func (m *MultiSink) Write(rec *capture.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, even if some fail to close.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Kind returns "multi".
func (m *MultiSink) Kind() string {
	return KindMulti
}

// Len returns the number of sinks behind this MultiSink.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Ensure MultiSink implements Sink.
var _ Sink = (*MultiSink)(nil)
