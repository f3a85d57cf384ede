package sink

import "github.com/gettrapd/trapd/pkg/capture"

// Sink kinds understood by New. Extension kinds come from Register.
const (
	KindFile   = "file"
	KindRemote = "remote"
	KindStdout = "stdout"
	KindMulti  = "multi"
)

// Sink is a destination for captured records.
type Sink interface {
	// Write delivers one record. Implementations must be safe for
	// concurrent use.
	Write(rec *capture.Record) error

	// Close releases any resources held by the sink.
	Close() error

	// Kind names the destination type for logs and metric labels.
	Kind() string
}

// Kinds lists the built-in sink kinds accepted in configuration.
func Kinds() []string {
	return []string{KindFile, KindRemote, KindStdout}
}

// NopSink is a Sink that discards all records. Use it to run a trap that
// acknowledges requests without recording them.
type NopSink struct{}

// Write discards the record. Always returns nil.
func (s *NopSink) Write(_ *capture.Record) error {
	return nil
}

// Close is a no-op. Always returns nil.
func (s *NopSink) Close() error {
	return nil
}

// Kind returns "nop".
func (s *NopSink) Kind() string {
	return "nop"
}

// Ensure NopSink implements Sink.
var _ Sink = (*NopSink)(nil)
