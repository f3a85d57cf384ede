package sink

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gettrapd/trapd/pkg/capture"
)

// blockFooter closes every capture block.
const blockFooter = "--------------------------------------"

// FileSink appends each record as a delimited human-readable text block to
// a local file. The file is opened in append mode and never truncated or
// rotated; existing content is a stable prefix of the file forever.
type FileSink struct {
	file *os.File
	path string
	mu   sync.Mutex
}

// NewFileSink opens (or creates) the capture file at path for appending.
func NewFileSink(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("sink: failed to open capture file: %w", err)
	}

	return &FileSink{
		file: file,
		path: path,
	}, nil
}

// Write appends rec's text block to the capture file. The block lands in a
// single write call so that blocks from concurrent requests are never
// interleaved.
func (s *FileSink) Write(rec *capture.Record) error {
	block := FormatBlock(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return errors.New("sink: file sink is closed")
	}

	if _, err := s.file.WriteString(block); err != nil {
		return fmt.Errorf("sink: failed to append capture block: %w", err)
	}

	return nil
}

// Close flushes and closes the capture file. Further writes return an
// error.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file = nil
	return errors.Join(syncErr, closeErr)
}

// Kind returns "file".
func (s *FileSink) Kind() string {
	return KindFile
}

// Path returns the capture file path.
func (s *FileSink) Path() string {
	return s.path
}

// Ensure FileSink implements Sink.
var _ Sink = (*FileSink)(nil)

// FormatBlock renders rec as the delimited text block appended by FileSink:
//
//	----- 2026-08-25 10:30:00 -----
//	Remote IP: 203.0.113.5
//	User Agent: curl/8.0
//	Headers: map[User-Agent:curl/8.0]
//	Request Method: GET
//	--------------------------------------
//
// The header map renders in Go's map notation with sorted keys, so the
// block for a given record is deterministic.
func FormatBlock(rec *capture.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "----- %s -----\n", rec.Timestamp)
	fmt.Fprintf(&b, "Remote IP: %s\n", rec.RemoteIP)
	fmt.Fprintf(&b, "User Agent: %s\n", rec.UserAgent)
	fmt.Fprintf(&b, "Headers: %v\n", rec.Headers)
	fmt.Fprintf(&b, "Request Method: %s\n", rec.Method)
	b.WriteString(blockFooter)
	b.WriteByte('\n')
	return b.String()
}
