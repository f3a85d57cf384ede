package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gettrapd/trapd/pkg/logging"
	"github.com/gettrapd/trapd/pkg/metrics"
)

// responseBody is the fixed acknowledgement written to every client,
// whatever the sink outcome.
const responseBody = "OK"

// Sink receives captured records. The sinks in pkg/sink satisfy this
// interface; tests may supply their own.
type Sink interface {
	// Write delivers one captured record to its destination.
	Write(rec *Record) error

	// Kind names the destination type ("file", "remote", ...) for use in
	// logs and metric labels.
	Kind() string
}

// Handler captures ambient request metadata and forwards it to a sink.
// It answers every request with "OK" regardless of the sink outcome, so a
// probing client learns nothing about what happens to its traffic.
type Handler struct {
	sink      Sink
	log       *slog.Logger
	filter    *vm.Program
	filterSrc string
	ignore    []string
}

// Option configures a Handler.
type Option func(*Handler) error

// WithLogger sets the logger used for sink and filter failures.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) error {
		if log != nil {
			h.log = log
		}
		return nil
	}
}

// WithFilter compiles an expression that decides which requests are
// captured. The expression sees the record fields (timestamp, remote_ip,
// user_agent, method, uri, headers) and must evaluate to a boolean.
// Requests it rejects are still answered "OK" but never reach the sink.
func WithFilter(expression string) Option {
	return func(h *Handler) error {
		if expression == "" {
			return nil
		}
		program, err := CompileFilter(expression)
		if err != nil {
			return fmt.Errorf("compile filter %q: %w", expression, err)
		}
		h.filter = program
		h.filterSrc = expression
		return nil
	}
}

// CompileFilter compiles a capture filter expression against the record
// fields. Config validation uses it to reject bad filters before a server
// is built.
func CompileFilter(expression string) (*vm.Program, error) {
	return expr.Compile(expression, expr.Env(filterEnv(&Record{Headers: map[string]string{}})))
}

// WithIgnorePaths sets glob patterns for request paths that are answered
// "OK" without being captured. Patterns support ** for multi-segment
// matching.
func WithIgnorePaths(patterns []string) Option {
	return func(h *Handler) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid ignore pattern %q", p)
			}
		}
		h.ignore = patterns
		return nil
	}
}

// NewHandler builds a Handler that emits captured records to sink.
func NewHandler(sink Sink, opts ...Option) (*Handler, error) {
	if sink == nil {
		return nil, errors.New("capture: sink is required")
	}
	h := &Handler{
		sink: sink,
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ServeHTTP captures the request and writes the fixed acknowledgement.
// The client sees the same response whether the record was written,
// filtered out, or lost to a sink failure.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.ignored(r.URL.Path) {
		rec := FromRequest(r)
		if h.keep(rec) {
			h.emit(rec)
		}
	}
	_, _ = w.Write([]byte(responseBody))
}

// ignored reports whether path matches any configured ignore pattern.
func (h *Handler) ignored(path string) bool {
	for _, pattern := range h.ignore {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// keep runs the capture filter against rec. Filter failures keep the
// record: a broken filter must not silently drop traffic.
func (h *Handler) keep(rec *Record) bool {
	if h.filter == nil {
		return true
	}
	result, err := expr.Run(h.filter, filterEnv(rec))
	if err != nil {
		h.log.Warn("capture filter failed", "filter", h.filterSrc, "error", err)
		return true
	}
	keep, ok := result.(bool)
	if !ok {
		h.log.Warn("capture filter returned non-boolean result", "filter", h.filterSrc, "result", result)
		return true
	}
	return keep
}

// emit hands rec to the sink. Write failures are logged and counted but
// never surfaced to the client.
func (h *Handler) emit(rec *Record) {
	outcome := "ok"
	if err := h.sink.Write(rec); err != nil {
		outcome = "error"
		h.log.Error("sink write failed", "sink", h.sink.Kind(), "error", err)
		metrics.RecordSinkError(h.sink.Kind())
	}
	metrics.RecordCapture(h.sink.Kind(), outcome)
}

// filterEnv exposes a record's fields to the filter expression.
func filterEnv(rec *Record) map[string]any {
	return map[string]any{
		"timestamp":  rec.Timestamp,
		"remote_ip":  rec.RemoteIP,
		"user_agent": rec.UserAgent,
		"method":     rec.Method,
		"uri":        rec.URI,
		"headers":    rec.Headers,
	}
}
