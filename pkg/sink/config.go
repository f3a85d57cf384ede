package sink

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gettrapd/trapd/pkg/capture"
	"github.com/gettrapd/trapd/pkg/logging"
)

// DefaultFile is the capture file path used when none is configured.
const DefaultFile = "capture.log"

// Config selects and parameterizes the sink a capture server emits to.
type Config struct {
	// Kind selects the sink: "file", "remote", or "stdout".
	// Default: "file".
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// File is the capture file path for the file sink.
	// Default: "capture.log" in the working directory.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// URL is the collection endpoint for the remote sink.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// TimeoutSeconds bounds each remote delivery attempt.
	// Default: 5.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`

	// Async detaches remote deliveries from request handling: each POST
	// runs on its own goroutine and failures are only logged. Has no
	// effect on the other sink kinds.
	Async bool `json:"async,omitempty" yaml:"async,omitempty"`

	// Extensions provides a generic configuration map for extension sinks
	// registered via Register.
	Extensions map[string]interface{} `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// DefaultConfig returns a Config appending to the default capture file.
func DefaultConfig() *Config {
	return &Config{
		Kind: KindFile,
		File: DefaultFile,
	}
}

// withDefaults returns a copy of c with empty fields filled in.
func (c *Config) withDefaults() Config {
	out := *c
	if out.Kind == "" {
		out.Kind = KindFile
	}
	if out.Kind == KindFile && out.File == "" {
		out.File = DefaultFile
	}
	return out
}

// Validate checks that the configuration is usable. Empty fields that have
// documented defaults are not errors.
func (c *Config) Validate() error {
	cfg := c.withDefaults()

	switch cfg.Kind {
	case KindFile:
		// File defaulted above
	case KindRemote:
		if cfg.URL == "" {
			return &ConfigError{Field: "url", Message: "collection endpoint is required"}
		}
		u, err := url.Parse(cfg.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return &ConfigError{Field: "url", Message: fmt.Sprintf("%q is not an http or https URL", cfg.URL)}
		}
	case KindStdout:
		// No parameters
	default:
		return &ConfigError{Field: "kind", Message: fmt.Sprintf("unknown sink kind %q, must be one of: file, remote, stdout", cfg.Kind)}
	}

	if cfg.TimeoutSeconds < 0 {
		return &ConfigError{Field: "timeoutSeconds", Message: "must not be negative"}
	}

	return nil
}

// ConfigError represents a sink configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "sink config: " + e.Field + ": " + e.Message
}

// BuildOption configures sink construction.
type BuildOption func(*buildOptions)

type buildOptions struct {
	log *slog.Logger
}

// WithLogger routes asynchronous delivery failures to log. Synchronous
// sinks report errors to the caller and do not use it.
func WithLogger(log *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// New builds the sink described by cfg. A nil cfg yields the default file
// sink. If extension sinks are configured alongside the primary one, all
// outputs are fanned out through a MultiSink.
func New(cfg *Config, opts ...BuildOption) (Sink, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	build := buildOptions{log: logging.Nop()}
	for _, opt := range opts {
		opt(&build)
	}

	resolved := cfg.withDefaults()

	var sinks []Sink

	switch resolved.Kind {
	case KindFile:
		fs, err := NewFileSink(resolved.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	case KindRemote:
		var remoteOpts []RemoteOption
		if resolved.TimeoutSeconds > 0 {
			remoteOpts = append(remoteOpts, WithRemoteTimeout(time.Duration(resolved.TimeoutSeconds)*time.Second))
		}
		var remote Sink = NewRemoteSink(resolved.URL, remoteOpts...)
		if resolved.Async {
			remote = NewAsyncSink(remote, WithAsyncLogger(build.log))
		}
		sinks = append(sinks, remote)
	case KindStdout:
		sinks = append(sinks, NewStdoutSink())
	}

	for name, extConfig := range resolved.Extensions {
		factory, ok := Registered(name)
		if !ok {
			continue
		}
		extMap, ok := extConfig.(map[string]interface{})
		if !ok {
			continue
		}
		ext, err := factory(extMap)
		if err != nil {
			// Close already created sinks on error
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, ext)
	}

	// If only one sink, return it directly
	if len(sinks) == 1 {
		return sinks[0], nil
	}

	return NewMultiSink(sinks...), nil
}

// Ensure every built sink can serve a capture handler.
var _ capture.Sink = Sink(nil)
