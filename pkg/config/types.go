package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gettrapd/trapd/pkg/capture"
	"github.com/gettrapd/trapd/pkg/sink"
)

// Default ports for the two listeners.
const (
	// DefaultPort is the default capture listener port.
	DefaultPort = 4180
	// DefaultOpsPort is the default operational listener port.
	DefaultOpsPort = 4181
)

// Config is the top-level trapd configuration, loadable from a YAML or
// JSON file and overridable through environment variables and flags.
type Config struct {
	// Listen configures the capture listener that answers trapped requests.
	Listen ListenConfig `json:"listen,omitempty" yaml:"listen,omitempty"`
	// Ops configures the operational listener serving /health and /metrics.
	Ops OpsConfig `json:"ops,omitempty" yaml:"ops,omitempty"`
	// Capture selects which requests are recorded.
	Capture CaptureConfig `json:"capture,omitempty" yaml:"capture,omitempty"`
	// Sink configures where captured records are written.
	Sink *sink.Config `json:"sink,omitempty" yaml:"sink,omitempty"`
	// Logging configures the operational logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// PIDFile is the path the serve command writes its PID file to.
	// Empty means the per-user default (~/.trapd/trapd.pid).
	PIDFile string `json:"pidFile,omitempty" yaml:"pidFile,omitempty"`
}

// ListenConfig describes the capture listener.
type ListenConfig struct {
	// Host is the interface to bind. Empty binds all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// Port is the capture port (0 = pick a free port). Default: 4180.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
	// ReadTimeout is the HTTP read timeout in seconds. Default: 30.
	ReadTimeout int `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	// WriteTimeout is the HTTP write timeout in seconds. Default: 30.
	WriteTimeout int `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
}

// OpsConfig describes the operational listener. It is kept off the capture
// listener so the trap can record requests to any path, /health included.
type OpsConfig struct {
	// Enabled turns the operational listener on. Default: true.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Port is the operational port (0 = pick a free port). Default: 4181.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
}

// IsEnabled reports whether the operational listener should run.
func (o OpsConfig) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

// CaptureConfig selects which requests are recorded. Requests it excludes
// are still answered "OK"; they just never reach the sink.
type CaptureConfig struct {
	// Filter is an optional boolean expression over the record fields,
	// e.g. `method == "POST"` or `hasPrefix(uri, "/wp-")`. Empty captures
	// everything.
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`
	// IgnorePaths lists glob patterns for request paths that are never
	// captured, e.g. "/favicon.ico" or "/static/**".
	IgnorePaths []string `json:"ignorePaths,omitempty" yaml:"ignorePaths,omitempty"`
}

// LoggingConfig configures the operational logger.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	// Default: info.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format selects text or json log output. Default: text.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults: capture on 4180
// appending to capture.log, ops on 4181, text logging at info level.
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			Port:         DefaultPort,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Ops: OpsConfig{
			Port: DefaultOpsPort,
		},
		Sink: sink.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ListenAddr returns the capture listener address in host:port form.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Listen.Host, strconv.Itoa(c.Listen.Port))
}

// OpsAddr returns the operational listener address in host:port form.
// The ops listener shares the capture listener's host.
func (c *Config) OpsAddr() string {
	return net.JoinHostPort(c.Listen.Host, strconv.Itoa(c.Ops.Port))
}

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// validLogLevels are the accepted logging.level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats are the accepted logging.format values.
var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the configuration. Empty fields with documented defaults
// are not errors.
func (c *Config) Validate() error {
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return &ValidationError{
			Field:   "listen.port",
			Message: fmt.Sprintf("port must be between 0 and 65535, got %d", c.Listen.Port),
		}
	}
	if c.Listen.ReadTimeout < 0 {
		return &ValidationError{Field: "listen.readTimeout", Message: "readTimeout must be >= 0"}
	}
	if c.Listen.WriteTimeout < 0 {
		return &ValidationError{Field: "listen.writeTimeout", Message: "writeTimeout must be >= 0"}
	}

	if c.Ops.Port < 0 || c.Ops.Port > 65535 {
		return &ValidationError{
			Field:   "ops.port",
			Message: fmt.Sprintf("port must be between 0 and 65535, got %d", c.Ops.Port),
		}
	}
	if c.Ops.IsEnabled() && c.Ops.Port > 0 && c.Ops.Port == c.Listen.Port {
		return &ValidationError{
			Field:   "ops.port",
			Message: fmt.Sprintf("conflicts with listen.port (both are %d)", c.Ops.Port),
		}
	}

	if c.Capture.Filter != "" {
		if _, err := capture.CompileFilter(c.Capture.Filter); err != nil {
			return &ValidationError{
				Field:   "capture.filter",
				Message: fmt.Sprintf("invalid filter expression: %v", err),
			}
		}
	}
	for _, pattern := range c.Capture.IgnorePaths {
		if !doublestar.ValidatePattern(pattern) {
			return &ValidationError{
				Field:   "capture.ignorePaths",
				Message: fmt.Sprintf("invalid glob pattern %q", pattern),
			}
		}
	}

	if c.Logging.Level != "" && !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q, must be one of: debug, info, warn, error", c.Logging.Level),
		}
	}
	if c.Logging.Format != "" && !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q, must be one of: text, json", c.Logging.Format),
		}
	}

	if c.Sink != nil {
		if err := c.Sink.Validate(); err != nil {
			return err
		}
	}

	return nil
}
