package cliconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gettrapd/trapd/pkg/config"
	"github.com/gettrapd/trapd/pkg/sink"
)

// Environment variable names
const (
	EnvHost        = "TRAPD_HOST"
	EnvPort        = "TRAPD_PORT"
	EnvOpsPort     = "TRAPD_OPS_PORT"
	EnvOpsEnabled  = "TRAPD_OPS_ENABLED"
	EnvOpsURL      = "TRAPD_OPS_URL"
	EnvConfig      = "TRAPD_CONFIG"
	EnvCaptureFile = "TRAPD_CAPTURE_FILE"
	EnvRemoteURL   = "TRAPD_REMOTE_URL"
	EnvLogLevel    = "TRAPD_LOG_LEVEL"
	EnvLogFormat   = "TRAPD_LOG_FORMAT"
	EnvPIDFile     = "TRAPD_PID_FILE"
)

// Source labels recorded for each resolved setting.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// ApplyEnv overlays TRAPD_* environment variables onto cfg. It only sets
// values that are present in the environment, recording each one in
// sources. Values that fail to parse are ignored.
func ApplyEnv(cfg *config.Config, sources map[string]string) {
	if sources == nil {
		sources = make(map[string]string)
	}

	// TRAPD_HOST
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Listen.Host = v
		sources["listen.host"] = SourceEnv
	}

	// TRAPD_PORT
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Listen.Port = port
			sources["listen.port"] = SourceEnv
		}
	}

	// TRAPD_OPS_PORT
	if v := os.Getenv(EnvOpsPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Ops.Port = port
			sources["ops.port"] = SourceEnv
		}
	}

	// TRAPD_OPS_ENABLED
	if v := os.Getenv(EnvOpsEnabled); v != "" {
		enabled := v == "true" || v == "1" || v == "yes"
		cfg.Ops.Enabled = &enabled
		sources["ops.enabled"] = SourceEnv
	}

	// TRAPD_CAPTURE_FILE switches the sink to the file kind.
	if v := os.Getenv(EnvCaptureFile); v != "" {
		ensureSink(cfg)
		cfg.Sink.Kind = sink.KindFile
		cfg.Sink.File = v
		sources["sink.file"] = SourceEnv
	}

	// TRAPD_REMOTE_URL switches the sink to the remote kind.
	if v := os.Getenv(EnvRemoteURL); v != "" {
		ensureSink(cfg)
		cfg.Sink.Kind = sink.KindRemote
		cfg.Sink.URL = v
		sources["sink.url"] = SourceEnv
	}

	// TRAPD_LOG_LEVEL
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
		sources["logging.level"] = SourceEnv
	}

	// TRAPD_LOG_FORMAT
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
		sources["logging.format"] = SourceEnv
	}

	// TRAPD_PID_FILE
	if v := os.Getenv(EnvPIDFile); v != "" {
		cfg.PIDFile = v
		sources["pidFile"] = SourceEnv
	}
}

func ensureSink(cfg *config.Config) {
	if cfg.Sink == nil {
		cfg.Sink = sink.DefaultConfig()
	}
}

// ConfigFileFromEnv returns the config file path from the environment.
// Returns empty string if not set.
func ConfigFileFromEnv() string {
	return os.Getenv(EnvConfig)
}

// DefaultOpsURL returns the ops base URL for a local server on port.
func DefaultOpsURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// ResolveOpsURL resolves the ops base URL used by client commands such as
// status. Priority: explicit flag > TRAPD_OPS_URL > default.
func ResolveOpsURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(EnvOpsURL); v != "" {
		return v
	}
	return DefaultOpsURL(config.DefaultOpsPort)
}
