package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gettrapd/trapd/pkg/config"
	"github.com/gettrapd/trapd/pkg/sink"
)

func TestRunInit_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "trapd.yaml")

	if err := runInit(outputPath, "", false, false); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	// Read and parse the config
	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	// Verify defaults
	if cfg.Listen.Port != 4180 {
		t.Errorf("expected capture port 4180, got %d", cfg.Listen.Port)
	}
	if cfg.Ops.Port != 4181 {
		t.Errorf("expected ops port 4181, got %d", cfg.Ops.Port)
	}
	if cfg.Sink == nil || cfg.Sink.Kind != sink.KindFile {
		t.Errorf("expected file sink, got %+v", cfg.Sink)
	}
	if len(cfg.Capture.IgnorePaths) != 1 || cfg.Capture.IgnorePaths[0] != "/favicon.ico" {
		t.Errorf("expected ignorePaths [/favicon.ico], got %v", cfg.Capture.IgnorePaths)
	}

	// The starter should carry explanatory comments
	if !strings.Contains(string(data), "# trapd.yaml") {
		t.Error("generated YAML is missing the header comment")
	}
}

func TestRunInit_GeneratedConfigValidates(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "trapd.yaml")

	if err := runInit(outputPath, "", false, false); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	// The generated file must load through the same path serve uses
	if _, err := config.LoadFromFile(outputPath); err != nil {
		t.Errorf("generated config does not validate: %v", err)
	}
}

func TestRunInit_JSONInferredFromExtension(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "trapd.json")

	if err := runInit(outputPath, "", false, false); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	// Check it looks like JSON (starts with {)
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		t.Error("output doesn't look like JSON")
	}

	if _, err := config.LoadFromFile(outputPath); err != nil {
		t.Errorf("generated JSON config does not validate: %v", err)
	}
}

func TestRunInit_ExplicitFormatWins(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "trapd.conf")

	if err := runInit(outputPath, "json", false, false); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		t.Error("expected JSON output for explicit --format json")
	}
}

func TestRunInit_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "trapd.yaml")

	err := runInit(outputPath, "toml", false, false)
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("expected 'invalid format' error, got: %v", err)
	}
}

func TestRunInit_FileExists(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "trapd.yaml")

	// Create existing file
	if err := os.WriteFile(outputPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("failed to create existing file: %v", err)
	}

	err := runInit(outputPath, "", false, false)
	if err == nil {
		t.Fatal("expected error when file exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected 'already exists' error, got: %v", err)
	}
}

func TestRunInit_ForceOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "trapd.yaml")

	// Create existing file
	if err := os.WriteFile(outputPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("failed to create existing file: %v", err)
	}

	if err := runInit(outputPath, "", true, false); err != nil {
		t.Fatalf("runInit with --force failed: %v", err)
	}

	// Verify file was overwritten
	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if string(data) == "existing" {
		t.Error("file was not overwritten")
	}
}

func TestStarterConfig(t *testing.T) {
	cfg := starterConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("starter config does not validate: %v", err)
	}
	if cfg.Listen.Port != 4180 {
		t.Errorf("expected port 4180, got %d", cfg.Listen.Port)
	}
	if len(cfg.Capture.IgnorePaths) == 0 {
		t.Error("starter config should ignore at least /favicon.ico")
	}
}

func TestStarterYAMLMatchesStarterConfig(t *testing.T) {
	// The canned YAML and the structured starter must agree so JSON
	// output and the printed next steps stay truthful.
	var fromYAML config.Config
	if err := yaml.Unmarshal([]byte(starterYAML), &fromYAML); err != nil {
		t.Fatalf("starterYAML does not parse: %v", err)
	}

	cfg := starterConfig()
	if fromYAML.Listen.Port != cfg.Listen.Port {
		t.Errorf("listen port mismatch: YAML %d, struct %d", fromYAML.Listen.Port, cfg.Listen.Port)
	}
	if fromYAML.Ops.Port != cfg.Ops.Port {
		t.Errorf("ops port mismatch: YAML %d, struct %d", fromYAML.Ops.Port, cfg.Ops.Port)
	}
	if fromYAML.Sink == nil || cfg.Sink == nil || fromYAML.Sink.Kind != cfg.Sink.Kind {
		t.Errorf("sink kind mismatch: YAML %+v, struct %+v", fromYAML.Sink, cfg.Sink)
	}
}
