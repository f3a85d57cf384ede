package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestRunValidate_ValidConfig(t *testing.T) {
	path := writeTempConfig(t, "trapd.yaml", `
listen:
  port: 4180
sink:
  kind: file
  file: capture.log
`)

	var err error
	out := captureStdout(t, func() {
		err = runValidate(path, false)
	})

	if err != nil {
		t.Fatalf("runValidate failed: %v", err)
	}
	if !strings.Contains(out, "Configuration is valid.") {
		t.Errorf("expected validity message, got: %q", out)
	}
}

func TestRunValidate_Verbose(t *testing.T) {
	path := writeTempConfig(t, "trapd.yaml", `
listen:
  host: 127.0.0.1
  port: 4180
capture:
  filter: 'method == "POST"'
  ignorePaths:
    - /favicon.ico
sink:
  kind: remote
  url: https://collector.example.com/ingest
`)

	var err error
	out := captureStdout(t, func() {
		err = runValidate(path, true)
	})

	if err != nil {
		t.Fatalf("runValidate failed: %v", err)
	}
	if !strings.Contains(out, "Configuration Summary") {
		t.Errorf("expected summary header, got: %q", out)
	}
	if !strings.Contains(out, "Capture listener: 127.0.0.1:4180") {
		t.Errorf("expected capture listener line, got: %q", out)
	}
	if !strings.Contains(out, "https://collector.example.com/ingest") {
		t.Errorf("expected sink URL in summary, got: %q", out)
	}
	if !strings.Contains(out, "Capture filter:") {
		t.Errorf("expected filter line, got: %q", out)
	}
}

func TestRunValidate_InvalidSinkKind(t *testing.T) {
	path := writeTempConfig(t, "trapd.yaml", `
sink:
  kind: carrier-pigeon
`)

	err := runValidate(path, false)
	if err == nil {
		t.Fatal("expected error for unknown sink kind")
	}
	if !strings.Contains(err.Error(), "kind") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunValidate_PortOutOfRange(t *testing.T) {
	path := writeTempConfig(t, "trapd.yaml", `
listen:
  port: 99999
`)

	err := runValidate(path, false)
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	if !strings.Contains(err.Error(), "between 0 and 65535") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	err := runValidate(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunValidate_NoDiscovery(t *testing.T) {
	clearTrapdEnv(t)
	inEmptyDir(t)

	err := runValidate("", false)
	if err == nil {
		t.Fatal("expected error when no config can be discovered")
	}
	if !strings.Contains(err.Error(), "no config file found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunValidate_DiscoversConfig(t *testing.T) {
	clearTrapdEnv(t)
	inEmptyDir(t)

	if err := os.WriteFile("trapd.yaml", []byte("listen:\n  port: 4180\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var err error
	out := captureStdout(t, func() {
		err = runValidate("", false)
	})

	if err != nil {
		t.Fatalf("runValidate failed to use discovered config: %v", err)
	}
	if !strings.Contains(out, "Configuration is valid.") {
		t.Errorf("expected validity message, got: %q", out)
	}
}
