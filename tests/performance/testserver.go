package performance

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// TestServer is a trapd server started via the CLI binary, so performance
// numbers reflect the process users actually run.
type TestServer struct {
	CapturePort int
	OpsPort     int

	cmd     *exec.Cmd
	workDir string
	logPath string
}

var (
	buildMu    sync.Mutex
	binaryPath string
)

// ensureBinary builds the trapd binary once per test run.
func ensureBinary() (string, error) {
	buildMu.Lock()
	defer buildMu.Unlock()

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	// Navigate to project root (from tests/performance)
	projectRoot := filepath.Join(wd, "..", "..")
	binaryPath = filepath.Join(projectRoot, "trapd_bench")

	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath, nil
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/trapd")
	cmd.Dir = projectRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("failed to build CLI: %w\n%s", err, out)
	}

	return binaryPath, nil
}

// StartTestServer starts a trapd server via the CLI and returns once the
// ops listener answers /health. Each server gets its own working
// directory for the capture and PID files.
func StartTestServer(capturePort, opsPort int) (*TestServer, error) {
	return startTestServerWithLog(capturePort, opsPort, "")
}

// startTestServerWithLog starts a server appending to logPath; an empty
// path uses a fresh capture.log in the server's working directory.
func startTestServerWithLog(capturePort, opsPort int, logPath string) (*TestServer, error) {
	binary, err := ensureBinary()
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "trapd-perf-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp work dir: %w", err)
	}

	ts := &TestServer{
		CapturePort: capturePort,
		OpsPort:     opsPort,
		workDir:     workDir,
		logPath:     logPath,
	}
	if ts.logPath == "" {
		ts.logPath = filepath.Join(workDir, "capture.log")
	}

	ts.cmd = exec.Command(binary, "serve",
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", capturePort),
		"--ops-port", fmt.Sprintf("%d", opsPort),
		"--file", ts.logPath,
		"--pid-file", filepath.Join(workDir, "trapd.pid"),
	)
	ts.cmd.Dir = workDir

	if err := ts.cmd.Start(); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("failed to start trapd: %w", err)
	}

	if err := ts.waitReady(5 * time.Second); err != nil {
		ts.Stop()
		return nil, err
	}

	return ts, nil
}

// waitReady polls the health endpoint until the server answers.
func (ts *TestServer) waitReady(timeout time.Duration) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/health", ts.OpsPort)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("trapd on port %d never became healthy", ts.OpsPort)
}

// Stop terminates the server process and removes its working directory.
func (ts *TestServer) Stop() {
	if ts.cmd != nil && ts.cmd.Process != nil {
		_ = ts.cmd.Process.Signal(syscall.SIGTERM)

		done := make(chan struct{})
		go func() {
			_, _ = ts.cmd.Process.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = ts.cmd.Process.Kill()
		}
	}
	if ts.workDir != "" {
		os.RemoveAll(ts.workDir)
	}
}

// CaptureURL builds a URL on the capture listener.
func (ts *TestServer) CaptureURL(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", ts.CapturePort, path)
}

// CaptureLogPath is where this server appends capture blocks.
func (ts *TestServer) CaptureLogPath() string {
	return ts.logPath
}
