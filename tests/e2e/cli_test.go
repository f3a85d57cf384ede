package e2e_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// buildBinary builds the trapd binary once for all testscript tests.
func buildBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		binaryPath = filepath.Join(os.TempDir(), "trapd")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/trapd")
		if out, err := buildCmd.CombinedOutput(); err != nil {
			buildErr = fmt.Errorf("%v\n%s", err, out)
		}
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return binaryPath
}

func TestCLIScripts(t *testing.T) {
	bin := buildBinary(t)

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			binDir := filepath.Dir(bin)
			env.Setenv("PATH", binDir+string(os.PathListSeparator)+env.Getenv("PATH"))
			env.Setenv("TRAPD_BIN", bin)
			// Fresh ports per script so parallel scripts never collide.
			env.Setenv("PORT", strconv.Itoa(getFreePort(t)))
			env.Setenv("OPS_PORT", strconv.Itoa(getFreePort(t)))
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"httpget": cmdHTTPGet,
		},
	})
}

// cmdHTTPGet implements the script command `httpget URL FILE`: GET the
// URL and write the response body to FILE. It fails on transport errors
// or a non-200 status, so `! httpget` asserts the endpoint is down.
func cmdHTTPGet(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 2 {
		ts.Fatalf("usage: httpget URL FILE")
	}

	resp, err := http.Get(args[0])
	if err != nil {
		if neg {
			return
		}
		ts.Fatalf("GET %s: %v", args[0], err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		if neg {
			return
		}
		ts.Fatalf("GET %s: status %d", args[0], resp.StatusCode)
	}
	if neg {
		ts.Fatalf("GET %s unexpectedly succeeded", args[0])
	}
	if err := os.WriteFile(ts.MkAbs(args[1]), body, 0644); err != nil {
		ts.Fatalf("write %s: %v", args[1], err)
	}
}

func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// TestMain acts as the main entrypoint. Testscript requires its own Main wrapper.
func TestMain(m *testing.M) {
	code := testscript.RunMain(m, map[string]func() int{
		// We could wire standard Go commands here if we wanted,
		// but we are relying on compiling the binary and adding it to PATH.
	})
	if binaryPath != "" {
		os.Remove(binaryPath)
	}
	os.Exit(code)
}
