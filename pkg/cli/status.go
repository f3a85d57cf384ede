package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gettrapd/trapd/internal/cliconfig"
	"github.com/gettrapd/trapd/pkg/cli/internal/output"
	"github.com/spf13/cobra"
)

// StatusOutput represents the JSON output format for status.
type StatusOutput struct {
	Version   string          `json:"version"`
	Commit    string          `json:"commit,omitempty"`
	Uptime    string          `json:"uptime"`
	Listeners StatusListeners `json:"listeners"`
	Stats     *StatusStats    `json:"stats,omitempty"`
	Running   bool            `json:"running"`
	PID       int             `json:"pid,omitempty"`
}

// StatusListeners contains status for each listener.
type StatusListeners struct {
	Capture StatusListenerInfo `json:"capture"`
	Ops     StatusListenerInfo `json:"ops"`
}

// StatusListenerInfo contains detailed status for a listener.
type StatusListenerInfo struct {
	Status string `json:"status"` // "running", "stopped", "unknown"
	URL    string `json:"url,omitempty"`
}

// StatusStats contains live capture statistics.
type StatusStats struct {
	Sink       string `json:"sink,omitempty"`
	Captures   int    `json:"captures"`
	SinkErrors int    `json:"sinkErrors"`
}

var statusPIDFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the running trapd server",
	Example: `  # Check server status
  trapd status

  # Output as JSON
  trapd status --json

  # Use custom PID file
  trapd status --pid-file /tmp/trapd.pid`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(statusPIDFile)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusPIDFile, "pid-file", "", "Path to PID file (default: ~/.trapd/trapd.pid)")
}

func runStatus(pidFile string) error {
	pidPath := pidFile
	if pidPath == "" {
		pidPath = DefaultPIDPath()
	}

	info, err := ReadPIDFile(pidPath)
	if err != nil {
		// PID file doesn't exist or is invalid
		return printNotRunning()
	}

	if !info.IsRunning() {
		// Stale PID file - process is not running
		return printNotRunning()
	}

	status := buildStatusOutput(info)

	if url := resolveStatusOpsURL(info); url != "" {
		status.Stats = fetchLiveStats(url)
	}

	if jsonOutput {
		return output.JSON(status)
	}
	return printHumanStatus(status)
}

// printNotRunning prints the "not running" status.
func printNotRunning() error {
	if jsonOutput {
		return output.JSON(StatusOutput{
			Running: false,
			Listeners: StatusListeners{
				Capture: StatusListenerInfo{Status: "stopped"},
				Ops:     StatusListenerInfo{Status: "stopped"},
			},
		})
	}

	fmt.Println("trapd is not running")
	fmt.Println()
	fmt.Println("To start: trapd serve")
	return nil
}

// buildStatusOutput creates a StatusOutput from PID file info.
func buildStatusOutput(info *PIDFile) StatusOutput {
	status := StatusOutput{
		Version: info.Version,
		Commit:  info.Commit,
		Uptime:  info.FormatUptime(),
		Running: true,
		PID:     info.PID,
		Listeners: StatusListeners{
			Capture: StatusListenerInfo{Status: "stopped"},
			Ops:     StatusListenerInfo{Status: "stopped"},
		},
	}

	if info.Listeners.Capture.Enabled {
		status.Listeners.Capture = StatusListenerInfo{
			Status: "running",
			URL:    info.CaptureURL(),
		}
	}
	if info.Listeners.Ops.Enabled {
		status.Listeners.Ops = StatusListenerInfo{
			Status: "running",
			URL:    info.OpsURL(),
		}
	}

	return status
}

// resolveStatusOpsURL picks the ops base URL to probe for live stats:
// the --ops-url flag, then TRAPD_OPS_URL, then the PID file.
func resolveStatusOpsURL(info *PIDFile) string {
	if opsURL != "" {
		return opsURL
	}
	if v := os.Getenv(cliconfig.EnvOpsURL); v != "" {
		return v
	}
	return info.OpsURL()
}

// fetchLiveStats asks the operational API for the sink kind and capture
// counters. Returns nil when the ops listener is unreachable.
func fetchLiveStats(baseURL string) *StatusStats {
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var health struct {
		Sink string `json:"sink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil
	}

	stats := &StatusStats{Sink: health.Sink}

	metricsResp, err := client.Get(baseURL + "/metrics")
	if err != nil {
		return stats
	}
	defer func() { _ = metricsResp.Body.Close() }()
	if metricsResp.StatusCode != http.StatusOK {
		return stats
	}

	captures, sinkErrors := sumCaptureCounters(bufio.NewScanner(metricsResp.Body))
	stats.Captures = captures
	stats.SinkErrors = sinkErrors
	return stats
}

// sumCaptureCounters totals trapd_captures_total and
// trapd_sink_errors_total across all label combinations in a Prometheus
// text exposition.
func sumCaptureCounters(scanner *bufio.Scanner) (captures, sinkErrors int) {
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			continue
		}
		value, err := strconv.ParseFloat(line[idx+1:], 64)
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "trapd_captures_total"):
			captures += int(value)
		case strings.HasPrefix(line, "trapd_sink_errors_total"):
			sinkErrors += int(value)
		}
	}
	return captures, sinkErrors
}

// printHumanStatus prints status in human-readable format.
func printHumanStatus(status StatusOutput) error {
	if status.Commit != "" && status.Commit != "none" {
		fmt.Printf("trapd v%s (%s)\n", status.Version, status.Commit)
	} else {
		fmt.Printf("trapd v%s\n", status.Version)
	}
	fmt.Println()

	fmt.Println("Listeners:")
	w := output.Table()
	if status.Listeners.Capture.Status == "running" {
		fmt.Fprintf(w, "  Capture\t%s\t%s\t(uptime: %s)\n",
			colorGreen("running"), status.Listeners.Capture.URL, status.Uptime)
	} else {
		fmt.Fprintf(w, "  Capture\t%s\t\t\n", colorRed("stopped"))
	}
	if status.Listeners.Ops.Status == "running" {
		fmt.Fprintf(w, "  Ops API\t%s\t%s\t\n",
			colorGreen("running"), status.Listeners.Ops.URL)
	} else {
		fmt.Fprintf(w, "  Ops API\t%s\t\t\n", colorRed("stopped"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if status.Stats != nil {
		fmt.Println()
		fmt.Println("Stats:")
		if status.Stats.Sink != "" {
			fmt.Printf("  Sink:               %s\n", status.Stats.Sink)
		}
		fmt.Printf("  Captures recorded:  %s\n", formatNumber(status.Stats.Captures))
		if status.Stats.SinkErrors > 0 {
			fmt.Printf("  Sink errors:        %s\n", formatNumber(status.Stats.SinkErrors))
		}
	}

	return nil
}

// colorGreen returns text wrapped in ANSI green color codes.
func colorGreen(s string) string {
	if !isTerminal() {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

// colorRed returns text wrapped in ANSI red color codes.
func colorRed(s string) string {
	if !isTerminal() {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}

	str := strconv.Itoa(n)
	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
