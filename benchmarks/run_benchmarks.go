// Package main runs the trapd benchmarks and outputs results to JSON/Markdown.
// Run with: go run benchmarks/run_benchmarks.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BenchmarkResults holds all benchmark data
type BenchmarkResults struct {
	Timestamp   string          `json:"timestamp"`
	Environment Environment     `json:"environment"`
	Areas       map[string]Area `json:"areas"`
	Summary     Summary         `json:"summary"`
}

type Environment struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPU       string `json:"cpu"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
}

type Area struct {
	Benchmarks []Benchmark `json:"benchmarks"`
}

type Benchmark struct {
	Name        string  `json:"name"`
	NsPerOp     float64 `json:"ns_per_op"`
	OpsPerSec   float64 `json:"ops_per_sec"`
	BytesPerOp  int64   `json:"bytes_per_op"`
	AllocsPerOp int64   `json:"allocs_per_op"`
}

type Summary struct {
	Capture CaptureSummary `json:"capture"`
	Sink    SinkSummary    `json:"sink"`
	Startup StartupSummary `json:"startup"`
}

type CaptureSummary struct {
	HandlerOpsPerSec  float64 `json:"handler_ops_per_sec"`
	HandlerLatencyNs  float64 `json:"handler_latency_ns"`
	EndToEndOpsPerSec float64 `json:"end_to_end_ops_per_sec"`
	EndToEndLatencyNs float64 `json:"end_to_end_latency_ns"`
	Claim             string  `json:"claim"`
}

type SinkSummary struct {
	FileWriteNs   float64 `json:"file_write_ns"`
	FormatBlockNs float64 `json:"format_block_ns"`
	Claim         string  `json:"claim"`
}

type StartupSummary struct {
	ServerNs float64 `json:"server_ns"`
	CLINs    float64 `json:"cli_ns"`
	Claim    string  `json:"claim"`
}

func main() {
	fmt.Println("==========================================")
	fmt.Println("   TRAPD BENCHMARK SUITE")
	fmt.Println("==========================================")
	fmt.Println()

	results := BenchmarkResults{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Environment: Environment{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPU:       getCPUInfo(),
			NumCPU:    runtime.NumCPU(),
			GoVersion: runtime.Version(),
		},
		Areas: make(map[string]Area),
	}

	// Run benchmarks
	fmt.Println("Running capture benchmarks...")
	results.Areas["capture"] = Area{Benchmarks: runBenchmarks("BenchmarkCapture")}

	fmt.Println("Running sink benchmarks...")
	results.Areas["sink"] = Area{Benchmarks: runBenchmarks("BenchmarkSink")}

	fmt.Println("Running startup benchmarks...")
	results.Areas["startup"] = Area{Benchmarks: runBenchmarks("BenchmarkServerStartup|BenchmarkCLIStartup")}

	// Calculate summary
	results.Summary = calculateSummary(results.Areas)

	// Write JSON
	jsonPath := "benchmarks/results/latest.json"
	writeJSON(results, jsonPath)
	fmt.Printf("\nJSON results: %s\n", jsonPath)

	// Write Markdown
	mdPath := "benchmarks/results/LATEST.md"
	writeMarkdown(results, mdPath)
	fmt.Printf("Markdown results: %s\n", mdPath)

	// Print summary
	printSummary(results)
}

func getCPUInfo() string {
	if runtime.GOOS == "linux" {
		data, err := os.ReadFile("/proc/cpuinfo")
		if err == nil {
			lines := strings.Split(string(data), "\n")
			for _, line := range lines {
				if strings.HasPrefix(line, "model name") {
					parts := strings.SplitN(line, ":", 2)
					if len(parts) == 2 {
						return strings.TrimSpace(parts[1])
					}
				}
			}
		}
	}
	return "unknown"
}

func runBenchmarks(pattern string) []Benchmark {
	cmd := exec.Command("go", "test", "-bench="+pattern, "-benchtime=2s", "-benchmem", "./tests/performance/...")
	output, _ := cmd.CombinedOutput()

	return parseBenchmarkOutput(string(output))
}

func parseBenchmarkOutput(output string) []Benchmark {
	var benchmarks []Benchmark

	// Pattern: BenchmarkName-N    iterations    ns/op    bytes/op    allocs/op
	re := regexp.MustCompile(`(Benchmark[\w/]+)-\d+\s+(\d+)\s+([\d.]+)\s+ns/op\s+(\d+)\s+B/op\s+(\d+)\s+allocs/op`)

	matches := re.FindAllStringSubmatch(output, -1)
	for _, match := range matches {
		if len(match) >= 6 {
			nsPerOp, _ := strconv.ParseFloat(match[3], 64)
			bytesPerOp, _ := strconv.ParseInt(match[4], 10, 64)
			allocsPerOp, _ := strconv.ParseInt(match[5], 10, 64)

			opsPerSec := 0.0
			if nsPerOp > 0 {
				opsPerSec = 1e9 / nsPerOp
			}

			benchmarks = append(benchmarks, Benchmark{
				Name:        match[1],
				NsPerOp:     nsPerOp,
				OpsPerSec:   opsPerSec,
				BytesPerOp:  bytesPerOp,
				AllocsPerOp: allocsPerOp,
			})
		}
	}

	return benchmarks
}

func calculateSummary(areas map[string]Area) Summary {
	summary := Summary{}

	if capture, ok := areas["capture"]; ok {
		for _, b := range capture.Benchmarks {
			if b.Name == "BenchmarkCaptureHandler" {
				summary.Capture.HandlerOpsPerSec = b.OpsPerSec
				summary.Capture.HandlerLatencyNs = b.NsPerOp
			}
			if strings.Contains(b.Name, "CaptureThroughput") {
				summary.Capture.EndToEndOpsPerSec = b.OpsPerSec
				summary.Capture.EndToEndLatencyNs = b.NsPerOp
			}
		}
		if summary.Capture.EndToEndOpsPerSec > 0 {
			summary.Capture.Claim = fmt.Sprintf("%.0fK+ req/s over loopback", summary.Capture.EndToEndOpsPerSec/1000*0.8)
		}
	}

	if snk, ok := areas["sink"]; ok {
		for _, b := range snk.Benchmarks {
			if strings.Contains(b.Name, "SinkFileWrite") {
				summary.Sink.FileWriteNs = b.NsPerOp
			}
			if strings.Contains(b.Name, "SinkFormatBlock") {
				summary.Sink.FormatBlockNs = b.NsPerOp
			}
		}
		if summary.Sink.FileWriteNs > 0 {
			summary.Sink.Claim = fmt.Sprintf("<%.0fμs per capture block", summary.Sink.FileWriteNs/1000+1)
		}
	}

	if startup, ok := areas["startup"]; ok {
		for _, b := range startup.Benchmarks {
			if strings.Contains(b.Name, "ServerStartup") {
				summary.Startup.ServerNs = b.NsPerOp
			}
			if strings.Contains(b.Name, "CLIStartup") {
				summary.Startup.CLINs = b.NsPerOp
			}
		}
		summary.Startup.Claim = fmt.Sprintf("<%.0fms server, <%.0fms CLI",
			summary.Startup.ServerNs/1e6+1,
			summary.Startup.CLINs/1e6+5)
	}

	return summary
}

func writeJSON(results BenchmarkResults, path string) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		return
	}
	os.WriteFile(path, data, 0644)
}

func writeMarkdown(results BenchmarkResults, path string) {
	var sb strings.Builder

	sb.WriteString("# trapd Benchmark Results\n\n")
	sb.WriteString(fmt.Sprintf("**Generated**: %s\n\n", results.Timestamp))
	sb.WriteString("## Environment\n\n")
	sb.WriteString(fmt.Sprintf("- **OS**: %s/%s\n", results.Environment.OS, results.Environment.Arch))
	sb.WriteString(fmt.Sprintf("- **CPU**: %s (%d cores)\n", results.Environment.CPU, results.Environment.NumCPU))
	sb.WriteString(fmt.Sprintf("- **Go**: %s\n\n", results.Environment.GoVersion))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Area | Throughput | Latency | Claim |\n")
	sb.WriteString("|------|------------|---------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Capture (in-process) | %.0f ops/s | %.2fμs | %s |\n",
		results.Summary.Capture.HandlerOpsPerSec,
		results.Summary.Capture.HandlerLatencyNs/1000,
		results.Summary.Capture.Claim))
	sb.WriteString(fmt.Sprintf("| Capture (end-to-end) | %.0f req/s | %.2fμs | %s |\n",
		results.Summary.Capture.EndToEndOpsPerSec,
		results.Summary.Capture.EndToEndLatencyNs/1000,
		results.Summary.Capture.Claim))
	sb.WriteString(fmt.Sprintf("| File sink | - | %.2fμs | %s |\n",
		results.Summary.Sink.FileWriteNs/1000,
		results.Summary.Sink.Claim))
	sb.WriteString(fmt.Sprintf("| Startup | - | %.2fms (server) | %s |\n",
		results.Summary.Startup.ServerNs/1e6,
		results.Summary.Startup.Claim))
	sb.WriteString("\n")

	// Detailed results per area
	for name, area := range results.Areas {
		sb.WriteString(fmt.Sprintf("## %s\n\n", cases.Title(language.English).String(name)))
		sb.WriteString("| Benchmark | ops/sec | ns/op | B/op | allocs/op |\n")
		sb.WriteString("|-----------|---------|-------|------|----------|\n")
		for _, b := range area.Benchmarks {
			sb.WriteString(fmt.Sprintf("| %s | %.0f | %.0f | %d | %d |\n",
				b.Name, b.OpsPerSec, b.NsPerOp, b.BytesPerOp, b.AllocsPerOp))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Reproducing\n\n")
	sb.WriteString("```bash\n")
	sb.WriteString("go run benchmarks/run_benchmarks.go\n")
	sb.WriteString("# Or individual areas:\n")
	sb.WriteString("go test -bench=BenchmarkCapture -benchtime=2s -benchmem ./tests/performance/...\n")
	sb.WriteString("go test -bench=BenchmarkSink -benchtime=2s -benchmem ./tests/performance/...\n")
	sb.WriteString("go test -bench=BenchmarkServerStartup -benchtime=2s -benchmem ./tests/performance/...\n")
	sb.WriteString("```\n")

	os.WriteFile(path, []byte(sb.String()), 0644)
}

func printSummary(results BenchmarkResults) {
	fmt.Println()
	fmt.Println("==========================================")
	fmt.Println("              SUMMARY")
	fmt.Println("==========================================")
	fmt.Printf("Capture:  %.0f ops/s in-process (%.2fμs)\n",
		results.Summary.Capture.HandlerOpsPerSec,
		results.Summary.Capture.HandlerLatencyNs/1000)
	fmt.Printf("          %.0f req/s end-to-end (%.2fμs)\n",
		results.Summary.Capture.EndToEndOpsPerSec,
		results.Summary.Capture.EndToEndLatencyNs/1000)
	fmt.Printf("Sink:     %.2fμs file write, %.2fμs format\n",
		results.Summary.Sink.FileWriteNs/1000,
		results.Summary.Sink.FormatBlockNs/1000)
	fmt.Printf("Startup:  %.2fms server, %.2fms CLI\n",
		results.Summary.Startup.ServerNs/1e6,
		results.Summary.Startup.CLINs/1e6)
	fmt.Println("==========================================")
}
