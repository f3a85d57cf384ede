// Package metrics provides Prometheus-compatible metrics collection for the
// capture server.
//
// This package implements the Prometheus text exposition format (text/plain;
// version=0.0.4) without any external dependencies, using only the standard
// library.
//
// Supported metric types:
//   - Counter: monotonically increasing value (e.g., capture counts)
//   - Gauge: value that can go up or down (e.g., uptime)
//   - Histogram: distribution of values with configurable buckets (e.g., latencies)
//
// All metrics are thread-safe and can be updated from multiple goroutines.
//
// # Default Metrics
//
// The package provides pre-defined metrics for tracking capture activity:
//
//   - trapd_captures_total: Counter for records handed to a sink (labels: sink, outcome)
//   - trapd_capture_duration_seconds: Histogram for capture handling latency
//   - trapd_sink_errors_total: Counter for failed sink writes (labels: sink)
//   - trapd_responses_total: Counter for "OK" acknowledgements
//   - trapd_uptime_seconds: Gauge for server uptime
//
// plus the usual go_* runtime gauges.
//
// # Usage
//
//	// Initialize the default metrics registry
//	registry := metrics.Init()
//
//	// Count a capture
//	metrics.RecordCapture("file", "ok")
//
//	// Register the /metrics endpoint
//	http.Handle("/metrics", registry.Handler())
//
// Custom metrics can also be created:
//
//	registry := metrics.NewRegistry()
//	counter := registry.NewCounter("my_counter", "Description of counter", "label1", "label2")
//	counter.WithLabels("value1", "value2").Inc()
package metrics
