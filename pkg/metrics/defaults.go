package metrics

import (
	"sync"
	"time"
)

// Default metrics for the capture server.
// These are initialized by calling Init().
//
// # Label Conventions
//
// All label values are lowercase:
//
//   - sink: file, remote, stdout, multi, plus any registered extension kind
//   - outcome: ok, error
var (
	// CapturesTotal counts captured records handed to a sink.
	// Labels: sink, outcome
	CapturesTotal *Counter

	// CaptureDuration tracks capture handling time in seconds, from
	// request arrival to the "OK" acknowledgement.
	CaptureDuration *Histogram

	// SinkErrorsTotal counts failed sink writes.
	// Labels: sink
	SinkErrorsTotal *Counter

	// ResponsesTotal counts acknowledgements written to clients. Every
	// request is acknowledged, so this is also the request total.
	ResponsesTotal *Counter

	// UptimeSeconds is a gauge of the server uptime in seconds.
	UptimeSeconds *Gauge

	// RuntimeCollectorInstance is the Go runtime metrics collector.
	RuntimeCollectorInstance *RuntimeCollector

	// runtimeCollectorStop stops the runtime collector goroutine.
	runtimeCollectorStop func()

	// defaultRegistry is the global metrics registry.
	defaultRegistry *Registry

	// initOnce ensures Init() is only called once.
	initOnce sync.Once
)

// Init initializes the default metrics and returns the registry.
// This function is idempotent and safe to call multiple times.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		CapturesTotal = defaultRegistry.NewCounter(
			"trapd_captures_total",
			"Total number of captured records handed to a sink",
			"sink", "outcome",
		)

		CaptureDuration = defaultRegistry.NewHistogram(
			"trapd_capture_duration_seconds",
			"Time spent handling a capture request in seconds",
			DefaultBuckets,
		)

		SinkErrorsTotal = defaultRegistry.NewCounter(
			"trapd_sink_errors_total",
			"Total number of failed sink writes",
			"sink",
		)

		ResponsesTotal = defaultRegistry.NewCounter(
			"trapd_responses_total",
			"Total number of acknowledgements written to clients",
		)

		UptimeSeconds = defaultRegistry.NewGauge(
			"trapd_uptime_seconds",
			"Server uptime in seconds",
		)

		// Go runtime metrics, refreshed every 10 seconds
		RuntimeCollectorInstance = NewRuntimeCollector(defaultRegistry, UptimeSeconds)
		runtimeCollectorStop = RuntimeCollectorInstance.StartCollector(10 * time.Second)
	})

	return defaultRegistry
}

// DefaultRegistry returns the default metrics registry.
// Returns nil if Init() has not been called.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset resets all default metrics. Useful for testing.
// This also resets the initOnce, allowing Init() to be called again.
func Reset() {
	if runtimeCollectorStop != nil {
		runtimeCollectorStop()
		runtimeCollectorStop = nil
	}

	initOnce = sync.Once{}
	defaultRegistry = nil
	CapturesTotal = nil
	CaptureDuration = nil
	SinkErrorsTotal = nil
	ResponsesTotal = nil
	UptimeSeconds = nil
	RuntimeCollectorInstance = nil
}

// RecordCapture counts one record emission attempt.
// Safe to call before Init(); it is a no-op then.
func RecordCapture(sink, outcome string) {
	if CapturesTotal == nil {
		return
	}
	if vec, err := CapturesTotal.WithLabels(sink, outcome); err == nil {
		_ = vec.Inc()
	}
}

// RecordSinkError counts one failed sink write.
// Safe to call before Init(); it is a no-op then.
func RecordSinkError(sink string) {
	if SinkErrorsTotal == nil {
		return
	}
	if vec, err := SinkErrorsTotal.WithLabels(sink); err == nil {
		_ = vec.Inc()
	}
}

// RecordResponse counts one acknowledgement and its handling duration.
// Safe to call before Init(); it is a no-op then.
func RecordResponse(duration time.Duration) {
	if ResponsesTotal != nil {
		_ = ResponsesTotal.Inc()
	}
	if CaptureDuration != nil {
		_ = CaptureDuration.Observe(duration.Seconds())
	}
}
