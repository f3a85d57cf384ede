package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	t.Run("without labels", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("test_counter", "A test counter")

		_ = c.Inc()
		_ = c.Inc()
		_ = c.Add(3)

		samples := c.Collect()
		if len(samples) != 1 {
			t.Fatalf("expected 1 sample, got %d", len(samples))
		}
		if samples[0].Value != 5 {
			t.Errorf("expected value 5, got %f", samples[0].Value)
		}
	})

	t.Run("with labels", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("captures", "Total captures", "sink", "outcome")

		vec, err := c.WithLabels("file", "ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = vec.Inc()
		vec, _ = c.WithLabels("file", "ok")
		_ = vec.Inc()
		vec, _ = c.WithLabels("remote", "error")
		_ = vec.Add(5)

		samples := c.Collect()
		if len(samples) != 2 {
			t.Fatalf("expected 2 samples, got %d", len(samples))
		}

		found := make(map[string]float64)
		for _, s := range samples {
			key := s.Labels["sink"] + "_" + s.Labels["outcome"]
			found[key] = s.Value
		}

		if found["file_ok"] != 2 {
			t.Errorf("expected file_ok=2, got %f", found["file_ok"])
		}
		if found["remote_error"] != 5 {
			t.Errorf("expected remote_error=5, got %f", found["remote_error"])
		}
	})

	t.Run("wrong label count returns error", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("test", "test", "label1", "label2")
		_, err := c.WithLabels("only_one")
		if err == nil {
			t.Error("expected error for wrong label count")
		}
		if !errors.Is(err, ErrLabelCountMismatch) {
			t.Errorf("expected ErrLabelCountMismatch, got %v", err)
		}
	})

	t.Run("negative add returns error", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("test", "test")
		err := c.Add(-1)
		if err == nil {
			t.Error("expected error for negative add")
		}
		if !errors.Is(err, ErrNegativeCounterValue) {
			t.Errorf("expected ErrNegativeCounterValue, got %v", err)
		}
	})
}

func TestGauge(t *testing.T) {
	t.Run("without labels", func(t *testing.T) {
		r := NewRegistry()
		g := r.NewGauge("test_gauge", "A test gauge")

		_ = g.Set(10)
		samples := g.Collect()
		if len(samples) != 1 || samples[0].Value != 10 {
			t.Errorf("expected value 10")
		}

		_ = g.Inc()
		_ = g.Dec()
		_ = g.Add(4)
		samples = g.Collect()
		if samples[0].Value != 14 {
			t.Errorf("expected value 14, got %f", samples[0].Value)
		}
	})

	t.Run("with labels", func(t *testing.T) {
		r := NewRegistry()
		g := r.NewGauge("sink_up", "Sink availability", "sink")

		vec, err := g.WithLabels("file")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		vec.Set(1)
		vec, _ = g.WithLabels("remote")
		vec.Set(0)

		samples := g.Collect()
		if len(samples) != 2 {
			t.Fatalf("expected 2 samples, got %d", len(samples))
		}
	})
}

func TestHistogram(t *testing.T) {
	t.Run("buckets are cumulative", func(t *testing.T) {
		r := NewRegistry()
		h := r.NewHistogram("test_duration", "Duration", []float64{0.1, 0.5, 1.0})

		_ = h.Observe(0.05)
		_ = h.Observe(0.3)
		_ = h.Observe(0.8)
		_ = h.Observe(5.0) // lands in +Inf only

		samples := h.Collect()

		buckets := make(map[string]float64)
		var sum, count float64
		for _, s := range samples {
			switch {
			case strings.HasSuffix(s.Name, "_bucket"):
				buckets[s.Labels["le"]] = s.Value
			case strings.HasSuffix(s.Name, "_sum"):
				sum = s.Value
			case strings.HasSuffix(s.Name, "_count"):
				count = s.Value
			}
		}

		if buckets["0.1"] != 1 {
			t.Errorf("le=0.1: expected 1, got %f", buckets["0.1"])
		}
		if buckets["0.5"] != 2 {
			t.Errorf("le=0.5: expected 2, got %f", buckets["0.5"])
		}
		if buckets["1"] != 3 {
			t.Errorf("le=1: expected 3, got %f", buckets["1"])
		}
		if buckets["+Inf"] != 4 {
			t.Errorf("le=+Inf: expected 4, got %f", buckets["+Inf"])
		}
		if count != 4 {
			t.Errorf("count: expected 4, got %f", count)
		}
		if sum < 6.14 || sum > 6.16 {
			t.Errorf("sum: expected ~6.15, got %f", sum)
		}
	})

	t.Run("wrong label count returns error", func(t *testing.T) {
		r := NewRegistry()
		h := r.NewHistogram("test", "test", DefaultBuckets, "sink")
		if _, err := h.WithLabels(); !errors.Is(err, ErrLabelCountMismatch) {
			t.Errorf("expected ErrLabelCountMismatch, got %v", err)
		}
	})
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()

	c := r.NewCounter("test_captures_total", "Total captures", "sink")
	g := r.NewGauge("test_uptime", "Uptime seconds")
	h := r.NewHistogram("test_duration_seconds", "Duration", []float64{0.1, 1.0})

	vec, _ := c.WithLabels("file")
	_ = vec.Inc()
	vec, _ = c.WithLabels("remote")
	_ = vec.Add(5)
	_ = g.Set(42)
	_ = h.Observe(0.5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	r.Handler().ServeHTTP(rec, req)

	resp := rec.Result()
	body, _ := io.ReadAll(resp.Body)
	output := string(body)

	contentType := resp.Header.Get("Content-Type")
	if contentType != "text/plain; version=0.0.4; charset=utf-8" {
		t.Errorf("unexpected Content-Type: %s", contentType)
	}

	expectedLines := []string{
		"# HELP test_captures_total Total captures",
		"# TYPE test_captures_total counter",
		`test_captures_total{sink="file"} 1`,
		`test_captures_total{sink="remote"} 5`,
		"# HELP test_uptime Uptime seconds",
		"# TYPE test_uptime gauge",
		"test_uptime 42",
		"# TYPE test_duration_seconds histogram",
		`test_duration_seconds_bucket{le="0.1"} 0`,
		`test_duration_seconds_bucket{le="1"} 1`,
		`test_duration_seconds_bucket{le="+Inf"} 1`,
		"test_duration_seconds_sum 0.5",
		"test_duration_seconds_count 1",
	}

	for _, expected := range expectedLines {
		if !strings.Contains(output, expected) {
			t.Errorf("output missing expected line: %s", expected)
		}
	}
}

func TestRegistry_DuplicateNamePanics(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("dup_metric", "first")

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate metric name")
		}
	}()
	r.NewGauge("dup_metric", "second")
}

func TestConcurrency(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("concurrent_counter", "Test counter", "worker")
	g := r.NewGauge("concurrent_gauge", "Test gauge")
	h := r.NewHistogram("concurrent_histogram", "Test histogram", []float64{1, 10, 100})

	var wg sync.WaitGroup
	workers := 50
	iterations := 200

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				vec, _ := c.WithLabels("worker")
				_ = vec.Inc()
				_ = g.Inc()
				_ = h.Observe(float64(j % 50))
			}
		}()
	}

	wg.Wait()

	expected := float64(workers * iterations)

	samples := c.Collect()
	total := float64(0)
	for _, s := range samples {
		total += s.Value
	}
	if total != expected {
		t.Errorf("expected counter total %f, got %f", expected, total)
	}

	samples = g.Collect()
	if len(samples) != 1 || samples[0].Value != expected {
		t.Errorf("expected gauge value %f, got %v", expected, samples)
	}

	for _, s := range h.Collect() {
		if strings.HasSuffix(s.Name, "_count") && s.Value != expected {
			t.Errorf("expected histogram count %f, got %f", expected, s.Value)
		}
	}
}

func TestDefaultMetrics(t *testing.T) {
	// Reset to ensure clean state
	Reset()
	defer Reset()

	registry := Init()
	if registry == nil {
		t.Fatal("Init() returned nil")
	}

	if CapturesTotal == nil {
		t.Error("CapturesTotal is nil")
	}
	if CaptureDuration == nil {
		t.Error("CaptureDuration is nil")
	}
	if SinkErrorsTotal == nil {
		t.Error("SinkErrorsTotal is nil")
	}
	if ResponsesTotal == nil {
		t.Error("ResponsesTotal is nil")
	}
	if UptimeSeconds == nil {
		t.Error("UptimeSeconds is nil")
	}

	RecordCapture("file", "ok")
	RecordCapture("file", "ok")
	RecordSinkError("remote")
	RecordResponse(15 * time.Millisecond)
	RuntimeCollectorInstance.Collect()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Result().Body)
	output := string(body)

	expectedLines := []string{
		`trapd_captures_total{outcome="ok",sink="file"} 2`,
		`trapd_sink_errors_total{sink="remote"} 1`,
		"trapd_responses_total 1",
		"trapd_capture_duration_seconds_count 1",
	}
	for _, expected := range expectedLines {
		if !strings.Contains(output, expected) {
			t.Errorf("output missing expected line: %s", expected)
		}
	}
	if !strings.Contains(output, "go_goroutines") {
		t.Error("output missing go_goroutines runtime gauge")
	}

	// Calling Init() again should return the same registry
	if Init() != registry {
		t.Error("Init() should return the same registry on subsequent calls")
	}
}

func TestRecordHelpers_NoOpBeforeInit(t *testing.T) {
	Reset()
	defer Reset()

	// Must not panic with nil metric vars.
	RecordCapture("file", "ok")
	RecordSinkError("file")
	RecordResponse(time.Millisecond)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "0"},
		{1, "1"},
		{42, "42"},
		{0.5, "0.5"},
		{0.123456789, "0.123456789"},
		{1e10, "1e+10"},
	}

	for _, tt := range tests {
		got := formatFloat(tt.value)
		if got != tt.expected {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.value, got, tt.expected)
		}
	}
}

func TestEscapeLabelValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{`with "quotes"`, `with \"quotes\"`},
		{"with\nnewline", `with\nnewline`},
	}

	for _, tt := range tests {
		got := escapeLabelValue(tt.input)
		if got != tt.expected {
			t.Errorf("escapeLabelValue(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDefaultRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if DefaultRegistry() != nil {
		t.Error("DefaultRegistry() should return nil before Init()")
	}

	Init()

	if DefaultRegistry() == nil {
		t.Error("DefaultRegistry() should return the registry after Init()")
	}
}
