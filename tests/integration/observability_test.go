package integration

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scrapeCounter sums every sample of the named counter in the /metrics
// output, across all label combinations.
func scrapeCounter(t *testing.T, url, name string) float64 {
	t.Helper()

	status, body := doRequest(t, http.MethodGet, url, "test-scraper")
	require.Equal(t, http.StatusOK, status)

	var total float64
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, name) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			continue
		}
		total += v
	}
	return total
}

func TestHealthEndpoint(t *testing.T) {
	bundle := setupTrap(t)

	resp, err := http.Get(bundle.opsURL("/health"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var health struct {
		Status string `json:"status"`
		Sink   string `json:"sink"`
		Uptime int    `json:"uptime"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "file", health.Sink)
	assert.GreaterOrEqual(t, health.Uptime, 0)
}

func TestHealthIsNotTrapped(t *testing.T) {
	bundle := setupTrap(t)

	// /health on the capture listener is just another trapped path.
	status, body := doRequest(t, http.MethodGet, bundle.captureURL("/health"), "probe")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	// The same path on the ops listener answers with real JSON.
	_, opsBody := doRequest(t, http.MethodGet, bundle.opsURL("/health"), "probe")
	assert.Contains(t, opsBody, `"status"`)
}

func TestMetricsCountCaptures(t *testing.T) {
	bundle := setupTrap(t)
	metricsURL := bundle.opsURL("/metrics")

	// Metrics are process-global, so measure the delta rather than the
	// absolute value.
	before := scrapeCounter(t, metricsURL, "trapd_captures_total")

	const n = 3
	for i := 0; i < n; i++ {
		doRequest(t, http.MethodGet, bundle.captureURL("/hit"), "probe")
	}

	after := scrapeCounter(t, metricsURL, "trapd_captures_total")
	assert.GreaterOrEqual(t, after-before, float64(n))
}

func TestMetricsExposition(t *testing.T) {
	bundle := setupTrap(t)
	doRequest(t, http.MethodGet, bundle.captureURL("/hit"), "probe")

	status, body := doRequest(t, http.MethodGet, bundle.opsURL("/metrics"), "test-scraper")
	require.Equal(t, http.StatusOK, status)

	for _, want := range []string{
		"# HELP trapd_captures_total",
		"# TYPE trapd_captures_total counter",
		"trapd_responses_total",
		"trapd_uptime_seconds",
		"trapd_capture_duration_seconds",
	} {
		assert.Contains(t, body, want)
	}
}
