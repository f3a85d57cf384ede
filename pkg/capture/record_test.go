package capture

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestFromRequestFields(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/probe?x=1", nil)
	r.RemoteAddr = "203.0.113.5:51234"
	r.Header.Set("User-Agent", "curl/8.0")

	rec := FromRequest(r)

	if rec.RemoteIP != "203.0.113.5" {
		t.Errorf("RemoteIP = %q, want %q", rec.RemoteIP, "203.0.113.5")
	}
	if rec.UserAgent != "curl/8.0" {
		t.Errorf("UserAgent = %q, want %q", rec.UserAgent, "curl/8.0")
	}
	if rec.Method != http.MethodGet {
		t.Errorf("Method = %q, want %q", rec.Method, http.MethodGet)
	}
	if rec.URI != "/probe?x=1" {
		t.Errorf("URI = %q, want %q", rec.URI, "/probe?x=1")
	}
	if rec.Headers["User-Agent"] != "curl/8.0" {
		t.Errorf("Headers[User-Agent] = %q, want %q", rec.Headers["User-Agent"], "curl/8.0")
	}
}

func TestFromRequestDefaults(t *testing.T) {
	t.Parallel()

	// A request with no user agent and no remote address yields the
	// documented defaults, never empty fields.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = ""

	rec := FromRequest(r)

	if rec.UserAgent != DefaultValue {
		t.Errorf("UserAgent = %q, want %q", rec.UserAgent, DefaultValue)
	}
	if rec.RemoteIP != DefaultValue {
		t.Errorf("RemoteIP = %q, want %q", rec.RemoteIP, DefaultValue)
	}
	if rec.Method == "" || rec.URI == "" {
		t.Errorf("Method/URI left empty: %q %q", rec.Method, rec.URI)
	}
}

func TestFromRequestTimestamp(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	rec := FromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	after := time.Now().Add(time.Second)

	ts, err := time.ParseInLocation(TimestampLayout, rec.Timestamp, time.Local)
	if err != nil {
		t.Fatalf("timestamp %q does not match layout: %v", rec.Timestamp, err)
	}
	if ts.Before(before.Truncate(time.Second)) || ts.After(after) {
		t.Errorf("timestamp %v outside capture window [%v, %v]", ts, before, after)
	}
}

func TestRemoteIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr string
		want string
	}{
		{"host and port", "203.0.113.5:51234", "203.0.113.5"},
		{"bare host", "203.0.113.5", "203.0.113.5"},
		{"ipv6 with port", "[2001:db8::1]:443", "2001:db8::1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := remoteIP(tt.addr); got != tt.want {
				t.Errorf("remoteIP(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestFlattenHeadersJoinsValues(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Add("Accept", "text/html")
	h.Add("Accept", "application/json")
	h.Set("X-Probe", "1")

	got := flattenHeaders(h)

	if got["Accept"] != "text/html, application/json" {
		t.Errorf("Accept = %q, want joined values", got["Accept"])
	}
	if got["X-Probe"] != "1" {
		t.Errorf("X-Probe = %q, want %q", got["X-Probe"], "1")
	}
}

func TestRecordJSONRoundTrip(t *testing.T) {
	t.Parallel()

	rec := &Record{
		Timestamp: "2026-08-25 10:30:00",
		RemoteIP:  "203.0.113.5",
		UserAgent: "curl/8.0",
		Method:    "POST",
		URI:       "/login",
		Headers:   map[string]string{"Host": "victim.test", "User-Agent": "curl/8.0"},
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The wire format uses exactly these keys.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		t.Fatalf("unmarshal keys: %v", err)
	}
	for _, key := range []string{"timestamp", "remote_ip", "user_agent", "method", "uri", "headers"} {
		if _, ok := keys[key]; !ok {
			t.Errorf("wire JSON missing key %q", key)
		}
	}
	if len(keys) != 6 {
		t.Errorf("wire JSON has %d keys, want 6", len(keys))
	}

	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if !reflect.DeepEqual(&back, rec) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", &back, rec)
	}
}
