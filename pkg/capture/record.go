package capture

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultValue is substituted for any ambient field that is missing or
// empty, so a record never carries an unset field.
const DefaultValue = "N/A"

// TimestampLayout is the wall-clock format stamped on every record.
const TimestampLayout = "2006-01-02 15:04:05"

// Record holds the ambient metadata captured from one inbound request.
// Records are created fresh per request, handed to a sink, and discarded;
// nothing retains them in process memory.
type Record struct {
	// Timestamp is the capture time, formatted as YYYY-MM-DD HH:MM:SS.
	Timestamp string `json:"timestamp"`

	// RemoteIP is the client address with any port stripped.
	RemoteIP string `json:"remote_ip"`

	// UserAgent is the client-supplied User-Agent header value.
	UserAgent string `json:"user_agent"`

	// Method is the HTTP method token.
	Method string `json:"method"`

	// URI is the requested path and query string.
	URI string `json:"uri"`

	// Headers maps each request header name to its value. Multi-valued
	// headers are joined with ", ".
	Headers map[string]string `json:"headers"`
}

// FromRequest builds a Record from the ambient metadata on r. Every field
// holds either the observed value or DefaultValue.
func FromRequest(r *http.Request) *Record {
	return &Record{
		Timestamp: time.Now().Format(TimestampLayout),
		RemoteIP:  orDefault(remoteIP(r.RemoteAddr)),
		UserAgent: orDefault(r.UserAgent()),
		Method:    orDefault(r.Method),
		URI:       orDefault(r.RequestURI),
		Headers:   flattenHeaders(r.Header),
	}
}

// remoteIP extracts the IP address from a host:port remote address.
func remoteIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}

// orDefault substitutes DefaultValue for empty field values.
func orDefault(s string) string {
	if s == "" {
		return DefaultValue
	}
	return s
}

// flattenHeaders collapses multi-valued headers into single strings.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}
	return out
}
