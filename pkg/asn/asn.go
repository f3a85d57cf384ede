package asn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gettrapd/trapd/pkg/logging"
)

// Normalize returns the canonical form of an autonomous system number:
// trimmed, upper-cased, with an "AS" prefix. "as62419", " 62419 " and
// "AS62419" all normalize to "AS62419".
func Normalize(asn string) string {
	asn = strings.ToUpper(strings.TrimSpace(asn))
	if !strings.HasPrefix(asn, "AS") {
		asn = "AS" + asn
	}
	return asn
}

// Number extracts the numeric part of an ASN in any accepted form.
func Number(asn string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(Normalize(asn), "AS"))
	if err != nil {
		return 0, fmt.Errorf("invalid ASN %q", asn)
	}
	return n, nil
}

// Client fetches announced prefixes for autonomous systems. The zero
// value is not usable; construct one with NewClient.
type Client struct {
	httpClient *http.Client
	log        *slog.Logger

	bgpviewURL  string
	ripestatURL string
	bgptoolsURL string

	cachePath string
	cacheTTL  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBGPViewURL overrides the BGPView API base URL.
func WithBGPViewURL(baseURL string) Option {
	return func(c *Client) {
		c.bgpviewURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRIPEstatURL overrides the RIPEstat API base URL.
func WithRIPEstatURL(baseURL string) Option {
	return func(c *Client) {
		c.ripestatURL = strings.TrimRight(baseURL, "/")
	}
}

// WithBGPToolsURL overrides the bgp.tools base URL.
func WithBGPToolsURL(baseURL string) Option {
	return func(c *Client) {
		c.bgptoolsURL = strings.TrimRight(baseURL, "/")
	}
}

// WithCachePath sets where the bgp.tools table cache is written.
func WithCachePath(path string) Option {
	return func(c *Client) {
		c.cachePath = path
	}
}

// WithCacheTTL sets how long a downloaded bgp.tools table stays fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// NewClient creates a prefix client querying the public endpoints.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		log:         logging.Nop(),
		bgpviewURL:  defaultBGPViewURL,
		ripestatURL: defaultRIPEstatURL,
		bgptoolsURL: defaultBGPToolsURL,
		cachePath:   DefaultCacheFile,
		cacheTTL:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prefixes returns the sorted union of prefixes every source announces
// for asn. A failing source is logged and skipped; only an unparseable
// ASN is an error. The result can legitimately be empty when no source
// answers.
func (c *Client) Prefixes(ctx context.Context, asn string) ([]string, error) {
	asn = Normalize(asn)
	number, err := Number(asn)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	collect := func(prefixes []string) {
		for _, p := range prefixes {
			seen[p] = struct{}{}
		}
	}

	prefixes, err := c.fetchBGPView(ctx, asn)
	if err != nil {
		c.log.Warn("bgpview fetch failed", "asn", asn, "error", err)
	}
	collect(prefixes)

	prefixes, err = c.fetchRIPEstat(ctx, asn)
	if err != nil {
		c.log.Warn("ripestat fetch failed", "asn", asn, "error", err)
	}
	collect(prefixes)

	prefixes, err = c.fetchBGPTools(ctx, number)
	if err != nil {
		c.log.Warn("bgp.tools fetch failed", "asn", asn, "error", err)
	}
	collect(prefixes)

	merged := make([]string, 0, len(seen))
	for p := range seen {
		merged = append(merged, p)
	}
	sort.Strings(merged)
	return merged, nil
}

// ExportResult describes one written prefix file.
type ExportResult struct {
	ASN   string
	Path  string
	Count int
}

// Export fetches prefixes for each ASN and writes <dest>/<ASN>.txt, one
// prefix per line. The destination directory is created when missing.
// A failing ASN does not stop the others; the failures come back joined
// alongside the results that did get written.
func (c *Client) Export(ctx context.Context, asns []string, dest string) ([]ExportResult, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("create destination directory %s: %w", dest, err)
	}

	var results []ExportResult
	var errs []error
	for _, raw := range asns {
		asn := Normalize(raw)
		prefixes, err := c.Prefixes(ctx, asn)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		path := filepath.Join(dest, asn+".txt")
		if err := writePrefixFile(path, prefixes); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", asn, err))
			continue
		}
		c.log.Info("wrote prefix list", "asn", asn, "path", path, "count", len(prefixes))
		results = append(results, ExportResult{ASN: asn, Path: path, Count: len(prefixes)})
	}
	return results, errors.Join(errs...)
}

// writePrefixFile writes prefixes one per line with a trailing newline.
func writePrefixFile(path string, prefixes []string) error {
	var buf bytes.Buffer
	for _, p := range prefixes {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write prefix file: %w", err)
	}
	return nil
}
