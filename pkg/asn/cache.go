package asn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Cache settings for the bgp.tools table dump. The table runs to tens of
// megabytes and updates slowly, so one download a day is plenty.
const (
	// DefaultCacheFile is where the table is cached, relative to the
	// working directory unless overridden with WithCachePath.
	DefaultCacheFile = "bgp_tools_cache.jsonl"

	// DefaultCacheTTL is how long a downloaded table stays fresh.
	DefaultCacheTTL = 24 * time.Hour
)

// tableLines returns the bgp.tools table split into JSONL lines. A fresh
// cache short-circuits the download; when the download fails, a stale
// cache is better than nothing.
func (c *Client) tableLines(ctx context.Context) ([]string, error) {
	if data, ok := c.freshCache(); ok {
		return splitLines(data), nil
	}

	data, err := c.downloadTable(ctx)
	if err != nil {
		if stale, readErr := os.ReadFile(c.cachePath); readErr == nil {
			c.log.Warn("bgp.tools download failed, falling back to stale cache",
				"path", c.cachePath, "error", err)
			return splitLines(stale), nil
		}
		return nil, err
	}
	return splitLines(data), nil
}

// freshCache reads the cache file if it exists and is younger than the
// TTL.
func (c *Client) freshCache() ([]byte, bool) {
	info, err := os.Stat(c.cachePath)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) >= c.cacheTTL {
		return nil, false
	}
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		c.log.Warn("failed to read bgp.tools cache", "path", c.cachePath, "error", err)
		return nil, false
	}
	return data, true
}

// downloadTable fetches the full table and refreshes the cache. A cache
// write failure is logged, not fatal: the downloaded data still serves
// this run.
func (c *Client) downloadTable(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, bgptoolsTimeout)
	defer cancel()

	url := c.bgptoolsURL + "/table.jsonl"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bgp.tools: build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	c.log.Info("downloading bgp.tools table", "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bgp.tools: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bgp.tools: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bgp.tools: read response: %w", err)
	}

	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		c.log.Warn("failed to write bgp.tools cache", "path", c.cachePath, "error", err)
	}
	return data, nil
}

func splitLines(data []byte) []string {
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
}
