package asn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Public endpoints and their per-request deadlines. The bgp.tools table
// is a full-table dump, hence the longer budget.
const (
	defaultBGPViewURL  = "https://api.bgpview.io"
	defaultRIPEstatURL = "https://stat.ripe.net"
	defaultBGPToolsURL = "https://bgp.tools"

	bgpviewTimeout  = 10 * time.Second
	ripestatTimeout = 10 * time.Second
	bgptoolsTimeout = 30 * time.Second
)

// browserUserAgent identifies us to bgp.tools, which refuses generic
// client agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/100 Safari/537.36"

type bgpviewResponse struct {
	Status string `json:"status"`
	Data   struct {
		IPv4Prefixes []bgpviewPrefix `json:"ipv4_prefixes"`
		IPv6Prefixes []bgpviewPrefix `json:"ipv6_prefixes"`
	} `json:"data"`
}

type bgpviewPrefix struct {
	Prefix string `json:"prefix"`
}

// fetchBGPView queries the BGPView API for both address families.
func (c *Client) fetchBGPView(ctx context.Context, asn string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, bgpviewTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/asn/%s/prefixes", c.bgpviewURL, asn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bgpview: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bgpview: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bgpview: unexpected status %d", resp.StatusCode)
	}

	var payload bgpviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("bgpview: decode response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("bgpview: API status %q", payload.Status)
	}

	var prefixes []string
	for _, entry := range payload.Data.IPv4Prefixes {
		if entry.Prefix != "" {
			prefixes = append(prefixes, entry.Prefix)
		}
	}
	for _, entry := range payload.Data.IPv6Prefixes {
		if entry.Prefix != "" {
			prefixes = append(prefixes, entry.Prefix)
		}
	}
	return prefixes, nil
}

type ripestatResponse struct {
	Status string `json:"status"`
	Data   struct {
		Prefixes []ripestatPrefix `json:"prefixes"`
	} `json:"data"`
}

type ripestatPrefix struct {
	Prefix string `json:"prefix"`
}

// fetchRIPEstat queries the RIPEstat announced-prefixes endpoint.
func (c *Client) fetchRIPEstat(ctx context.Context, asn string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ripestatTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/data/announced-prefixes/data.json?resource=%s", c.ripestatURL, asn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ripestat: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ripestat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ripestat: unexpected status %d", resp.StatusCode)
	}

	var payload ripestatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ripestat: decode response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("ripestat: API status %q", payload.Status)
	}

	var prefixes []string
	for _, entry := range payload.Data.Prefixes {
		if entry.Prefix != "" {
			prefixes = append(prefixes, entry.Prefix)
		}
	}
	return prefixes, nil
}

// tableEntry is one line of the bgp.tools JSONL table.
type tableEntry struct {
	CIDR string `json:"CIDR"`
	ASN  int    `json:"ASN"`
}

// fetchBGPTools scans the (cached) bgp.tools table for prefixes announced
// by the numeric ASN. Malformed lines are skipped.
func (c *Client) fetchBGPTools(ctx context.Context, number int) ([]string, error) {
	lines, err := c.tableLines(ctx)
	if err != nil {
		return nil, err
	}

	var prefixes []string
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		var entry tableEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.ASN == number && entry.CIDR != "" {
			prefixes = append(prefixes, entry.CIDR)
		}
	}
	return prefixes, nil
}
