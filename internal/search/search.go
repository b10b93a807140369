// Package search queries web search engines for pages that may contain text
// copied from an article.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"` // provider name for observability
}

// Provider is a search engine backend. Implementations hold their own
// credentials, keep no state between calls and are safe for concurrent use.
// Results are ranked by the engine's relevance.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// URLs returns the result URLs in rank order, skipping empty ones.
func URLs(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if u := strings.TrimSpace(r.URL); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// DomainPolicy filters candidate URLs by host. Denylist takes precedence over
// Allowlist; an empty Allowlist allows every host. Entries match the host
// itself and all of its subdomains.
type DomainPolicy struct {
	Allowlist []string
	Denylist  []string
}

// Allows reports whether rawURL may be fetched under the policy.
func (p DomainPolicy) Allows(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range p.Denylist {
		if hostMatches(host, d) {
			return false
		}
	}
	if len(p.Allowlist) == 0 {
		return true
	}
	for _, a := range p.Allowlist {
		if hostMatches(host, a) {
			return true
		}
	}
	return false
}

func hostMatches(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// getJSON fetches rawURL and decodes its JSON body into out. The status is
// returned whenever a response arrived, even if decoding failed.
func getJSON(ctx context.Context, hc *http.Client, userAgent, rawURL string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
