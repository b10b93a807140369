// Package aggregate canonicalizes candidate URLs and remembers which ones a
// single check has already looked at.
package aggregate

import (
	"net/url"
	"strings"

	"github.com/hyperifyio/copyvios/internal/search"
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"}

// Canonical normalizes rawURL for de-duplication: lower-case scheme and host,
// no fragment, no default port, no tracking parameters. ok is false for
// anything that is not an absolute http(s) URL.
func Canonical(rawURL string) (canon string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	normalizeURL(u)
	return u.String(), true
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && u.Port() == "80") || (u.Scheme == "https" && u.Port() == "443") {
		u.Host = u.Hostname()
	}
	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range trackingParams {
			q.Del(p)
		}
		u.RawQuery = q.Encode()
	}
}

// Set tracks the URLs seen during one check. It is not safe for concurrent
// use; every check owns its own Set.
type Set struct {
	policy search.DomainPolicy
	seen   map[string]struct{}
}

// NewSet returns an empty set that also rejects URLs the policy denies.
func NewSet(policy search.DomainPolicy) *Set {
	return &Set{policy: policy, seen: make(map[string]struct{})}
}

// Fresh returns each URL whose canonical form was not seen before, in input
// order and as given, and records them. Invalid and policy-denied URLs are
// dropped.
func (s *Set) Fresh(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		canon, ok := Canonical(raw)
		if !ok {
			continue
		}
		if _, dup := s.seen[canon]; dup {
			continue
		}
		s.seen[canon] = struct{}{}
		if !s.policy.Allows(canon) {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// Len is the number of distinct URLs recorded.
func (s *Set) Len() int { return len(s.seen) }

// MergeAndNormalize merges results from several queries, canonicalizes their
// URLs and keeps the first result for each URL.
func MergeAndNormalize(groups [][]search.Result) []search.Result {
	seen := map[string]struct{}{}
	out := make([]search.Result, 0, 64)
	for _, g := range groups {
		for _, r := range g {
			key, ok := Canonical(r.URL)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			r.URL = key
			out = append(out, r)
		}
	}
	return out
}
