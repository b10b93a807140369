package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SearxNG queries a SearxNG instance through its JSON API. Queries are sent
// as exact phrases, since only verbatim copies are of interest.
type SearxNG struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	endpoint, err := s.endpoint(query, limit)
	if err != nil {
		return nil, err
	}
	var body struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	status, err := getJSON(ctx, s.HTTPClient, s.UserAgent, endpoint, &body)
	if status != 0 && (status < 200 || status > 299) {
		return nil, fmt.Errorf("searxng: status %d", status)
	}
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	out := make([]Result, 0, min(limit, len(body.Results)))
	for _, r := range body.Results {
		link := strings.TrimSpace(r.URL)
		if link == "" {
			continue
		}
		out = append(out, Result{Title: strings.TrimSpace(r.Title), URL: link, Snippet: strings.TrimSpace(r.Content), Source: s.Name()})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// endpoint builds the /search URL for one phrase query.
func (s *SearxNG) endpoint(query string, limit int) (string, error) {
	if strings.TrimSpace(s.BaseURL) == "" {
		return "", fmt.Errorf("searxng: base url not set")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("searxng: base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	phrase := `"` + strings.ReplaceAll(query, `"`, "") + `"`
	v := u.Query()
	v.Set("q", phrase)
	v.Set("format", "json")
	v.Set("categories", "general")
	v.Set("language", "auto")
	// filtered results could hide the copy
	v.Set("safesearch", "0")
	v.Set("count", strconv.Itoa(limit))
	if s.APIKey != "" {
		v.Set("apikey", s.APIKey)
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}
