package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestSearxNG_Search_ParsesResults(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Doc", "url": "https://example.com", "content": "snippet"},
				{"title": "Bad", "url": "", "content": "no url"},
			},
		})
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client(), UserAgent: "copyvios-test"}
	got, err := s.Search(context.Background(), `some "quoted" query`, 5)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 valid result, got %d", len(got))
	}
	if got[0].URL != "https://example.com" || got[0].Source != "searxng" {
		t.Fatalf("unexpected result: %+v", got[0])
	}
	if gotQuery != `"some quoted query"` {
		t.Fatalf("expected phrase query, got %q", gotQuery)
	}
	if gotUA != "copyvios-test" {
		t.Fatalf("expected user agent, got %q", gotUA)
	}
}

func TestSearxNG_Search_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := s.Search(context.Background(), "q", 5); err == nil {
		t.Fatalf("expected error for 429")
	}
}

func TestSearxNG_EndpointParams(t *testing.T) {
	s := &SearxNG{BaseURL: "https://searx.example/base/", APIKey: "k1"}
	raw, err := s.endpoint("a phrase", 7)
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if u.Path != "/base/search" || q.Get("count") != "7" || q.Get("apikey") != "k1" || q.Get("safesearch") != "0" || q.Get("format") != "json" {
		t.Fatalf("unexpected endpoint %s", raw)
	}
	if _, err := (&SearxNG{}).endpoint("q", 1); err == nil {
		t.Fatalf("expected error without base url")
	}
}
