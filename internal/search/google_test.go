package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGoogle_Search_ParsesItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("cx") != "engine" || q.Get("num") != "10" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"title":"A","link":"https://a.example/x","snippet":"s"},{"title":"B","link":""}]}`))
	}))
	defer srv.Close()

	g := &Google{APIKey: "k", EngineID: "engine", BaseURL: srv.URL, HTTPClient: srv.Client()}
	got, err := g.Search(context.Background(), "some words", 50)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://a.example/x" || got[0].Source != "google" {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestGoogle_Search_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	g := &Google{APIKey: "k", EngineID: "engine", BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := g.Search(context.Background(), "q", 5); err == nil {
		t.Fatalf("expected api error")
	}
}
