package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_UnknownEngine(t *testing.T) {
	_, err := Open("altavista", Options{})
	if !errors.Is(err, ErrUnknownEngine) || !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected unknown engine error, got %v", err)
	}
	if errors.Is(err, ErrUnsupportedEngine) {
		t.Fatalf("unknown engine must not be reported as unsupported")
	}
}

func TestOpen_MissingCredentials(t *testing.T) {
	for _, name := range []string{"searxng", "google", "file"} {
		_, err := Open(name, Options{Credentials: Credentials{"cx": "only-cx"}})
		if !errors.Is(err, ErrUnsupportedEngine) || !errors.Is(err, ErrEngineUnavailable) {
			t.Fatalf("%s: expected unsupported engine error, got %v", name, err)
		}
	}
}

func TestOpen_CaseInsensitive(t *testing.T) {
	p, err := Open("SearXNG", Options{Credentials: Credentials{"url": "http://localhost:8888"}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if p.Name() != "searxng" {
		t.Fatalf("unexpected provider %q", p.Name())
	}
}

func TestRegistry_CustomFactory(t *testing.T) {
	r := NewRegistry()
	r.Register("fixture", func(o Options) (Provider, error) {
		return &FileProvider{Path: o.Credentials.Get("path")}, nil
	})
	if got := r.Names(); len(got) != 1 || got[0] != "fixture" {
		t.Fatalf("unexpected names %v", got)
	}
	if _, err := r.Open("searxng", Options{}); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("expected default engines to be absent from a new registry, got %v", err)
	}
}

func TestFileProvider_ArrayAndQueryMap(t *testing.T) {
	dir := t.TempDir()
	arr := filepath.Join(dir, "arr.json")
	if err := os.WriteFile(arr, []byte(`[{"title":"Alpha page","url":"https://a.example","snippet":"first"},{"title":"Beta","url":"https://b.example","snippet":"alpha in snippet"},{"title":"Gamma","url":"https://c.example"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	p := &FileProvider{Path: arr}
	got, err := p.Search(context.Background(), "ALPHA", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Source != "file" {
		t.Fatalf("unexpected results %+v", got)
	}

	byQuery := filepath.Join(dir, "map.json")
	if err := os.WriteFile(byQuery, []byte(`{"exact words":[{"url":"https://x.example"}],"*":[{"url":"https://fallback.example"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	p = &FileProvider{Path: byQuery}
	got, _ = p.Search(context.Background(), "exact words", 5)
	if len(URLs(got)) != 1 || got[0].URL != "https://x.example" {
		t.Fatalf("unexpected exact results %+v", got)
	}
	got, _ = p.Search(context.Background(), "anything else", 5)
	if len(got) != 1 || got[0].URL != "https://fallback.example" {
		t.Fatalf("unexpected fallback results %+v", got)
	}
}

func TestDomainPolicy_Allows(t *testing.T) {
	p := DomainPolicy{Denylist: []string{"wikipedia.org"}}
	if p.Allows("https://en.wikipedia.org/wiki/X") {
		t.Fatalf("expected subdomain of denied host to be blocked")
	}
	if !p.Allows("https://example.com/page") {
		t.Fatalf("expected other hosts to be allowed")
	}
	if p.Allows("not a url") {
		t.Fatalf("expected hostless url to be rejected")
	}
	p = DomainPolicy{Allowlist: []string{"example.com"}, Denylist: []string{"bad.example.com"}}
	if !p.Allows("https://www.example.com") || p.Allows("https://bad.example.com") || p.Allows("https://other.org") {
		t.Fatalf("unexpected allowlist evaluation")
	}
}
