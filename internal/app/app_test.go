package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/copyvios/internal/search"
)

const articleWikitext = `'''Harbour Light''' was built by local fishermen in the winter of 1852 on the northern cape.
Its lamp burned whale oil until the harbour board installed a paraffin burner in 1870.
Three generations of the Mercer family kept the light burning through storms and two wars.
During the great gale of 1893 the keeper rowed out alone to rescue a stranded schooner crew.
The station was automated in 1978 and the keepers' cottages were sold to a local trust.`

func testConfig(t *testing.T, fixture string) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Search.Engine = "file"
	cfg.Search.Credentials = map[string]string{"path": fixture}
	cfg.Detector.InterQuerySleep = 0
	cfg.Fetch.RespectRobots = false
	cfg.Fetch.MaxAttempts = 1
	cfg.Cache.Dir = t.TempDir()
	cfg.Task.Ledger = filepath.Join(cfg.Cache.Dir, "ledger.db")
	return cfg
}

func writeFixture(t *testing.T, urls ...string) string {
	t.Helper()
	var results []search.Result
	for _, u := range urls {
		results = append(results, search.Result{Title: u, URL: u})
	}
	b, err := json.Marshal(map[string][]search.Result{"*": results})
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func copySite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/copy":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, "<html><body><article><p>%s</p></article></body></html>",
				strings.ReplaceAll(strings.ReplaceAll(articleWikitext, "'''", ""), "\n", "</p><p>"))
		case "/other":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "A recipe for sponge cake with eggs flour sugar and butter baked for twenty minutes.")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector.Order = 0
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestApp_CheckFindsCopy(t *testing.T) {
	srv := copySite(t)
	cfg := testConfig(t, writeFixture(t, srv.URL+"/other", srv.URL+"/copy"))
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := a.Check(context.Background(), articleWikitext)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Violation || res.URL != srv.URL+"/copy" || res.Confidence != 1 {
		t.Fatalf("expected full-confidence violation at /copy, got %v", res)
	}
	if res.Queries != 1 {
		t.Fatalf("expected to stop after one query, got %d", res.Queries)
	}
	// fetched pages land in the http cache
	entries, _ := os.ReadDir(filepath.Join(cfg.Cache.Dir, "http"))
	if len(entries) == 0 {
		t.Fatalf("expected http cache entries")
	}
}

func TestApp_CompareAndUnknownEngine(t *testing.T) {
	srv := copySite(t)
	cfg := testConfig(t, "")
	cfg.Search.Engine = "altavista"
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Check(context.Background(), articleWikitext); !errors.Is(err, search.ErrUnknownEngine) {
		t.Fatalf("expected unknown engine, got %v", err)
	}
	res, err := a.Compare(context.Background(), articleWikitext, srv.URL+"/other")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if res.Violation || res.Queries != 0 || res.URL != srv.URL+"/other" {
		t.Fatalf("unexpected compare result %v", res)
	}
}

func TestApp_TaskRunnerRequiresWiki(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Wiki.API = ""
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.TaskRunner(context.Background()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestApp_TaskRunnerWiring(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Wiki.API = "http://127.0.0.1:1/w/api.php"
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	r, closeFn, err := a.TaskRunner(context.Background())
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	defer closeFn()
	if r.Ledger == nil || r.Cache == nil || r.Pages == nil {
		t.Fatalf("runner not fully wired: %+v", r)
	}
	if r.Config.MinConfidence != 0.75 || r.Config.MaxQueries != 10 {
		t.Fatalf("unexpected task config %+v", r.Config)
	}
	if got := r.Pages("Draft:X").Title(); got != "Draft:X" {
		t.Fatalf("unexpected page title %q", got)
	}
}

func TestPrepareCache_ClearAndPurge(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.txt")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := prepareCache(CacheConfig{Dir: dir, Clear: true, MaxAge: time.Hour}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected cache to be cleared")
	}
}
