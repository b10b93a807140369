package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const article = `'''Harbour Light''' was built by local fishermen in the winter of 1852 on the northern cape.
Its lamp burned whale oil until the harbour board installed a paraffin burner in 1870.
Three generations of the Mercer family kept the light burning through storms and two wars.
During the great gale of 1893 the keeper rowed out alone to rescue a stranded schooner crew.`

type fixture struct {
	dir     string
	config  string
	article string
	srv     *httptest.Server
}

func newFixture(t *testing.T, engine string) *fixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/copy" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, strings.ReplaceAll(article, "'''", ""))
	}))
	t.Cleanup(srv.Close)

	results := filepath.Join(dir, "results.json")
	writeFile(t, results, fmt.Sprintf(`{"*": [{"title": "copy", "url": %q}]}`, srv.URL+"/copy"))
	cfg := filepath.Join(dir, "config.yaml")
	writeFile(t, cfg, fmt.Sprintf(`search:
  engine: %s
  credentials:
    path: %s
detector:
  interQuerySleep: 0s
fetch:
  respectRobots: false
  maxAttempts: 1
cache:
  dir: %s
`, engine, results, filepath.Join(dir, "cache")))
	art := filepath.Join(dir, "article.wiki")
	writeFile(t, art, article)
	return &fixture{dir: dir, config: cfg, article: art, srv: srv}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	code, out, _ := runCLI(t, "", "version")
	if code != exitOK || !strings.HasPrefix(out, "copyvios 0.0.0-dev") {
		t.Fatalf("unexpected version output %d %q", code, out)
	}
}

func TestCheck_FileArticle(t *testing.T) {
	f := newFixture(t, "file")
	code, out, errOut := runCLI(t, "", "--config", f.config, "check", "--file", f.article)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "violation (100% confidence, 1 queries) at "+f.srv.URL+"/copy") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCheck_FailOnViolationAndJSON(t *testing.T) {
	f := newFixture(t, "file")
	code, out, errOut := runCLI(t, article, "--config", f.config, "check", "--json", "--fail-on-violation")
	if code != exitViolation {
		t.Fatalf("expected exit %d, got %d: %s", exitViolation, code, errOut)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected json output, got %q: %v", out, err)
	}
	if got["violation"] != true || got["percent"] != "100%" || got["mode"] != "check" || got["subject"] != "stdin" {
		t.Fatalf("unexpected json %v", got)
	}
}

func TestCheck_ReportFiles(t *testing.T) {
	f := newFixture(t, "file")
	md := filepath.Join(f.dir, "report.md")
	pdf := filepath.Join(f.dir, "report.pdf")
	code, _, errOut := runCLI(t, "", "--config", f.config, "check", "--file", f.article, "--md", md, "--pdf", pdf)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	b, err := os.ReadFile(md)
	if err != nil || !strings.Contains(string(b), "Suspected violation") {
		t.Fatalf("unexpected markdown %q %v", b, err)
	}
	p, err := os.ReadFile(pdf)
	if err != nil || !bytes.HasPrefix(p, []byte("%PDF-")) {
		t.Fatalf("expected pdf file, err=%v", err)
	}
}

func TestCheck_UnknownEngineIsConfigError(t *testing.T) {
	f := newFixture(t, "file")
	code, _, errOut := runCLI(t, "", "--config", f.config, "--engine", "altavista", "check", "--file", f.article)
	if code != exitConfig {
		t.Fatalf("expected exit %d, got %d: %s", exitConfig, code, errOut)
	}
	if !strings.Contains(errOut, "unknown engine") {
		t.Fatalf("expected cause on stderr, got %q", errOut)
	}
}

func TestCheck_InvalidFlagValue(t *testing.T) {
	f := newFixture(t, "file")
	code, _, _ := runCLI(t, "", "--config", f.config, "--min-confidence", "1.5", "check", "--file", f.article)
	if code != exitConfig {
		t.Fatalf("expected exit %d, got %d", exitConfig, code)
	}
}

func TestCheck_NoArticle(t *testing.T) {
	f := newFixture(t, "file")
	code, _, _ := runCLI(t, "", "--config", f.config, "check")
	if code != exitConfig {
		t.Fatalf("expected usage exit %d, got %d", exitConfig, code)
	}
}

func TestCompare_MarkdownToStdout(t *testing.T) {
	f := newFixture(t, "file")
	code, out, errOut := runCLI(t, "", "--config", f.config, "compare", f.srv.URL+"/missing", "--file", f.article, "--md", "-")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "no violation (0% confidence, 0 queries) at "+f.srv.URL+"/missing") {
		t.Fatalf("unexpected summary %q", out)
	}
	if !strings.Contains(out, "# Copyvio report: "+f.article) || !strings.Contains(out, "| Mode | compare |") {
		t.Fatalf("expected markdown report on stdout, got %q", out)
	}
}

func TestConfigShowAndInit(t *testing.T) {
	f := newFixture(t, "file")
	code, out, _ := runCLI(t, "", "--config", f.config, "config", "show")
	if code != exitOK || !strings.Contains(out, "engine: file") {
		t.Fatalf("unexpected config show %d %q", code, out)
	}
	target := filepath.Join(f.dir, "new", "config.yaml")
	code, out, _ = runCLI(t, "", "config", "init", "--path", target)
	if code != exitOK || !strings.Contains(out, target) {
		t.Fatalf("unexpected config init %d %q", code, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if code, _, _ = runCLI(t, "", "config", "init", "--path", target); code != exitError {
		t.Fatalf("expected refusal to overwrite, got %d", code)
	}
}

func TestTask_DisabledReportsLedger(t *testing.T) {
	f := newFixture(t, "file")
	t.Setenv("COPYVIOS_TASK_LEDGER", filepath.Join(f.dir, "ledger.db"))
	code, out, errOut := runCLI(t, "", "--config", f.config, "task", "--disabled", "Draft:Harbour Light")
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Draft:Harbour Light: skipped (disabled)") || !strings.Contains(out, "ledger: 0 pages processed") {
		t.Fatalf("unexpected output %q", out)
	}
}
