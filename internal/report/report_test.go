package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/copyvios/internal/copyvio"
	"github.com/hyperifyio/copyvios/internal/markov"
)

func sampleResult() *copyvio.Result {
	a := markov.NewChain("the keeper rowed out alone to rescue a stranded schooner crew in the gale", 0)
	return &copyvio.Result{
		Violation:    true,
		Confidence:   0.8751,
		URL:          "https://copy.example/page",
		Queries:      3,
		ArticleChain: a,
		SourceChain:  a,
		DeltaChain:   markov.NewIntersection(a, a),
		CheckID:      "abc-123",
		Elapsed:      2 * time.Second,
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(Report{Subject: "Draft:Lighthouse", Mode: "check", Result: sampleResult(), GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	for _, want := range []string{
		"# Copyvio report: Draft:Lighthouse",
		"**Suspected violation** at 87.51% confidence.",
		"| Best match | [https://copy.example/page](https://copy.example/page) |",
		"| Queries | 3 |",
		"| Check ID | abc-123 |",
		"Generated 2024-01-02T03:04:05Z.",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
}

func TestMarkdown_NoMatch(t *testing.T) {
	md := Markdown(Report{Result: &copyvio.Result{}})
	if !strings.Contains(md, "**No violation** at 0% confidence.") || !strings.Contains(md, "| Best match | none |") {
		t.Fatalf("unexpected markdown:\n%s", md)
	}
}

func TestPDF(t *testing.T) {
	b, err := PDF(Markdown(Report{Subject: "Café", Result: sampleResult()}))
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) || len(b) < 500 {
		t.Fatalf("expected a pdf document, got %d bytes", len(b))
	}
}

func TestTableLine(t *testing.T) {
	if got := tableLine(`| Best match | a\|b |`); got != "Best match: a|b" {
		t.Fatalf("unexpected %q", got)
	}
}
