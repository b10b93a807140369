// Package report renders a copyvio result for people: Markdown for terminals
// and wikis, PDF for attaching to a report.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/copyvios/internal/copyvio"
)

// Report is one rendered check.
type Report struct {
	// Subject names the article, for example a page title or file name.
	Subject string
	// Mode is "check" or "compare".
	Mode        string
	Result      *copyvio.Result
	GeneratedAt time.Time
}

// Markdown renders r as a Markdown document.
func Markdown(r Report) string {
	res := r.Result
	var b strings.Builder
	subject := r.Subject
	if subject == "" {
		subject = "article"
	}
	fmt.Fprintf(&b, "# Copyvio report: %s\n\n", subject)

	verdict := "No violation"
	if res.Violation {
		verdict = "Suspected violation"
	}
	fmt.Fprintf(&b, "**%s** at %s confidence.\n\n", verdict, res.Percent())

	b.WriteString("## Details\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	if res.URL != "" {
		fmt.Fprintf(&b, "| Best match | [%s](%s) |\n", escapeCell(res.URL), res.URL)
	} else {
		b.WriteString("| Best match | none |\n")
	}
	fmt.Fprintf(&b, "| Confidence | %s |\n", res.Percent())
	if r.Mode != "" {
		fmt.Fprintf(&b, "| Mode | %s |\n", r.Mode)
	}
	fmt.Fprintf(&b, "| Queries | %d |\n", res.Queries)
	fmt.Fprintf(&b, "| Article fingerprint | %d |\n", res.ArticleChain.Size())
	fmt.Fprintf(&b, "| Source fingerprint | %d |\n", res.SourceChain.Size())
	fmt.Fprintf(&b, "| Shared | %d |\n", res.DeltaChain.Size())
	fmt.Fprintf(&b, "| Elapsed | %s |\n", res.Elapsed.Round(time.Millisecond))
	if res.CheckID != "" {
		fmt.Fprintf(&b, "| Check ID | %s |\n", res.CheckID)
	}
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "\nGenerated %s.\n", r.GeneratedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
