package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/hyperifyio/copyvios/internal/app"
	"github.com/hyperifyio/copyvios/internal/copyvio"
	"github.com/hyperifyio/copyvios/internal/report"
)

// outputFlags select how a result is printed and saved.
type outputFlags struct {
	file            string
	jsonOut         bool
	mdPath          string
	pdfPath         string
	failOnViolation bool
}

func (o *outputFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.file, "file", "", "read article wikitext from a file (\"-\" for stdin)")
	flags.BoolVar(&o.jsonOut, "json", false, "print the result as JSON")
	flags.StringVar(&o.mdPath, "md", "", "write a Markdown report to this path (\"-\" for stdout)")
	flags.StringVar(&o.pdfPath, "pdf", "", "write a PDF report to this path")
	flags.BoolVar(&o.failOnViolation, "fail-on-violation", false, "exit with status 3 when a violation is found")
}

// jsonResult is the JSON form of a result.
type jsonResult struct {
	Subject string `json:"subject,omitempty"`
	Mode    string `json:"mode"`
	copyvio.Summary
	Percent string `json:"percent"`
}

// emit prints res and writes the requested reports.
func (c *cli) emit(o *outputFlags, subject, mode string, res *copyvio.Result) error {
	if o.jsonOut {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonResult{Subject: subject, Mode: mode, Summary: res.Summary(), Percent: res.Percent()}); err != nil {
			return err
		}
	} else {
		name := subject
		if name == "" {
			name = "article"
		}
		fmt.Fprintf(c.stdout, "%s: %s\n", name, res)
	}

	if o.mdPath != "" || o.pdfPath != "" {
		md := report.Markdown(report.Report{Subject: subject, Mode: mode, Result: res, GeneratedAt: time.Now()})
		if o.mdPath == "-" {
			fmt.Fprint(c.stdout, md)
		} else if o.mdPath != "" {
			if err := os.WriteFile(o.mdPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write markdown: %w", err)
			}
		}
		if o.pdfPath != "" {
			b, err := report.PDF(md)
			if err != nil {
				return fmt.Errorf("render pdf: %w", err)
			}
			if err := os.WriteFile(o.pdfPath, b, 0o644); err != nil {
				return fmt.Errorf("write pdf: %w", err)
			}
		}
	}
	if o.failOnViolation && res.Violation {
		return errViolation
	}
	return nil
}

// readArticle returns the article wikitext and a subject naming it: from
// --file, from the wiki when a title is given, else from stdin.
func (c *cli) readArticle(ctx context.Context, a *app.App, o *outputFlags, title string) (string, string, error) {
	switch {
	case o.file == "-":
		text, err := readAll(c.stdin)
		return text, "stdin", err
	case o.file != "":
		b, err := os.ReadFile(o.file)
		if err != nil {
			return "", "", fmt.Errorf("read article: %w", err)
		}
		return string(b), o.file, nil
	case title != "":
		wiki, err := a.Wiki(ctx)
		if err != nil {
			return "", "", err
		}
		text, err := wiki.Page(title).Get(ctx)
		if err != nil {
			return "", "", err
		}
		return text, title, nil
	default:
		text, err := readAll(c.stdin)
		if err != nil {
			return "", "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", "", fmt.Errorf("%w: no article given; pass a title, --file or pipe wikitext on stdin", errUsage)
		}
		return text, "stdin", nil
	}
}

func readAll(r io.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
