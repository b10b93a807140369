// Package task is the AfC copyvio task: it checks submitted drafts once each
// and tags the ones that look copied.
package task

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyvios/internal/cache"
	"github.com/hyperifyio/copyvios/internal/copyvio"
	"github.com/hyperifyio/copyvios/internal/ledger"
)

// Defaults applied by DefaultConfig.
const (
	DefaultTemplate      = "AfC suspected copyvio"
	DefaultSummary       = "Tagging suspected [[WP:COPYVIO|copyright violation]] of {url}"
	DefaultMinConfidence = 0.75
	DefaultMaxQueries    = 10
	DefaultConcurrency   = 2
)

// ErrNoPages is reported by RunBatch when the Runner cannot open pages.
var ErrNoPages = errors.New("task runner has no page source")

// Page is the wiki page being checked.
type Page interface {
	Title() string
	PageID(ctx context.Context) (int64, error)
	Get(ctx context.Context) (string, error)
	Edit(ctx context.Context, text, summary string) error
}

// Ledger remembers which pages were checked.
type Ledger interface {
	HasBeenProcessed(ctx context.Context, pageID int64) (bool, error)
	MarkProcessed(ctx context.Context, pageID int64) error
}

// Checker is the part of copyvio.Detector the task uses.
type Checker interface {
	Check(ctx context.Context, article string, opts copyvio.CheckOptions) (*copyvio.Result, error)
	Compare(ctx context.Context, article, url string, minConfidence float64) (*copyvio.Result, error)
}

// Config controls the task.
type Config struct {
	// Enabled false turns Run into a no-op.
	Enabled         bool
	Template        string
	Summary         string
	IgnoreList      []string
	MinConfidence   float64
	MaxQueries      int
	InterQuerySleep time.Duration
	Concurrency     int
}

// DefaultConfig returns the task defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Template:        DefaultTemplate,
		Summary:         DefaultSummary,
		MinConfidence:   DefaultMinConfidence,
		MaxQueries:      DefaultMaxQueries,
		InterQuerySleep: time.Second,
		Concurrency:     DefaultConcurrency,
	}
}

// Skip reasons reported in Outcome.Skipped.
const (
	SkipDisabled  = "disabled"
	SkipIgnored   = "ignored"
	SkipProcessed = "already processed"
)

// Outcome describes what Run did with one page.
type Outcome struct {
	Title   string
	PageID  int64
	Skipped string
	Result  *copyvio.Result
	// Cached is true when a remembered URL was compared instead of searching.
	Cached bool
	Tagged bool
	Err    error
}

// Runner runs the task. Ledger and Cache are optional.
type Runner struct {
	Config   Config
	Detector Checker
	Ledger   Ledger
	Cache    *cache.ResultCache
	// Pages opens a page by title for RunBatch.
	Pages func(title string) Page
}

// Run checks one page. Pages on the ignore list or already in the ledger are
// skipped. A violation prepends the notice template and saves the page. The
// page is marked processed after every completed check, whatever its verdict.
func (r *Runner) Run(ctx context.Context, page Page) (*Outcome, error) {
	title := page.Title()
	out := &Outcome{Title: title}
	if !r.Config.Enabled {
		out.Skipped = SkipDisabled
		return out, nil
	}
	if slices.Contains(r.Config.IgnoreList, title) {
		log.Info().Str("title", title).Msg("skipping page in ignore list")
		out.Skipped = SkipIgnored
		return out, nil
	}
	pageID, err := page.PageID(ctx)
	if err != nil {
		return out, fmt.Errorf("page id: %w", err)
	}
	out.PageID = pageID
	if r.Ledger != nil {
		done, err := r.Ledger.HasBeenProcessed(ctx, pageID)
		if err != nil {
			return out, fmt.Errorf("ledger: %w", err)
		}
		if done {
			log.Info().Str("title", title).Msg("skipping check on already processed page")
			out.Skipped = SkipProcessed
			return out, nil
		}
	}
	content, err := page.Get(ctx)
	if err != nil {
		return out, fmt.Errorf("get page: %w", err)
	}

	log.Info().Str("title", title).Int64("page_id", pageID).Msg("checking page")
	res, cached, err := r.check(ctx, pageID, content)
	if err != nil {
		return out, err
	}
	out.Result = res
	out.Cached = cached
	r.remember(ctx, title, pageID, res, cached)

	if res.Violation {
		if err := page.Edit(ctx, Notice(r.Config.Template, res)+"\n"+content, Summary(r.Config.Summary, res.URL)); err != nil {
			return out, fmt.Errorf("tag page: %w", err)
		}
		out.Tagged = true
		log.Warn().Str("title", title).Str("url", res.URL).Str("confidence", res.Percent()).Msg("found violation")
	} else {
		log.Debug().Str("title", title).Str("url", res.URL).Str("confidence", res.Percent()).Msg("no violations detected")
	}

	if r.Ledger != nil {
		if err := r.Ledger.MarkProcessed(ctx, pageID); err != nil {
			if !errors.Is(err, ledger.ErrAlreadyProcessed) {
				return out, fmt.Errorf("mark processed: %w", err)
			}
			log.Warn().Str("title", title).Msg("page was processed concurrently")
		}
	}
	return out, nil
}

// check compares against a remembered source when one is cached, else
// searches.
func (r *Runner) check(ctx context.Context, pageID int64, content string) (*copyvio.Result, bool, error) {
	if entry, ok, err := r.Cache.Get(ctx, cacheKey(pageID)); err == nil && ok {
		res, err := r.Detector.Compare(ctx, content, entry.URL, r.Config.MinConfidence)
		if err != nil {
			return nil, false, err
		}
		return res, true, nil
	}
	res, err := r.Detector.Check(ctx, content, copyvio.CheckOptions{
		MinConfidence:   r.Config.MinConfidence,
		MaxQueries:      r.Config.MaxQueries,
		InterQuerySleep: r.Config.InterQuerySleep,
	})
	if err != nil {
		return nil, false, err
	}
	return res, false, nil
}

// remember keeps the best URL of a search for later runs. A cached source
// keeps its original age; one that no longer matches is forgotten so the
// next run searches again.
func (r *Runner) remember(ctx context.Context, title string, pageID int64, res *copyvio.Result, cached bool) {
	key := cacheKey(pageID)
	if cached {
		if res.Confidence > 0 {
			return
		}
		if err := r.Cache.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("title", title).Msg("result cache delete failed")
		}
		log.Debug().Str("title", title).Str("url", res.URL).Msg("cached source no longer matches")
		return
	}
	if res.URL == "" {
		return
	}
	entry := cache.ResultEntry{URL: res.URL, Confidence: res.Confidence, Violation: res.Violation}
	if err := r.Cache.Save(ctx, key, entry); err != nil {
		log.Warn().Err(err).Str("title", title).Msg("result cache save failed")
	}
}

// RunBatch runs every title with at most Config.Concurrency pages in flight.
// Outcomes are in title order; each carries its own error.
func (r *Runner) RunBatch(ctx context.Context, titles []string) []Outcome {
	outcomes := make([]Outcome, len(titles))
	if r.Pages == nil {
		for i, title := range titles {
			outcomes[i] = Outcome{Title: title, Err: ErrNoPages}
		}
		return outcomes
	}
	workers := r.Config.Concurrency
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(idx int, title string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				outcomes[idx] = Outcome{Title: title, Err: ctx.Err()}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			out, err := r.Run(ctx, r.Pages(title))
			if out == nil {
				out = &Outcome{Title: title}
			}
			out.Err = err
			if err != nil {
				log.Error().Err(err).Str("title", title).Msg("copyvio task failed")
			}
			outcomes[idx] = *out
		}(i, title)
	}
	wg.Wait()
	return outcomes
}

// Notice renders the template call prepended to a tagged page.
func Notice(template string, res *copyvio.Result) string {
	return fmt.Sprintf("{{%s|url=%s|confidence=%s}}", template, res.URL, res.Percent())
}

// Summary fills {url} in the edit summary when present.
func Summary(summary, url string) string {
	return strings.ReplaceAll(summary, "{url}", url)
}

func cacheKey(pageID int64) string {
	return "page:" + strconv.FormatInt(pageID, 10)
}
