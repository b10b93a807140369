// Package copyvio decides whether an article's text was copied from a page
// on the web. It searches for candidate sources chunk by chunk, fetches each
// candidate once, and scores overlap of word-sequence fingerprints.
package copyvio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyvios/internal/aggregate"
	"github.com/hyperifyio/copyvios/internal/extract"
	"github.com/hyperifyio/copyvios/internal/fetch"
	"github.com/hyperifyio/copyvios/internal/markov"
	"github.com/hyperifyio/copyvios/internal/search"
	"github.com/hyperifyio/copyvios/internal/wikitext"
)

// ErrCanceled is returned, wrapping the context's error, when a check is
// aborted. No partial result accompanies it.
var ErrCanceled = errors.New("copyvio check canceled")

const (
	// DefaultMinArticleSize is the smallest article fingerprint worth
	// searching for; smaller articles are never reported.
	DefaultMinArticleSize = 20
	// DefaultSearchLimit is the number of results requested per query.
	DefaultSearchLimit = 10
)

// Fetcher retrieves candidate pages. A nil response with a nil error means
// the page is absent; an error is only expected on cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Response, error)
}

// Selector opens a search backend by engine name.
type Selector interface {
	Open(name string, opts search.Options) (search.Provider, error)
}

// CheckOptions tune a single Check call.
type CheckOptions struct {
	// MinConfidence is the violation threshold and the early-stop point.
	MinConfidence float64
	// MaxQueries caps search queries; negative means no cap beyond the
	// parser's default chunk count.
	MaxQueries int
	// InterQuerySleep is the minimum spacing between queries; <= 0 disables it.
	InterQuerySleep time.Duration
}

// DefaultCheckOptions returns MinConfidence 0.5, no query cap and one second
// between queries.
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{MinConfidence: 0.5, MaxQueries: -1, InterQuerySleep: time.Second}
}

// Detector runs copyvio checks. Configure it once; it holds no per-call
// state, so one Detector may serve concurrent checks.
type Detector struct {
	// Backends resolves Engine. Nil means search.DefaultRegistry.
	Backends Selector
	Engine   string
	// EngineOptions carries the engine's credentials and HTTP settings.
	EngineOptions search.Options

	// Fetcher downloads candidates. Nil means a default fetch.Client.
	Fetcher Fetcher
	// Parser cuts article text into queries.
	Parser wikitext.Parser
	// Policy filters candidate hosts, for example the wiki itself.
	Policy search.DomainPolicy

	// Order is the fingerprint window length; 0 means markov.DefaultOrder.
	Order int
	// MinArticleSize is the auto-fail floor; 0 means DefaultMinArticleSize.
	MinArticleSize int
	// SearchLimit is the result count per query; 0 means DefaultSearchLimit.
	SearchLimit int

	Clock  Clock
	Logger *zerolog.Logger
}

func (d *Detector) order() int {
	if d.Order > 0 {
		return d.Order
	}
	return markov.DefaultOrder
}

func (d *Detector) minArticleSize() int {
	if d.MinArticleSize > 0 {
		return d.MinArticleSize
	}
	return DefaultMinArticleSize
}

func (d *Detector) searchLimit() int {
	if d.SearchLimit > 0 {
		return d.SearchLimit
	}
	return DefaultSearchLimit
}

func (d *Detector) clock() Clock {
	if d.Clock != nil {
		return d.Clock
	}
	return realClock{}
}

func (d *Detector) fetcher() Fetcher {
	if d.Fetcher != nil {
		return d.Fetcher
	}
	return &fetch.Client{MaxAttempts: 2, PerRequestTimeout: 15 * time.Second}
}

func (d *Detector) backends() Selector {
	if d.Backends != nil {
		return d.Backends
	}
	return search.DefaultRegistry
}

func (d *Detector) logger(checkID string) zerolog.Logger {
	base := log.Logger
	if d.Logger != nil {
		base = *d.Logger
	}
	return base.With().Str("check_id", checkID).Logger()
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
}

// call holds the state of one Check or Compare invocation.
type call struct {
	id      string
	start   time.Time
	log     zerolog.Logger
	fetch   Fetcher
	clean   string
	article *markov.Chain
	res     *Result
}

func (d *Detector) begin(article string) *call {
	id := uuid.NewString()
	order := d.order()
	clean := wikitext.Strip(article)
	articleChain := markov.NewChain(clean, order)
	empty := markov.Empty(order)
	return &call{
		id:      id,
		start:   d.clock().Now(),
		log:     d.logger(id),
		fetch:   d.fetcher(),
		clean:   clean,
		article: articleChain,
		res: &Result{
			CheckID:      id,
			ArticleChain: articleChain,
			SourceChain:  empty,
			DeltaChain:   markov.NewIntersection(articleChain, empty),
		},
	}
}

func (d *Detector) finish(c *call, minConfidence float64) *Result {
	c.res.Violation = c.res.Confidence >= minConfidence
	c.res.Elapsed = d.clock().Now().Sub(c.start)
	return c.res
}

// Check searches the web for sources of article (wikitext) and returns the
// best match found. Articles whose fingerprint is smaller than
// MinArticleSize are reported clean without selecting a backend. The only
// errors are backend selection failures (wrapping
// search.ErrEngineUnavailable) and cancellation (wrapping ErrCanceled).
func (d *Detector) Check(ctx context.Context, article string, opts CheckOptions) (*Result, error) {
	if ctx.Err() != nil {
		return nil, canceled(ctx)
	}
	c := d.begin(article)
	if c.article.Size() < d.minArticleSize() {
		c.log.Info().Int("article_size", c.article.Size()).Msg("article too short to check")
		return d.finish(c, opts.MinConfidence), nil
	}

	provider, err := d.backends().Open(d.Engine, d.EngineOptions)
	if err != nil {
		return nil, fmt.Errorf("select search engine: %w", err)
	}
	chunks := d.Parser.Chunk(c.clean, opts.MaxQueries)
	limiter := newPacer(opts.InterQuerySleep, d.clock())
	seen := aggregate.NewSet(d.Policy)
	c.log.Debug().Str("engine", provider.Name()).Int("chunks", len(chunks)).Int("article_size", c.article.Size()).Msg("starting search")

	for len(chunks) > 0 && c.res.Confidence < opts.MinConfidence && (opts.MaxQueries < 0 || c.res.Queries < opts.MaxQueries) {
		if err := limiter.wait(ctx); err != nil {
			return nil, canceled(ctx)
		}
		if ctx.Err() != nil {
			return nil, canceled(ctx)
		}
		chunk := chunks[0]
		chunks = chunks[1:]
		results, err := provider.Search(ctx, chunk, d.searchLimit())
		c.res.Queries++
		if err != nil {
			if ctx.Err() != nil {
				return nil, canceled(ctx)
			}
			c.log.Warn().Err(err).Str("engine", provider.Name()).Str("query", chunk).Msg("search failed, skipping chunk")
			continue
		}
		for _, u := range seen.Fresh(search.URLs(results)) {
			if err := d.compareURL(ctx, c, u); err != nil {
				return nil, err
			}
		}
	}

	res := d.finish(c, opts.MinConfidence)
	c.log.Info().Bool("violation", res.Violation).Float64("confidence", res.Confidence).
		Str("url", res.URL).Int("queries", res.Queries).Dur("elapsed", res.Elapsed).Msg("copyvio check finished")
	return res, nil
}

// Compare scores article against a single url without searching. Queries is
// always 0 and URL is always url, even when the page could not be fetched.
func (d *Detector) Compare(ctx context.Context, article string, url string, minConfidence float64) (*Result, error) {
	if ctx.Err() != nil {
		return nil, canceled(ctx)
	}
	c := d.begin(article)
	if err := d.compareURL(ctx, c, url); err != nil {
		return nil, err
	}
	c.res.URL = url
	res := d.finish(c, minConfidence)
	c.log.Info().Bool("violation", res.Violation).Float64("confidence", res.Confidence).
		Str("url", url).Msg("copyvio comparison finished")
	return res, nil
}

// compareURL fetches one candidate and updates the running best when it
// scores strictly higher. Absent pages score zero.
func (d *Detector) compareURL(ctx context.Context, c *call, url string) error {
	if ctx.Err() != nil {
		return canceled(ctx)
	}
	resp, err := c.fetch.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return canceled(ctx)
		}
		c.log.Debug().Err(err).Str("url", url).Msg("fetch error, treating page as absent")
		return nil
	}
	if resp == nil {
		c.log.Debug().Str("url", url).Float64("confidence", 0).Msg("candidate absent")
		return nil
	}
	source := markov.NewChain(extract.Normalize(resp.Body, resp.ContentType), d.order())
	delta := markov.NewIntersection(c.article, source)
	confidence := delta.Ratio()
	c.log.Debug().Str("url", url).Float64("confidence", confidence).Int("source_size", source.Size()).Int("delta_size", delta.Size()).Msg("candidate scored")
	if confidence > c.res.Confidence {
		c.res.Confidence = confidence
		c.res.URL = url
		c.res.SourceChain = source
		c.res.DeltaChain = delta
	}
	return nil
}
