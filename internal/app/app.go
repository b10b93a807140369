// Package app wires configuration into a ready copyvio detector, the wiki
// client and the AfC task.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyvios/internal/cache"
	"github.com/hyperifyio/copyvios/internal/copyvio"
	"github.com/hyperifyio/copyvios/internal/fetch"
	"github.com/hyperifyio/copyvios/internal/ledger"
	"github.com/hyperifyio/copyvios/internal/mediawiki"
	"github.com/hyperifyio/copyvios/internal/robots"
	"github.com/hyperifyio/copyvios/internal/search"
	"github.com/hyperifyio/copyvios/internal/task"
	"github.com/hyperifyio/copyvios/internal/wikitext"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	cfg        Config
	httpClient *http.Client

	HTTPCache *cache.HTTPCache
	Results   *cache.ResultCache
	Fetcher   *fetch.Client
	Detector  *copyvio.Detector
}

// New validates cfg, tidies the cache directory and builds the detector.
// Nothing is fetched and no search backend is opened.
func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	ua := strings.TrimSpace(cfg.Fetch.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent()
		cfg.Fetch.UserAgent = ua
	}
	hc := newHTTPClient(0)
	a := &App{cfg: cfg, httpClient: hc}

	if cfg.Cache.Dir != "" {
		if err := prepareCache(cfg.Cache); err != nil {
			return nil, err
		}
		a.HTTPCache = &cache.HTTPCache{Dir: filepath.Join(cfg.Cache.Dir, "http"), StrictPerms: cfg.Cache.StrictPerms}
		a.Results = cache.NewResultCache(cfg.Cache.Dir, cfg.Cache.ResultTTL)
		a.Results.StrictPerms = cfg.Cache.StrictPerms
	} else {
		a.Results = cache.NewResultCache("", cfg.Cache.ResultTTL)
	}

	a.Fetcher = &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         ua,
		MaxAttempts:       cfg.Fetch.MaxAttempts,
		PerRequestTimeout: cfg.Fetch.Timeout,
		MaxBytes:          cfg.Fetch.MaxBytes,
		Cache:             a.HTTPCache,
		MaxConcurrent:     cfg.Fetch.MaxConcurrent,
	}
	if cfg.Fetch.RespectRobots {
		a.Fetcher.Robots = &robots.Manager{
			HTTPClient:  hc,
			Cache:       a.HTTPCache,
			UserAgent:   ua,
			EntryExpiry: 30 * time.Minute,
		}
	}

	creds := search.Credentials{}
	for k, v := range cfg.Search.Credentials {
		creds[strings.ToLower(k)] = v
	}
	a.Detector = &copyvio.Detector{
		Engine: cfg.Search.Engine,
		EngineOptions: search.Options{
			Credentials: creds,
			HTTPClient:  hc,
			UserAgent:   ua,
		},
		Fetcher: a.Fetcher,
		Parser: wikitext.Parser{
			MinWords:      wikitext.DefaultMinWords,
			MaxWords:      wikitext.DefaultMaxWords,
			DefaultChunks: cfg.Detector.Chunks,
		},
		Policy:         search.DomainPolicy{Allowlist: cfg.Search.Allow, Denylist: cfg.Search.Deny},
		Order:          cfg.Detector.Order,
		MinArticleSize: cfg.Detector.MinArticleSize,
		SearchLimit:    cfg.Detector.SearchLimit,
	}
	return a, nil
}

// Config returns the validated configuration.
func (a *App) Config() Config { return a.cfg }

// CheckOptions are the detector settings from the configuration.
func (a *App) CheckOptions() copyvio.CheckOptions {
	return copyvio.CheckOptions{
		MinConfidence:   a.cfg.Detector.MinConfidence,
		MaxQueries:      a.cfg.Detector.MaxQueries,
		InterQuerySleep: a.cfg.Detector.InterQuerySleep,
	}
}

// Check runs a full search-backed check of article wikitext.
func (a *App) Check(ctx context.Context, article string) (*copyvio.Result, error) {
	return a.Detector.Check(ctx, article, a.CheckOptions())
}

// Compare scores article against one URL.
func (a *App) Compare(ctx context.Context, article, url string) (*copyvio.Result, error) {
	return a.Detector.Compare(ctx, article, url, a.cfg.Detector.MinConfidence)
}

// Wiki returns a client for the configured wiki, logged in when a user is
// configured.
func (a *App) Wiki(ctx context.Context) (*mediawiki.Client, error) {
	if strings.TrimSpace(a.cfg.Wiki.API) == "" {
		return nil, fmt.Errorf("%w: wiki.api is required", ErrInvalidConfig)
	}
	client := mediawiki.New(a.cfg.Wiki.API, a.cfg.Fetch.UserAgent, a.httpClient)
	if a.cfg.Wiki.User != "" {
		if err := client.Login(ctx, a.cfg.Wiki.User, a.cfg.Wiki.Password); err != nil {
			return nil, err
		}
		log.Info().Str("api", a.cfg.Wiki.API).Str("user", client.User()).Msg("logged in to wiki")
	}
	return client, nil
}

// TaskRunner builds the AfC task over the wiki and the ledger. The returned
// close function releases the ledger.
func (a *App) TaskRunner(ctx context.Context) (*task.Runner, func() error, error) {
	wiki, err := a.Wiki(ctx)
	if err != nil {
		return nil, nil, err
	}
	tc := a.cfg.Task
	r := &task.Runner{
		Config: task.Config{
			Enabled:         tc.Enabled,
			Template:        tc.Template,
			Summary:         tc.Summary,
			IgnoreList:      tc.IgnoreList,
			MinConfidence:   tc.MinConfidence,
			MaxQueries:      tc.MaxQueries,
			InterQuerySleep: a.cfg.Detector.InterQuerySleep,
			Concurrency:     tc.Concurrency,
		},
		Detector: a.Detector,
		Cache:    a.Results,
		Pages:    func(title string) task.Page { return wiki.Page(title) },
	}
	closer := func() error { return nil }
	if tc.Ledger != "" {
		l, err := ledger.Open(tc.Ledger)
		if err != nil {
			return nil, nil, err
		}
		r.Ledger = l
		closer = l.Close
	}
	return r, closer, nil
}

// prepareCache applies clear, age and size limits before a run.
func prepareCache(c CacheConfig) error {
	if c.Clear {
		if err := cache.ClearDir(c.Dir); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		log.Info().Str("dir", c.Dir).Msg("cache cleared")
	}
	httpDir := filepath.Join(c.Dir, "http")
	if n, err := cache.PurgeHTTPCacheByAge(httpDir, c.MaxAge); err != nil {
		log.Warn().Err(err).Msg("http cache purge failed")
	} else if n > 0 {
		log.Debug().Int("removed", n).Msg("purged stale http cache entries")
	}
	if n, err := cache.PurgeResultsByAge(c.Dir, c.ResultTTL); err != nil {
		log.Warn().Err(err).Msg("result cache purge failed")
	} else if n > 0 {
		log.Debug().Int("removed", n).Msg("purged stale results")
	}
	if n, err := cache.EnforceHTTPCacheLimits(httpDir, c.MaxBytes, c.MaxCount); err != nil {
		log.Warn().Err(err).Msg("http cache limit enforcement failed")
	} else if n > 0 {
		log.Debug().Int("evicted", n).Msg("evicted http cache entries")
	}
	return nil
}
