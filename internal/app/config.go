package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is wrapped by every ValidateConfig failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime configuration for the application. Keys mirror the
// YAML file and the COPYVIOS_* environment variables.
type Config struct {
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Fetch    FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Wiki     WikiConfig     `mapstructure:"wiki" yaml:"wiki"`
	Task     TaskConfig     `mapstructure:"task" yaml:"task"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	LogJSON bool `mapstructure:"logJSON" yaml:"logJSON"`
}

// SearchConfig selects the search backend.
type SearchConfig struct {
	Engine      string            `mapstructure:"engine" yaml:"engine"`
	Credentials map[string]string `mapstructure:"credentials" yaml:"credentials"`
	// Allow and Deny filter candidate hosts; subdomains match.
	Allow []string `mapstructure:"allow" yaml:"allow"`
	Deny  []string `mapstructure:"deny" yaml:"deny"`
}

// DetectorConfig tunes copyvio checks.
type DetectorConfig struct {
	MinConfidence   float64       `mapstructure:"minConfidence" yaml:"minConfidence"`
	MaxQueries      int           `mapstructure:"maxQueries" yaml:"maxQueries"`
	InterQuerySleep time.Duration `mapstructure:"interQuerySleep" yaml:"interQuerySleep"`
	Order           int           `mapstructure:"order" yaml:"order"`
	MinArticleSize  int           `mapstructure:"minArticleSize" yaml:"minArticleSize"`
	Chunks          int           `mapstructure:"chunks" yaml:"chunks"`
	SearchLimit     int           `mapstructure:"searchLimit" yaml:"searchLimit"`
}

// FetchConfig controls candidate downloads.
type FetchConfig struct {
	UserAgent     string        `mapstructure:"userAgent" yaml:"userAgent"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxAttempts   int           `mapstructure:"maxAttempts" yaml:"maxAttempts"`
	MaxBytes      int64         `mapstructure:"maxBytes" yaml:"maxBytes"`
	MaxConcurrent int           `mapstructure:"maxConcurrent" yaml:"maxConcurrent"`
	RespectRobots bool          `mapstructure:"respectRobots" yaml:"respectRobots"`
}

// CacheConfig locates and bounds the on-disk caches. An empty Dir disables
// the HTTP cache and keeps results in memory.
type CacheConfig struct {
	Dir         string        `mapstructure:"dir" yaml:"dir"`
	MaxAge      time.Duration `mapstructure:"maxAge" yaml:"maxAge"`
	ResultTTL   time.Duration `mapstructure:"resultTTL" yaml:"resultTTL"`
	MaxBytes    int64         `mapstructure:"maxBytes" yaml:"maxBytes"`
	MaxCount    int           `mapstructure:"maxCount" yaml:"maxCount"`
	StrictPerms bool          `mapstructure:"strictPerms" yaml:"strictPerms"`
	Clear       bool          `mapstructure:"clear" yaml:"clear"`
}

// WikiConfig points at the wiki's action API.
type WikiConfig struct {
	API      string `mapstructure:"api" yaml:"api"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

// TaskConfig configures the AfC copyvio task.
type TaskConfig struct {
	Enabled       bool     `mapstructure:"enabled" yaml:"enabled"`
	Template      string   `mapstructure:"template" yaml:"template"`
	Summary       string   `mapstructure:"summary" yaml:"summary"`
	IgnoreList    []string `mapstructure:"ignoreList" yaml:"ignoreList"`
	MinConfidence float64  `mapstructure:"minConfidence" yaml:"minConfidence"`
	MaxQueries    int      `mapstructure:"maxQueries" yaml:"maxQueries"`
	Ledger        string   `mapstructure:"ledger" yaml:"ledger"`
	Concurrency   int      `mapstructure:"concurrency" yaml:"concurrency"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			Engine:      "searxng",
			Credentials: map[string]string{},
			Deny:        []string{"wikipedia.org", "wikimedia.org", "wikidata.org"},
		},
		Detector: DetectorConfig{
			MinConfidence:   0.5,
			MaxQueries:      -1,
			InterQuerySleep: time.Second,
			Order:           5,
			MinArticleSize:  20,
			Chunks:          10,
			SearchLimit:     10,
		},
		Fetch: FetchConfig{
			UserAgent:     DefaultUserAgent(),
			Timeout:       15 * time.Second,
			MaxAttempts:   2,
			MaxBytes:      10 << 20,
			MaxConcurrent: 4,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Dir:       ".copyvios-cache",
			MaxAge:    7 * 24 * time.Hour,
			ResultTTL: 24 * time.Hour,
		},
		Wiki: WikiConfig{
			API: "https://en.wikipedia.org/w/api.php",
		},
		Task: TaskConfig{
			Enabled:       true,
			Template:      "AfC suspected copyvio",
			Summary:       "Tagging suspected [[WP:COPYVIO|copyright violation]] of {url}",
			MinConfidence: 0.75,
			MaxQueries:    10,
			Ledger:        ".copyvios-cache/ledger.db",
			Concurrency:   2,
		},
	}
}

// ValidateConfig rejects settings no check can run with.
func ValidateConfig(cfg Config) error {
	var problems []string
	if strings.TrimSpace(cfg.Search.Engine) == "" {
		problems = append(problems, "search.engine is required")
	}
	if c := cfg.Detector.MinConfidence; c <= 0 || c > 1 {
		problems = append(problems, fmt.Sprintf("detector.minConfidence must be in (0,1], got %v", c))
	}
	if c := cfg.Task.MinConfidence; c <= 0 || c > 1 {
		problems = append(problems, fmt.Sprintf("task.minConfidence must be in (0,1], got %v", c))
	}
	if cfg.Detector.InterQuerySleep < 0 {
		problems = append(problems, "detector.interQuerySleep must not be negative")
	}
	if cfg.Detector.Order < 2 {
		problems = append(problems, fmt.Sprintf("detector.order must be at least 2, got %d", cfg.Detector.Order))
	}
	if cfg.Detector.MinArticleSize < 0 || cfg.Detector.Chunks < 0 || cfg.Detector.SearchLimit < 0 {
		problems = append(problems, "detector limits must not be negative")
	}
	if cfg.Fetch.Timeout < 0 || cfg.Fetch.MaxAttempts < 0 || cfg.Fetch.MaxBytes < 0 || cfg.Fetch.MaxConcurrent < 0 {
		problems = append(problems, "fetch limits must not be negative")
	}
	if cfg.Cache.MaxAge < 0 || cfg.Cache.ResultTTL < 0 || cfg.Cache.MaxBytes < 0 || cfg.Cache.MaxCount < 0 {
		problems = append(problems, "cache limits must not be negative")
	}
	if cfg.Task.Concurrency < 0 {
		problems = append(problems, "task.concurrency must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
