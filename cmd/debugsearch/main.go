// Command debugsearch sends queries to one search backend and prints the
// merged, de-duplicated candidate URLs the detector would fetch.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyvios/internal/aggregate"
	"github.com/hyperifyio/copyvios/internal/search"
)

// credFlags collects repeated -cred key=value flags.
type credFlags search.Credentials

func (c credFlags) String() string { return fmt.Sprint(map[string]string(c)) }

func (c credFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	c[strings.ToLower(strings.TrimSpace(k))] = v
	return nil
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	creds := credFlags{}
	engine := flag.String("engine", "searxng", "search engine: "+strings.Join(search.DefaultRegistry.Names(), ", "))
	limit := flag.Int("limit", 5, "results per query")
	flag.Var(creds, "cred", "engine credential as key=value (repeatable)")
	flag.Parse()
	if _, ok := creds["url"]; !ok && os.Getenv("SEARX_URL") != "" {
		creds["url"] = os.Getenv("SEARX_URL")
	}
	queries := flag.Args()
	if len(queries) == 0 {
		queries = []string{"The lighthouse on the northern cape was built by local fishermen"}
	}

	prov, err := search.Open(*engine, search.Options{
		Credentials: search.Credentials(creds),
		HTTPClient:  &http.Client{Timeout: 20 * time.Second},
		UserAgent:   "debugsearch/1.0",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("open engine")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	var groups [][]search.Result
	for _, q := range queries {
		res, err := prov.Search(ctx, q, *limit)
		if err != nil {
			log.Warn().Err(err).Str("query", q).Msg("search failed")
			continue
		}
		log.Info().Str("query", q).Int("results", len(res)).Msg("searched")
		groups = append(groups, res)
	}
	for i, r := range aggregate.MergeAndNormalize(groups) {
		fmt.Printf("%d. %s - %s\n", i+1, r.Title, r.URL)
	}
}
