package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultGoogleEndpoint is the Custom Search JSON API.
const DefaultGoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// Google implements Provider with the Google Custom Search JSON API.
type Google struct {
	APIKey     string
	EngineID   string // "cx"
	BaseURL    string // optional, defaults to DefaultGoogleEndpoint
	HTTPClient *http.Client
	UserAgent  string
}

func (g *Google) Name() string { return "google" }

func (g *Google) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if g.APIKey == "" || g.EngineID == "" {
		return nil, fmt.Errorf("missing google api key or engine id")
	}
	// the API returns at most 10 items per request
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	endpoint := g.BaseURL
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("key", g.APIKey)
	q.Set("cx", g.EngineID)
	q.Set("q", query)
	q.Set("exactTerms", query)
	q.Set("num", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var gr googleResponse
	status, err := getJSON(ctx, g.HTTPClient, g.UserAgent, u.String(), &gr)
	if gr.Error != nil {
		return nil, fmt.Errorf("google error %d: %s", gr.Error.Code, gr.Error.Message)
	}
	if status != 0 && (status < 200 || status > 299) {
		return nil, fmt.Errorf("google status: %d", status)
	}
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	out := make([]Result, 0, len(gr.Items))
	for _, it := range gr.Items {
		if it.Link == "" {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(it.Title),
			URL:     strings.TrimSpace(it.Link),
			Snippet: strings.TrimSpace(it.Snippet),
			Source:  g.Name(),
		})
	}
	return out, nil
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
