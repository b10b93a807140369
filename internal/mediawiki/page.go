package mediawiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
)

// Page is one wiki page. Its id and content are loaded once, on first use.
type Page struct {
	client *Client
	title  string

	mu      sync.Mutex
	loaded  bool
	id      int64
	revID   int64
	content string
}

// Title is the title the page was requested with, or the normalized title
// once loaded.
func (p *Page) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

// PageID loads the page if needed and returns its id.
func (p *Page) PageID(ctx context.Context) (int64, error) {
	if err := p.load(ctx); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id, nil
}

// Get loads the page if needed and returns its current wikitext.
func (p *Page) Get(ctx context.Context) (string, error) {
	if err := p.load(ctx); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content, nil
}

func (p *Page) load(ctx context.Context) error {
	p.mu.Lock()
	if p.loaded {
		p.mu.Unlock()
		return nil
	}
	title := p.title
	p.mu.Unlock()

	var out struct {
		Query struct {
			Pages []struct {
				PageID    int64  `json:"pageid"`
				Title     string `json:"title"`
				Missing   bool   `json:"missing"`
				Invalid   bool   `json:"invalid"`
				Revisions []struct {
					RevID int64 `json:"revid"`
					Slots struct {
						Main struct {
							Content string `json:"content"`
						} `json:"main"`
					} `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	params := url.Values{
		"action":    {"query"},
		"prop":      {"revisions"},
		"rvprop":    {"ids|content"},
		"rvslots":   {"main"},
		"titles":    {title},
		"redirects": {"1"},
	}
	if err := p.client.call(ctx, http.MethodGet, params, &out); err != nil {
		return fmt.Errorf("load %q: %w", title, err)
	}
	if len(out.Query.Pages) == 0 {
		return fmt.Errorf("load %q: %w", title, ErrMissingPage)
	}
	pg := out.Query.Pages[0]
	if pg.Missing || pg.Invalid {
		return fmt.Errorf("load %q: %w", title, ErrMissingPage)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = pg.PageID
	if pg.Title != "" {
		p.title = pg.Title
	}
	if len(pg.Revisions) > 0 {
		p.revID = pg.Revisions[0].RevID
		p.content = pg.Revisions[0].Slots.Main.Content
	}
	p.loaded = true
	return nil
}

// Edit saves text as a new revision with summary. The edit is based on the
// revision last loaded, so an intervening edit fails with an edit conflict
// instead of being overwritten.
func (p *Page) Edit(ctx context.Context, text, summary string) error {
	if err := p.load(ctx); err != nil {
		return err
	}
	err := p.edit(ctx, text, summary)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "badtoken" {
		p.client.resetToken()
		err = p.edit(ctx, text, summary)
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.content = text
	p.mu.Unlock()
	return nil
}

func (p *Page) edit(ctx context.Context, text, summary string) error {
	token, err := p.client.csrfToken(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	title, revID := p.title, p.revID
	p.mu.Unlock()
	form := url.Values{
		"action":  {"edit"},
		"title":   {title},
		"text":    {text},
		"summary": {summary},
		"bot":     {"1"},
		"token":   {token},
	}
	if revID > 0 {
		form.Set("baserevid", strconv.FormatInt(revID, 10))
	}
	var out struct {
		Edit struct {
			Result   string `json:"result"`
			NewRevID int64  `json:"newrevid"`
		} `json:"edit"`
	}
	if err := p.client.call(ctx, http.MethodPost, form, &out); err != nil {
		return fmt.Errorf("edit %q: %w", title, err)
	}
	if out.Edit.Result != "Success" {
		return fmt.Errorf("edit %q: result %q", title, out.Edit.Result)
	}
	if out.Edit.NewRevID > 0 {
		p.mu.Lock()
		p.revID = out.Edit.NewRevID
		p.mu.Unlock()
	}
	return nil
}
