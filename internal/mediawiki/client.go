// Package mediawiki is a small client for the MediaWiki action API: enough to
// read a page's wikitext, learn its id and save a new revision.
package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingPage is returned when the wiki has no page with the title.
	ErrMissingPage = errors.New("page does not exist")
	// ErrNotLoggedIn is returned by Edit when the client has no session and
	// the wiki refuses anonymous edits.
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is an error object returned by the API itself.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki api error %s: %s", e.Code, e.Info)
}

// Client talks to one wiki's api.php. Sessions live in the HTTP client's
// cookie jar, so one Client must not be shared between accounts.
type Client struct {
	API        string
	UserAgent  string
	HTTPClient *http.Client

	mu   sync.Mutex
	csrf string
	user string
}

// New returns a client for api (for example
// "https://en.wikipedia.org/w/api.php"). A nil hc gets a 30s timeout. The
// client always gets its own cookie jar when hc has none.
func New(api, userAgent string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	} else {
		cp := *hc
		hc = &cp
	}
	if hc.Jar == nil {
		jar, _ := cookiejar.New(nil)
		hc.Jar = jar
	}
	return &Client{API: api, UserAgent: userAgent, HTTPClient: hc}
}

// User is the account the client logged in as, empty when anonymous.
func (c *Client) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Login signs in with a bot password (Special:BotPasswords).
func (c *Client) Login(ctx context.Context, user, password string) error {
	var tok struct {
		Query struct {
			Tokens struct {
				LoginToken string `json:"logintoken"`
			} `json:"tokens"`
		} `json:"query"`
	}
	if err := c.call(ctx, http.MethodGet, url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {"login"}}, &tok); err != nil {
		return fmt.Errorf("login token: %w", err)
	}
	if tok.Query.Tokens.LoginToken == "" {
		return errors.New("login token: empty token")
	}
	var out struct {
		Login struct {
			Result   string `json:"result"`
			Reason   string `json:"reason"`
			LgUser   string `json:"lgusername"`
			LgUserID int64  `json:"lguserid"`
		} `json:"login"`
	}
	form := url.Values{
		"action":     {"login"},
		"lgname":     {user},
		"lgpassword": {password},
		"lgtoken":    {tok.Query.Tokens.LoginToken},
	}
	if err := c.call(ctx, http.MethodPost, form, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if out.Login.Result != "Success" {
		return fmt.Errorf("login: %s: %s", out.Login.Result, out.Login.Reason)
	}
	c.mu.Lock()
	c.user = out.Login.LgUser
	c.csrf = ""
	c.mu.Unlock()
	log.Info().Str("user", out.Login.LgUser).Msg("logged in to wiki")
	return nil
}

// Page returns a handle for title. Nothing is fetched until it is used.
func (c *Client) Page(title string) *Page {
	return &Page{client: c, title: title}
}

func (c *Client) csrfToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.csrf
	c.mu.Unlock()
	if tok != "" {
		return tok, nil
	}
	var out struct {
		Query struct {
			Tokens struct {
				CSRFToken string `json:"csrftoken"`
			} `json:"tokens"`
		} `json:"query"`
	}
	if err := c.call(ctx, http.MethodGet, url.Values{"action": {"query"}, "meta": {"tokens"}}, &out); err != nil {
		return "", fmt.Errorf("csrf token: %w", err)
	}
	tok = out.Query.Tokens.CSRFToken
	// anonymous sessions get the placeholder token "+\"
	if tok == "" || tok == `+\` {
		return "", ErrNotLoggedIn
	}
	c.mu.Lock()
	c.csrf = tok
	c.mu.Unlock()
	return tok, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.csrf = ""
	c.mu.Unlock()
}

// call issues one API request and decodes the JSON reply into out. An
// "error" object in the reply becomes an *APIError.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.API, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		u := c.API
		if strings.Contains(u, "?") {
			u += "&" + params.Encode()
		} else {
			u += "?" + params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mediawiki http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}
