// Package fetch downloads candidate source pages for comparison.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyvios/internal/cache"
)

// DefaultMaxBytes caps response bodies when Client.MaxBytes is unset.
const DefaultMaxBytes = 10 << 20

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// Response is a successfully fetched and decoded page.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	ContentType string
	Body        []byte
	Status      int
	FromCache   bool
}

// Client wraps http.Client with a fixed request context (user agent, extra
// headers, cookies), timeouts, limited retry on transient errors, an optional
// on-disk cache and an optional robots.txt policy. Configure it before first
// use; it is safe for concurrent use afterwards.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Header is added to every request.
	Header http.Header
	// Jar, when set, replaces the HTTP client's cookie jar.
	Jar http.CookieJar
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// MaxBytes caps the raw and the decoded body. Zero means DefaultMaxBytes.
	MaxBytes int64
	// Optional on-disk cache for HTTP GET bodies and headers.
	Cache *cache.HTTPCache
	// BypassCache fetches fresh (no conditional headers) but still saves.
	BypassCache bool
	// Robots, when set, is consulted before every fetch.
	Robots RobotsPolicy

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

// Fetch retrieves rawURL. Any failure to obtain a usable page (bad URL,
// network error, non-2xx status, unsupported content type, robots denial)
// is reported as an absent page: (nil, nil). The only error returned is the
// context's, once ctx is done.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Robots != nil {
		ok, err := c.Robots.Allowed(ctx, rawURL)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil && !ok {
			log.Debug().Str("url", rawURL).Msg("robots.txt disallows fetch")
			return nil, nil
		}
	}
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debug().Err(err).Str("url", rawURL).Msg("fetch failed, treating page as absent")
		return nil, nil
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*Response, error) {
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			if resp.Status == http.StatusNotModified {
				cached, cerr := c.Cache.LoadBody(ctx, rawURL)
				if cerr != nil {
					// cache lost its body; fetch unconditionally
					etag, lastMod = "", ""
					lastErr = cerr
					continue
				}
				meta, _ := c.Cache.LoadMeta(ctx, rawURL)
				if meta != nil && meta.ContentType != "" {
					resp.ContentType = meta.ContentType
				}
				resp.Body = cached
				resp.FromCache = true
				return resp.Response, nil
			}
			if c.Cache != nil {
				_ = c.Cache.Save(ctx, rawURL, resp.ContentType, resp.etag, resp.lastModified, resp.Body)
			}
			return resp.Response, nil
		}
		lastErr = err
		if !isTransient(ctx, err) || i == attempts-1 {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

type attempt struct {
	*Response
	etag         string
	lastModified string
}

// statusError is a non-2xx answer.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status: %d", e.code) }

func (c *Client) tryOnce(ctx context.Context, rawURL string, etag string, lastMod string) (*attempt, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	// setting this disables the transport's transparent gzip handling
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &attempt{
		Response: &Response{
			URL:         resp.Request.URL.String(),
			ContentType: resp.Header.Get("Content-Type"),
			Status:      resp.StatusCode,
		},
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.StatusCode == http.StatusNotModified && c.Cache != nil && (etag != "" || lastMod != "") {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}
	if !isTextualContentType(out.ContentType) {
		return nil, fmt.Errorf("unsupported content type: %s", out.ContentType)
	}
	limit := c.maxBytes()
	encoding := resp.Header.Get("Content-Encoding")
	// MaxBytes caps the decoded page; a compressed stream may be larger than
	// its cap allows before decoding.
	rawLimit := limit
	if isCompressed(encoding) {
		rawLimit = limit * compressedReadFactor
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, rawLimit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	out.Body = decodeBody(raw, encoding, limit)
	return out, nil
}

func (c *Client) maxBytes() int64 {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return DefaultMaxBytes
}

func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	// per-request timeout or dropped connection
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *Client) getHTTPClient() *http.Client {
	var base http.Client
	if c.HTTPClient != nil {
		// copy to attach our redirect policy without mutating the caller's client
		base = *c.HTTPClient
	}
	base.CheckRedirect = c.checkRedirectFunc()
	if c.Jar != nil {
		base.Jar = c.Jar
	}
	return &base
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// isTextualContentType accepts what extract.Normalize can read. A missing
// content type is accepted and sniffed later.
func isTextualContentType(ct string) bool {
	if strings.TrimSpace(ct) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(ct))
	}
	switch {
	case strings.HasPrefix(mt, "text/"):
		return true
	case mt == "application/xhtml+xml", mt == "application/xml", mt == "application/pdf":
		return true
	}
	return false
}

// acquire waits for a request slot or for ctx to end.
func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	select {
	case c.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
