package copyvio

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/copyvios/internal/fetch"
	"github.com/hyperifyio/copyvios/internal/search"
)

var articleSentences = []string{
	"The lighthouse on the northern cape was built by local fishermen in the winter of 1852.",
	"Its lamp was fuelled with whale oil until the harbour board installed a paraffin burner.",
	"Three generations of the Mercer family kept the light burning through storms and war.",
	"During the great gale of 1893 the keeper rowed out alone to rescue a stranded schooner crew.",
	"A granite extension added a second gallery and raised the focal plane by eleven metres.",
	"Electric lighting arrived in 1931 along with a clockwork mechanism for the rotating lens.",
	"The station was automated in 1978 and the keepers' cottages were sold to a local trust.",
	"Today the tower houses a small museum devoted to coastal navigation and shipwreck salvage.",
	"Volunteers open the gallery on summer weekends so that visitors can climb the spiral stair.",
	"The light remains an active aid to navigation and is visible for twenty nautical miles.",
}

var unrelatedSentences = []string{
	"Preheat the oven and grease a shallow baking tin with butter before you begin mixing.",
	"Whisk four eggs with caster sugar until pale then fold in sifted flour very gently.",
	"Bake the sponge on the middle shelf for twenty minutes or until springy to the touch.",
	"Let the cake cool completely on a wire rack before spreading any jam or cream on top.",
}

func articleText() string { return strings.Join(articleSentences, " ") }

func htmlPage(sentences []string) string {
	return "<html><head><title>page</title></head><body><nav>Home | About</nav><main><p>" +
		strings.Join(sentences, "</p><p>") + "</p></main></body></html>"
}

const (
	perfectURL   = "https://copy.example/lighthouse"
	halfURL      = "https://half.example/page"
	unrelatedURL = "https://cake.example/sponge"
	brokenURL    = "https://broken.example/"
)

func defaultPages() map[string]string {
	return map[string]string{
		perfectURL:   htmlPage(articleSentences),
		halfURL:      htmlPage(articleSentences[:5]),
		unrelatedURL: htmlPage(unrelatedSentences),
	}
}

type stubClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	// block makes After never fire
	block bool
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.block {
		return nil
	}
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	calls   map[string]int
	onFetch func(url string)
}

func newStubFetcher(pages map[string]string) *stubFetcher {
	return &stubFetcher{pages: pages, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*fetch.Response, error) {
	f.mu.Lock()
	f.calls[url]++
	body, ok := f.pages[url]
	err := f.errs[url]
	f.mu.Unlock()
	if f.onFetch != nil {
		f.onFetch(url)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &fetch.Response{URL: url, ContentType: "text/html; charset=utf-8", Body: []byte(body), Status: 200}, nil
}

func (f *stubFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// stubProvider answers each query through respond; n counts from 0.
type stubProvider struct {
	mu      sync.Mutex
	clock   Clock
	respond func(n int, query string) ([]search.Result, error)
	queries []string
	times   []time.Time
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	p.mu.Lock()
	n := len(p.queries)
	p.queries = append(p.queries, query)
	if p.clock != nil {
		p.times = append(p.times, p.clock.Now())
	}
	p.mu.Unlock()
	if p.respond == nil {
		return nil, nil
	}
	return p.respond(n, query)
}

func (p *stubProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queries)
}

func always(urls ...string) func(int, string) ([]search.Result, error) {
	return func(int, string) ([]search.Result, error) { return results(urls...), nil }
}

func results(urls ...string) []search.Result {
	out := make([]search.Result, 0, len(urls))
	for _, u := range urls {
		out = append(out, search.Result{Title: u, URL: u})
	}
	return out
}

type stubSelector struct {
	t        *testing.T
	provider search.Provider
	forbid   bool
	opened   int
}

func (s *stubSelector) Open(name string, _ search.Options) (search.Provider, error) {
	s.opened++
	if s.forbid {
		s.t.Errorf("search backend %q must not be selected", name)
	}
	return s.provider, nil
}

func newDetector(t *testing.T, p *stubProvider, f *stubFetcher) (*Detector, *stubClock, *stubSelector) {
	t.Helper()
	clock := newStubClock()
	if p != nil && p.clock == nil {
		p.clock = clock
	}
	sel := &stubSelector{t: t, provider: p, forbid: p == nil}
	nop := zerolog.Nop()
	return &Detector{Backends: sel, Engine: "stub", Fetcher: f, Clock: clock, Logger: &nop}, clock, sel
}

func fastOptions() CheckOptions {
	return CheckOptions{MinConfidence: 0.5, MaxQueries: -1, InterQuerySleep: 0}
}
