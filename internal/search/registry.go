package search

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrEngineUnavailable is wrapped by every selection failure.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrUnknownEngine means no backend is registered under the name.
	ErrUnknownEngine = fmt.Errorf("%w: unknown engine", ErrEngineUnavailable)
	// ErrUnsupportedEngine means the backend exists but cannot be used, for
	// example because a required credential is missing.
	ErrUnsupportedEngine = fmt.Errorf("%w: unsupported engine", ErrEngineUnavailable)
)

// Credentials are backend-specific settings such as API keys and endpoints.
type Credentials map[string]string

// Get returns the trimmed value for key.
func (c Credentials) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Options configure a backend when it is opened.
type Options struct {
	Credentials Credentials
	HTTPClient  *http.Client
	UserAgent   string
}

// Factory builds a Provider. It returns an error when the backend cannot be
// used with the given options; Open reports that as ErrUnsupportedEngine.
type Factory func(Options) (Provider, error)

// Registry maps engine names to factories. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(strings.TrimSpace(name))] = f
}

// Names lists registered engines in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open selects and builds the backend registered under name. Opening never
// issues a query.
func (r *Registry) Open(name string, opts Options) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	p, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedEngine, key, err)
	}
	return p, nil
}

// DefaultRegistry holds the built-in backends.
var DefaultRegistry = NewRegistry()

// Open selects a backend from DefaultRegistry.
func Open(name string, opts Options) (Provider, error) {
	return DefaultRegistry.Open(name, opts)
}

func init() {
	DefaultRegistry.Register("searxng", func(o Options) (Provider, error) {
		base := o.Credentials.Get("url")
		if base == "" {
			return nil, errors.New("missing credential \"url\"")
		}
		return &SearxNG{BaseURL: base, APIKey: o.Credentials.Get("key"), HTTPClient: o.HTTPClient, UserAgent: o.UserAgent}, nil
	})
	DefaultRegistry.Register("google", func(o Options) (Provider, error) {
		key, cx := o.Credentials.Get("key"), o.Credentials.Get("cx")
		if key == "" || cx == "" {
			return nil, errors.New("missing credential \"key\" or \"cx\"")
		}
		return &Google{APIKey: key, EngineID: cx, BaseURL: o.Credentials.Get("url"), HTTPClient: o.HTTPClient, UserAgent: o.UserAgent}, nil
	})
	DefaultRegistry.Register("file", func(o Options) (Provider, error) {
		path := o.Credentials.Get("path")
		if path == "" {
			return nil, errors.New("missing credential \"path\"")
		}
		return &FileProvider{Path: path}, nil
	})
}
