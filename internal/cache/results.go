package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultResultTTL is how long a verdict stays usable.
const DefaultResultTTL = 24 * time.Hour

// ResultEntry is the remembered outcome of a check: the best matching URL
// and its confidence at the time.
type ResultEntry struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Confidence float64   `json:"confidence"`
	Violation  bool      `json:"violation"`
	SavedAt    time.Time `json:"saved_at"`
}

// ResultCache stores check outcomes keyed by page, in memory and on disk.
// Entries older than TTL are ignored. A zero Dir keeps the cache in memory
// only.
type ResultCache struct {
	Dir         string
	TTL         time.Duration
	StrictPerms bool

	mem *gocache.Cache
	now func() time.Time
}

// NewResultCache returns a cache rooted at dir. A non-positive ttl selects
// DefaultResultTTL.
func NewResultCache(dir string, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{
		Dir: dir,
		TTL: ttl,
		mem: gocache.New(ttl, 10*time.Minute),
		now: time.Now,
	}
}

func (c *ResultCache) pathFor(key string) string {
	return filepath.Join(c.Dir, "results", Key(key)+".json")
}

// Get returns the entry for key if one younger than TTL exists.
func (c *ResultCache) Get(_ context.Context, key string) (ResultEntry, bool, error) {
	if c == nil {
		return ResultEntry{}, false, nil
	}
	if v, ok := c.mem.Get(key); ok {
		return v.(ResultEntry), true, nil
	}
	if c.Dir == "" {
		return ResultEntry{}, false, nil
	}
	b, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResultEntry{}, false, nil
		}
		return ResultEntry{}, false, err
	}
	var e ResultEntry
	if err := json.Unmarshal(b, &e); err != nil {
		// a torn write is a miss
		return ResultEntry{}, false, nil
	}
	age := c.now().Sub(e.SavedAt)
	if age >= c.TTL {
		_ = os.Remove(c.pathFor(key))
		return ResultEntry{}, false, nil
	}
	c.mem.Set(key, e, c.TTL-age)
	return e, true, nil
}

// Save records an entry for key. Entries without a URL are not stored.
func (c *ResultCache) Save(_ context.Context, key string, e ResultEntry) error {
	if c == nil || strings.TrimSpace(e.URL) == "" {
		return nil
	}
	e.Key = key
	if e.SavedAt.IsZero() {
		e.SavedAt = c.now().UTC()
	}
	// expire in memory when the entry itself does
	ttl := c.TTL - c.now().Sub(e.SavedAt)
	if ttl <= 0 {
		return nil
	}
	c.mem.Set(key, e, ttl)
	if c.Dir == "" {
		return nil
	}
	if err := ensureDir(filepath.Join(c.Dir, "results"), c.StrictPerms); err != nil {
		return err
	}
	return writeJSONAtomic(c.pathFor(key), &e, fileMode(c.StrictPerms))
}

// Delete forgets key.
func (c *ResultCache) Delete(_ context.Context, key string) error {
	if c == nil {
		return nil
	}
	c.mem.Delete(key)
	if c.Dir == "" {
		return nil
	}
	if err := os.Remove(c.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
