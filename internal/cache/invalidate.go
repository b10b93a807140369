package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes HTTP cache entries older than maxAge, judged by
// the SavedAt stamp in each <key>.meta.json. Result entries are left alone.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil // skip unreadable
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil // skip malformed
		}
		if now.Sub(e.SavedAt) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
		return nil
	})
	return removed, err
}

// PurgeResultsByAge removes result cache files older than maxAge.
func PurgeResultsByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	entries, err := os.ReadDir(filepath.Join(dir, "results"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, "results", ent.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e ResultEntry
		if err := json.Unmarshal(b, &e); err != nil || now.Sub(e.SavedAt) > maxAge {
			removed++
			_ = os.Remove(path)
		}
	}
	return removed, nil
}

type httpItem struct {
	base  string
	size  int64
	mtime time.Time
}

// EnforceHTTPCacheLimits evicts least recently used HTTP entries, by body
// modification time, until at most maxCount entries totalling at most
// maxBytes of body remain. A non-positive limit is not enforced.
func EnforceHTTPCacheLimits(dir string, maxBytes int64, maxCount int) (int, error) {
	if maxBytes <= 0 && maxCount <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var items []httpItem
	var total int64
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".body") {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		items = append(items, httpItem{
			base:  filepath.Join(dir, strings.TrimSuffix(ent.Name(), ".body")),
			size:  info.Size(),
			mtime: info.ModTime(),
		})
		total += info.Size()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mtime.Before(items[j].mtime) })
	removed := 0
	for _, it := range items {
		overCount := maxCount > 0 && len(items)-removed > maxCount
		overBytes := maxBytes > 0 && total > maxBytes
		if !overCount && !overBytes {
			break
		}
		_ = os.Remove(it.base + ".body")
		_ = os.Remove(it.base + ".meta.json")
		total -= it.size
		removed++
	}
	return removed, nil
}
