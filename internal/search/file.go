package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// FileProvider loads search results from a local JSON file for offline runs
// and tests. The file is either an array of {"title","url","snippet"} objects,
// filtered by case-insensitive substring match of the query against title and
// snippet, or an object mapping exact queries to such arrays, where the key
// "*" answers every query without its own entry.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var raw []Result
	filter := true
	if trimmed := strings.TrimSpace(string(b)); strings.HasPrefix(trimmed, "{") {
		var byQuery map[string][]Result
		if err := json.Unmarshal(b, &byQuery); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Path, err)
		}
		raw, filter = byQuery[query], false
		if raw == nil {
			raw = byQuery["*"]
		}
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		if r.URL == "" {
			continue
		}
		if !filter || q == "" || strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Snippet), q) {
			r.Source = f.Name()
			out = append(out, r)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
