// Package ledger records which wiki pages the copyvio task has already
// checked, in a SQLite file.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrAlreadyProcessed is returned by MarkProcessed for a page already in the
// ledger.
var ErrAlreadyProcessed = errors.New("page already processed")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS processed (
    page_id INTEGER PRIMARY KEY,
    processed_at TEXT NOT NULL
);
`

// SQLite is a processed-page ledger. It is safe for concurrent use.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path. ":memory:" gives a throwaway
// ledger.
func Open(path string) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create ledger dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under RunBatch
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close releases the database.
func (l *SQLite) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// HasBeenProcessed reports whether pageID is in the ledger.
func (l *SQLite) HasBeenProcessed(ctx context.Context, pageID int64) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed WHERE page_id = ?`, pageID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records pageID. Recording the same page twice returns
// ErrAlreadyProcessed.
func (l *SQLite) MarkProcessed(ctx context.Context, pageID int64) error {
	_, err := l.db.ExecContext(ctx, `INSERT INTO processed(page_id, processed_at) VALUES(?, ?)`,
		pageID, l.now().UTC().Format(time.RFC3339))
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: %d", ErrAlreadyProcessed, pageID)
		}
		return fmt.Errorf("insert ledger: %w", err)
	}
	return nil
}

// Count is the number of recorded pages.
func (l *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger: %w", err)
	}
	return n, nil
}

func isConstraint(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint") || strings.Contains(msg, "unique")
}
