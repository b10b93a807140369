package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestMarkAndQuery(t *testing.T) {
	ctx := context.Background()
	l := openTemp(t)
	l.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	done, err := l.HasBeenProcessed(ctx, 42)
	if err != nil || done {
		t.Fatalf("expected unprocessed page, got %v, %v", done, err)
	}
	if err := l.MarkProcessed(ctx, 42); err != nil {
		t.Fatalf("mark: %v", err)
	}
	done, err = l.HasBeenProcessed(ctx, 42)
	if err != nil || !done {
		t.Fatalf("expected processed page, got %v, %v", done, err)
	}
	var at string
	if err := l.db.QueryRowContext(ctx, `SELECT processed_at FROM processed WHERE page_id = 42`).Scan(&at); err != nil || at != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected processed_at %q err=%v", at, err)
	}
	if done, _ := l.HasBeenProcessed(ctx, 7); done {
		t.Fatalf("expected no record for page 7")
	}
}

func TestMarkTwice(t *testing.T) {
	ctx := context.Background()
	l := openTemp(t)
	if err := l.MarkProcessed(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkProcessed(ctx, 1); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if n, _ := l.Count(ctx); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.MarkProcessed(ctx, 99); err != nil {
		t.Fatal(err)
	}
	_ = l.Close()

	l, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if done, _ := l.HasBeenProcessed(ctx, 99); !done {
		t.Fatalf("expected page 99 to survive reopen")
	}
}

func TestConcurrentMarks(t *testing.T) {
	ctx := context.Background()
	l := openTemp(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := l.MarkProcessed(ctx, id); err != nil {
				t.Errorf("mark %d: %v", id, err)
			}
		}(int64(i))
	}
	wg.Wait()
	if n, err := l.Count(ctx); err != nil || n != 20 {
		t.Fatalf("expected 20 rows, got %d (%v)", n, err)
	}
}
