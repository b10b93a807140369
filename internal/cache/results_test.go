package cache

import (
	"context"
	"testing"
	"time"
)

func TestResultCache_SaveGetAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	c := NewResultCache(dir, time.Hour)
	if err := c.Save(ctx, "Draft:Foo", ResultEntry{URL: "https://src.example/a", Confidence: 0.8, Violation: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := c.Get(ctx, "Draft:Foo")
	if err != nil || !ok || got.URL != "https://src.example/a" {
		t.Fatalf("memory hit expected, got %+v ok=%v err=%v", got, ok, err)
	}

	// a new instance only has the disk layer
	c2 := NewResultCache(dir, time.Hour)
	got, ok, err = c2.Get(ctx, "Draft:Foo")
	if err != nil || !ok {
		t.Fatalf("disk hit expected, ok=%v err=%v", ok, err)
	}
	if got.Key != "Draft:Foo" || got.Confidence != 0.8 || !got.Violation {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestResultCache_ExpiredEntriesAreMisses(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	c := NewResultCache(dir, time.Hour)
	if err := c.Save(ctx, "Old", ResultEntry{URL: "https://x.example", SavedAt: time.Now().Add(-2 * time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	c2 := NewResultCache(dir, time.Hour)
	if _, ok, _ := c2.Get(ctx, "Old"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	removed, err := PurgeResultsByAge(dir, time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected expired file already removed by Get, got %d", removed)
	}
}

func TestResultCache_SkipsEmptyURLAndDeletes(t *testing.T) {
	ctx := context.Background()
	c := NewResultCache("", 0)
	if c.TTL != DefaultResultTTL {
		t.Fatalf("expected default ttl, got %v", c.TTL)
	}
	if err := c.Save(ctx, "k", ResultEntry{}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected entries without url to be skipped")
	}
	_ = c.Save(ctx, "k", ResultEntry{URL: "https://x.example"})
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected deleted entry to miss")
	}
	var nilCache *ResultCache
	if _, ok, err := nilCache.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected nil cache to miss quietly")
	}
}
