package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("# comment\nCOPYVIOS_TEST_A=from-file\nCOPYVIOS_TEST_B=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COPYVIOS_TEST_B", "preset")
	// register A for cleanup before the loader sets it
	t.Setenv("COPYVIOS_TEST_A", "")
	os.Unsetenv("COPYVIOS_TEST_A")

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), p); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("COPYVIOS_TEST_A"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("COPYVIOS_TEST_B"); got != "preset" {
		t.Fatalf("existing variable must win, got %q", got)
	}
}
