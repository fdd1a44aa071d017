package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_SaveAndLoad(t *testing.T) {
	s := NewStore(t.TempDir())
	day := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	path, err := s.Save("feeds", day, "# digest\n")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "2026-08-31.md" {
		t.Errorf("unexpected filename %q", path)
	}

	got, err := s.Load("feeds", day)
	if err != nil {
		t.Fatal(err)
	}
	if got != "# digest\n" {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestStore_SaveOverwritesSameDay(t *testing.T) {
	s := NewStore(t.TempDir())
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	if _, err := s.Save("feeds", day, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("feeds", day, "second"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("feeds", day)
	if err != nil {
		t.Fatal(err)
	}
	if got != "second" {
		t.Errorf("rerun must replace the day's digest, got %q", got)
	}
}

func TestStore_LoadMissingIsNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Load("feeds", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_NoTempFileLeftBehind(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	if _, err := s.Save("boards", day, "x"); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join(root, "boards"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly the digest file, got %d entries", len(entries))
	}
}
