// Package storage persists rendered digests as markdown files on local disk,
// one file per source per day.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kagari/newsdigest/internal/logger"
)

// ErrNotFound is returned by Load when no digest exists for the given
// source and day.
var ErrNotFound = errors.New("digest not found")

// Store writes digests under root/<source>/<YYYY-MM-DD>.md.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Save writes the digest atomically: a temp file in the target directory is
// renamed into place, so readers never observe a partial digest.
func (s *Store) Save(source string, day time.Time, content string) (string, error) {
	dir := filepath.Join(s.root, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create digest dir: %w", err)
	}

	path := filepath.Join(dir, day.Format("2006-01-02")+".md")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("commit digest: %w", err)
	}

	logger.Info("digest saved", "path", path, "bytes", len(content))
	return path, nil
}

// Load reads a previously saved digest; missing files map to ErrNotFound.
func (s *Store) Load(source string, day time.Time) (string, error) {
	path := filepath.Join(s.root, source, day.Format("2006-01-02")+".md")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read digest: %w", err)
	}
	return string(b), nil
}
