package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kagari/newsdigest/internal/logger"
)

// FileTracker keeps the seen-set in a JSON file.
type FileTracker struct {
	filePath string
	ttlHours int
	mu       sync.RWMutex
	items    map[string]Record
}

func NewFileTracker(filePath string, ttlHours int) *FileTracker {
	return &FileTracker{
		filePath: filePath,
		ttlHours: ttlHours,
		items:    make(map[string]Record),
	}
}

// Load reads the backing file, dropping records older than the TTL.
// A missing or corrupt file leaves the tracker empty rather than failing
// the run.
func (t *FileTracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("dedup store unreadable, treating everything as new", "path", t.filePath, "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("dedup store corrupt, treating everything as new", "path", t.filePath, "error", err)
		return nil
	}

	cutoff := t.cutoff()
	for _, r := range records {
		if t.ttlHours <= 0 || r.FirstSeen.After(cutoff) {
			t.items[r.Key] = r
		}
	}
	return nil
}

func (t *FileTracker) IsDuplicate(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.items[key]
	if !ok {
		return false
	}
	return t.ttlHours <= 0 || r.FirstSeen.After(t.cutoff())
}

func (t *FileTracker) Add(key, title, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[key]; ok {
		return
	}
	t.items[key] = Record{Key: key, Title: title, Source: source, FirstSeen: time.Now()}
}

// Persist writes the whole set back via a temp file rename so a crash never
// leaves a half-written store behind.
func (t *FileTracker) Persist() error {
	t.mu.RLock()
	records := make([]Record, 0, len(t.items))
	for _, r := range t.items {
		records = append(records, r)
	}
	t.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dedup store: %w", err)
	}

	if dir := filepath.Dir(t.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dedup dir: %w", err)
		}
	}

	tmp := t.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write dedup store: %w", err)
	}
	if err := os.Rename(tmp, t.filePath); err != nil {
		return fmt.Errorf("replace dedup store: %w", err)
	}
	return nil
}

// Close is a no-op; the file handle is never held between operations.
func (t *FileTracker) Close() error { return nil }

func (t *FileTracker) cutoff() time.Time {
	return time.Now().Add(-time.Duration(t.ttlHours) * time.Hour)
}
