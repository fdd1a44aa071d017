// Package dedup persists the set of already-ingested item keys across runs.
package dedup

import (
	"fmt"
	"strings"
	"time"
)

// Record is one accepted key. Records are created once and never mutated.
type Record struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	FirstSeen time.Time `json:"first_seen"`
}

// Tracker is the cross-run seen-set. Load is called at orchestrator start,
// Persist at the end of the run, Close once the run is over. An unreadable
// backing store degrades to an empty set: re-processing is preferred over
// aborting the run.
type Tracker interface {
	Load() error
	IsDuplicate(key string) bool
	Add(key, title, source string)
	Persist() error
	Close() error
}

type Config struct {
	Backend  string // "file" or "postgres"
	FilePath string
	DSN      string
	TTLHours int
}

// New selects the tracker implementation for the configured backend.
func New(cfg Config) (Tracker, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileTracker(cfg.FilePath, cfg.TTLHours), nil
	case "postgres":
		return NewPostgresTracker(cfg.DSN, cfg.TTLHours)
	default:
		return nil, fmt.Errorf("unknown dedup backend %q", cfg.Backend)
	}
}

// NormalizeKey derives a deterministic dedup key from free text:
// case-folded with all whitespace runs collapsed to single spaces, so
// near-duplicate titles collapse to the same key.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
