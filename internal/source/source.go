// Package source defines the adapter contract shared by all content sources.
package source

import (
	"context"
	"time"
)

// RawItem is the adapter-normalized unit before filtering. ExternalID must be
// unique within one adapter invocation and stable across runs for the same
// logical item; DedupKey documents the adapter's canonical key strategy.
type RawItem struct {
	ExternalID  string
	Title       string
	URL         string // optional for board posts
	BodyText    string
	PublishedAt time.Time
	Signals     map[string]float64 // named popularity signals, e.g. {"replies": 42}
	Category    string             // board name or feed category
	DedupKey    string
}

// Window is the requested publication window, inclusive on both boundaries.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window. Boundary instants are
// included; a zero t (unknown publish time) is treated as inside so
// best-effort sources are not silently dropped.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	return !t.Before(w.From) && !t.After(w.To)
}

// Adapter is the single capability every source implements.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, w Window) ([]RawItem, error)
}
