// Package app orchestrates one digest run for a single source: load the
// seen-set, fetch, filter, rank, summarize, and persist.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/kagari/newsdigest/internal/dedup"
	"github.com/kagari/newsdigest/internal/logger"
	"github.com/kagari/newsdigest/internal/metrics"
	"github.com/kagari/newsdigest/internal/score"
	"github.com/kagari/newsdigest/internal/source"
	"github.com/kagari/newsdigest/internal/storage"
	"github.com/kagari/newsdigest/internal/summarize"
)

// summaryPlaceholder is persisted when summarization is unavailable or fails
// for an item. A ranked item is never dropped because of its summary.
const summaryPlaceholder = "（要約は利用できません）"

type Service struct {
	adapter    source.Adapter
	tracker    dedup.Tracker
	summarizer summarize.Summarizer // nil disables summarization
	store      *storage.Store
	weights    score.Weights
	clock      func() time.Time
	log        *slog.Logger
}

func NewService(adapter source.Adapter, tracker dedup.Tracker, summarizer summarize.Summarizer, store *storage.Store) *Service {
	return &Service{
		adapter:    adapter,
		tracker:    tracker,
		summarizer: summarizer,
		store:      store,
		weights:    score.DefaultWeights(),
		clock:      time.Now,
		log:        logger.With("source", adapter.Name()),
	}
}

// Options are the per-run knobs, typically from CLI flags.
type Options struct {
	Days  int // publication window in days, counted back from now
	Limit int // maximum items in the digest
}

// DigestItem is one persisted entry of a run's digest.
type DigestItem struct {
	Rank     int
	Title    string
	URL      string
	Category string
	Score    float64
	Summary  string
}

// RunResult reports what one run did, for logging and tests.
type RunResult struct {
	Source     string
	Fetched    int
	Duplicates int
	Accepted   int
	Items      []DigestItem
	DigestPath string
}

// Run executes one full cycle. Source-level fetch failure degrades to an
// empty digest rather than a failed run; only persistence errors are fatal.
func (s *Service) Run(ctx context.Context, opts Options) (*RunResult, error) {
	start := s.clock()
	res := &RunResult{Source: s.adapter.Name()}

	if err := s.tracker.Load(); err != nil {
		s.log.Warn("dedup load failed, starting with empty seen-set", "error", err)
	}

	if opts.Days <= 0 {
		opts.Days = 1
	}
	window := source.Window{
		From: start.Add(-time.Duration(opts.Days) * 24 * time.Hour),
		To:   start,
	}

	items, err := s.adapter.Fetch(ctx, window)
	if err != nil {
		s.log.Error("fetch failed, continuing with zero items", "error", err)
		items = nil
	}
	res.Fetched = len(items)
	metrics.Global.AddItemsFetched(len(items))

	kept := s.filter(items, window, res)

	ranked := score.Rank(kept, s.weights, opts.Limit)
	res.Accepted = len(ranked)

	for _, item := range ranked {
		res.Items = append(res.Items, DigestItem{
			Rank:     item.Rank,
			Title:    item.Title,
			URL:      item.URL,
			Category: item.Category,
			Score:    item.Score,
			Summary:  s.summarizeItem(ctx, item),
		})
	}

	path, err := s.store.Save(res.Source, start, renderDigest(res.Source, start, res.Items))
	if err != nil {
		return nil, err
	}
	res.DigestPath = path

	// Keys are committed only after the digest is on disk, so a failed run
	// never marks its items as seen.
	for _, item := range ranked {
		s.tracker.Add(s.dedupKey(item.RawItem), item.Title, res.Source)
		metrics.Global.IncrementItemsAccepted()
	}
	if err := s.tracker.Persist(); err != nil {
		s.log.Warn("dedup persist failed, next run may re-process items", "error", err)
	}

	metrics.Global.RecordRun(s.clock().Sub(start))
	s.log.Info("run complete",
		"fetched", res.Fetched,
		"duplicates", res.Duplicates,
		"accepted", res.Accepted,
		"digest", res.DigestPath)
	return res, nil
}

func (s *Service) filter(items []source.RawItem, window source.Window, res *RunResult) []source.RawItem {
	var kept []source.RawItem
	for _, item := range items {
		if !window.Contains(item.PublishedAt) {
			continue
		}
		if s.tracker.IsDuplicate(s.dedupKey(item)) {
			res.Duplicates++
			metrics.Global.IncrementDuplicatesFiltered()
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func (s *Service) summarizeItem(ctx context.Context, item score.ScoredItem) string {
	if s.summarizer == nil || item.BodyText == "" {
		return summaryPlaceholder
	}
	summary, err := s.summarizer.Summarize(ctx, item.Title, item.BodyText, s.adapter.Name())
	if err != nil {
		metrics.Global.IncrementSummariesFailed()
		s.log.Warn("summarize failed, keeping item with placeholder", "title", item.Title, "error", err)
		return summaryPlaceholder
	}
	return summary
}

func (s *Service) dedupKey(item source.RawItem) string {
	if item.DedupKey != "" {
		return item.DedupKey
	}
	return dedup.NormalizeKey(item.Title)
}
