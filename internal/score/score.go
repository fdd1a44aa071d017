// Package score ranks items by a weighted combination of popularity signals.
package score

import (
	"math"
	"sort"

	"github.com/kagari/newsdigest/internal/source"
)

// AgeSignal is the reserved signal key carrying item age in hours. It feeds
// the decay term instead of the weighted sum.
const AgeSignal = "age_hours"

// Weights is the tunable scoring policy. Signal weights apply to log-damped
// signal values; age decays the score linearly per day after a grace period.
type Weights struct {
	Signal         map[string]float64
	AgeDecayPerDay float64
	AgeGraceHours  float64
}

func DefaultWeights() Weights {
	return Weights{
		Signal: map[string]float64{
			"votes":    1.0,
			"replies":  1.0,
			"comments": 0.5,
			"likes":    0.5,
			"velocity": 12.0,
		},
		AgeDecayPerDay: 0.5,
		AgeGraceHours:  6,
	}
}

// Score maps a signal map to a single number. Unknown and missing keys
// contribute 0.0; the function never fails. It is strictly increasing in any
// positively-weighted signal and non-increasing in age beyond the grace
// period.
func Score(signals map[string]float64, w Weights) float64 {
	var s float64
	for key, value := range signals {
		if key == AgeSignal {
			continue
		}
		weight, ok := w.Signal[key]
		if !ok || value <= 0 {
			continue
		}
		// log1p damps runaway counters while preserving ordering.
		s += weight * math.Log1p(value)
	}

	if age, ok := signals[AgeSignal]; ok && age > w.AgeGraceHours {
		s -= w.AgeDecayPerDay * (age - w.AgeGraceHours) / 24
	}
	return s
}

// ScoredItem is a RawItem with its computed score and 1-based rank.
// It lives only for the duration of one run.
type ScoredItem struct {
	source.RawItem
	Score float64
	Rank  int
}

// Rank scores all items, sorts them descending by score with ties broken by
// most-recent publication, and truncates to limit (limit <= 0 keeps all).
func Rank(items []source.RawItem, w Weights, limit int) []ScoredItem {
	scored := make([]ScoredItem, len(items))
	for i, item := range items {
		scored[i] = ScoredItem{RawItem: item, Score: Score(item.Signals, w)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].PublishedAt.After(scored[j].PublishedAt)
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored
}
