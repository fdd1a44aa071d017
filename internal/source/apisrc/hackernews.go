// Package apisrc adapts a typed JSON REST endpoint (the Hacker News API
// shape) to the shared source contract.
//
// Dedup key strategy: the endpoint's stable numeric item ID.
package apisrc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kagari/newsdigest/internal/httpx"
	"github.com/kagari/newsdigest/internal/logger"
	"github.com/kagari/newsdigest/internal/source"
)

const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

type Adapter struct {
	baseURL     string
	client      *httpx.Client
	concurrency int
	maxIDs      int
}

type apiItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

func New(baseURL string, client *httpx.Client, concurrency, maxIDs int) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	if maxIDs <= 0 {
		maxIDs = 60
	}
	return &Adapter{baseURL: baseURL, client: client, concurrency: concurrency, maxIDs: maxIDs}
}

func (a *Adapter) Name() string { return "hackernews" }

// Fetch pulls the top-story ID list and then each item detail. A 404 or
// deleted/dead item is a soft skip: batch fetches over N IDs always include
// some stale ones.
func (a *Adapter) Fetch(ctx context.Context, w source.Window) ([]source.RawItem, error) {
	ids, err := a.fetchTopIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > a.maxIDs {
		ids = ids[:a.maxIDs]
	}

	items := make([]source.RawItem, len(ids))
	ok := make([]bool, len(ids))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, id int64) {
			defer wg.Done()
			defer func() { <-sem }()

			item, err := a.fetchItem(ctx, id)
			if err != nil {
				logger.Debug("item fetch failed", "id", id, "error", err)
				return
			}
			if item == nil {
				return
			}
			items[slot] = *item
			ok[slot] = true
		}(i, id)
	}
	wg.Wait()

	result := make([]source.RawItem, 0, len(items))
	for i := range items {
		if ok[i] {
			result = append(result, items[i])
		}
	}
	return result, nil
}

func (a *Adapter) fetchTopIDs(ctx context.Context) ([]int64, error) {
	res := a.client.Fetch(ctx, a.baseURL+"/topstories.json", httpx.Options{
		Headers: map[string]string{"Accept": "application/json"},
	})
	if res.Outcome != httpx.Success {
		return nil, fmt.Errorf("fetch top stories: %w", res.Err)
	}
	var ids []int64
	if err := json.Unmarshal(res.Body, &ids); err != nil {
		return nil, fmt.Errorf("decode top stories: %w", err)
	}
	return ids, nil
}

// fetchItem returns (nil, nil) for removed or unusable items.
func (a *Adapter) fetchItem(ctx context.Context, id int64) (*source.RawItem, error) {
	res := a.client.Fetch(ctx, fmt.Sprintf("%s/item/%d.json", a.baseURL, id), httpx.Options{
		Headers: map[string]string{"Accept": "application/json"},
	})
	switch res.Outcome {
	case httpx.Success:
	case httpx.ExpectedMiss:
		return nil, nil
	default:
		return nil, res.Err
	}

	// The endpoint answers deleted IDs with the literal "null".
	if len(res.Body) == 0 || string(res.Body) == "null" {
		return nil, nil
	}

	var it apiItem
	if err := json.Unmarshal(res.Body, &it); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	if it.Deleted || it.Dead || it.Title == "" {
		return nil, nil
	}

	externalID := fmt.Sprintf("hn-%d", it.ID)
	return &source.RawItem{
		ExternalID:  externalID,
		Title:       it.Title,
		URL:         it.URL,
		BodyText:    it.Text,
		PublishedAt: time.Unix(it.Time, 0),
		Category:    "hackernews",
		Signals: map[string]float64{
			"votes":    float64(it.Score),
			"comments": float64(it.Descendants),
		},
		DedupKey: externalID,
	}, nil
}
