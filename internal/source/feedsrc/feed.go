// Package feedsrc adapts syndication feeds to the shared source contract.
//
// Dedup key strategy: normalized title plus feed host, so the same story
// syndicated twice by one outlet collapses while cross-outlet stories do not.
package feedsrc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/mmcdole/gofeed"

	"github.com/kagari/newsdigest/internal/dedup"
	"github.com/kagari/newsdigest/internal/httpx"
	"github.com/kagari/newsdigest/internal/logger"
	"github.com/kagari/newsdigest/internal/scrape"
	"github.com/kagari/newsdigest/internal/source"
)

type Adapter struct {
	feeds       []Feed
	client      *httpx.Client
	extractor   *scrape.Extractor
	parser      *gofeed.Parser
	concurrency int
}

func New(feeds []Feed, client *httpx.Client, concurrency int) *Adapter {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Adapter{
		feeds:       feeds,
		client:      client,
		extractor:   scrape.NewExtractor(client),
		parser:      gofeed.NewParser(),
		concurrency: concurrency,
	}
}

func (a *Adapter) Name() string { return "feeds" }

// Fetch downloads and parses every registered feed. A failing feed yields
// zero items from that feed, never an error for the whole source.
func (a *Adapter) Fetch(ctx context.Context, w source.Window) ([]source.RawItem, error) {
	var items []source.RawItem
	var enrich []int // indexes of items whose feed opted into article fetching
	okCount := 0

	for _, feed := range a.feeds {
		feedItems, err := a.fetchFeed(ctx, feed)
		if err != nil {
			logger.Warn("feed fetch failed", "url", feed.URL, "error", err)
			continue
		}
		if feed.FetchArticle {
			for i := range feedItems {
				enrich = append(enrich, len(items)+i)
			}
		}
		items = append(items, feedItems...)
		okCount++
	}
	logger.Info("feeds processed", "ok", okCount, "total", len(a.feeds), "items", len(items))

	a.enrichFromArticles(ctx, items, enrich)
	return items, nil
}

func (a *Adapter) fetchFeed(ctx context.Context, feed Feed) ([]source.RawItem, error) {
	res := a.client.Fetch(ctx, feed.URL, httpx.Options{
		Headers: map[string]string{"Accept": "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"},
	})
	switch res.Outcome {
	case httpx.Success:
	case httpx.ExpectedMiss:
		return nil, nil
	default:
		return nil, res.Err
	}

	parsed, err := a.parser.ParseString(string(res.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]source.RawItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		item := a.convertEntry(feed, entry)
		if item == nil {
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

// convertEntry returns nil for entries that should be dropped (no resolvable
// link, wrong script for the feed's target language).
func (a *Adapter) convertEntry(feed Feed, entry *gofeed.Item) *source.RawItem {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		return nil
	}

	if feed.Lang != "" && !matchesScript(entry.Title+" "+entry.Description, feed.Lang) {
		return nil
	}

	item := source.RawItem{
		ExternalID: entry.GUID,
		Title:      strings.TrimSpace(entry.Title),
		URL:        link,
		BodyText:   strings.TrimSpace(entry.Description),
		Category:   feed.Category,
		Signals:    map[string]float64{},
		DedupKey:   dedup.NormalizeKey(entry.Title) + "|" + hostOf(link),
	}
	if item.ExternalID == "" {
		item.ExternalID = link
	}
	if entry.PublishedParsed != nil {
		item.PublishedAt = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		item.PublishedAt = *entry.UpdatedParsed
	}
	return &item
}

// enrichFromArticles refetches the pages of the items at the given indexes
// for full text and reaction counters with bounded concurrency. Per-item
// failures only leave the feed description in place.
func (a *Adapter) enrichFromArticles(ctx context.Context, items []source.RawItem, enrich []int) {
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for _, i := range enrich {
		wg.Add(1)
		sem <- struct{}{}
		go func(item *source.RawItem) {
			defer wg.Done()
			defer func() { <-sem }()

			article, err := a.extractor.Extract(ctx, item.URL)
			if err != nil || article == nil {
				if err != nil {
					logger.Debug("article enrich failed", "url", item.URL, "error", err)
				}
				return
			}
			if len(article.Content) > len(item.BodyText) {
				item.BodyText = article.Content
			}
			if item.BodyText == "" {
				item.BodyText = article.Summary
			}
			if article.Reactions > 0 {
				item.Signals["likes"] = article.Reactions
			}
		}(&items[i])
	}
	wg.Wait()
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(strings.TrimPrefix(u.Host, "www."))
}

// matchesScript is a lightweight script-detection heuristic: it keeps items
// whose letters are predominantly in the target language's script.
func matchesScript(text, lang string) bool {
	var total, matched int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		switch lang {
		case "ja":
			if (r >= 0x3040 && r <= 0x30FF) || (r >= 0x4E00 && r <= 0x9FFF) {
				matched++
			}
		default:
			if r < 0x2500 { // latin and friends
				matched++
			}
		}
	}
	if total == 0 {
		return true
	}
	return float64(matched)/float64(total) >= 0.3
}
