// Package scrape extracts article text and popularity signals from HTML pages.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kagari/newsdigest/internal/httpx"
)

// Article is the best-effort extraction result for one page.
type Article struct {
	Title     string
	Summary   string
	Content   string
	URL       string
	Reactions float64 // max reaction/like counter found on the page, 0 if none
}

type Extractor struct {
	client *httpx.Client
}

func NewExtractor(client *httpx.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract fetches and parses one article page. An expected miss (404 etc.)
// returns a nil article and nil error so callers can soft-skip.
func (e *Extractor) Extract(ctx context.Context, url string) (*Article, error) {
	res := e.client.Fetch(ctx, url, httpx.Options{})
	switch res.Outcome {
	case httpx.Success:
	case httpx.ExpectedMiss:
		return nil, nil
	default:
		return nil, fmt.Errorf("fetch article %s: %w", url, res.Err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("parse article %s: %w", url, err)
	}

	return &Article{
		Title:     extractTitle(doc),
		Summary:   extractSummary(doc),
		Content:   extractContent(doc),
		URL:       url,
		Reactions: ExtractReactions(doc),
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		".article-title",
		".headline",
		".entry-title",
		"title",
	}
	for _, selector := range selectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// extractSummary prefers the meta description, falling back to the first
// substantial paragraph.
func extractSummary(doc *goquery.Document) string {
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return desc
		}
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			return desc
		}
	}

	summary := ""
	doc.Find("article p, main p, .content p, p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) > 80 {
			summary = text
			return false
		}
		return true
	})
	return summary
}

func extractContent(doc *goquery.Document) string {
	var paragraphs []string

	selectors := []string{
		"article p",
		".article-body p",
		".post-content p",
		".entry-content p",
		"main p",
		"#content p",
		"p",
	}

	for _, selector := range selectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
	}

	content := strings.Join(paragraphs, "\n\n")
	return truncateAtParagraph(content, 1800)
}

func truncateAtParagraph(content string, max int) string {
	if len(content) <= max {
		return content
	}
	paragraphs := strings.Split(content, "\n\n")
	var kept []string
	total := 0
	for _, p := range paragraphs {
		if total+len(p) >= max {
			break
		}
		kept = append(kept, p)
		total += len(p) + 2
	}
	if len(kept) == 0 {
		return content[:max]
	}
	return strings.Join(kept, "\n\n")
}

var counterPattern = regexp.MustCompile(`(\d[\d,]*)\s*(?:likes?|reactions?|points?|いいね)`)

// reaction counter candidates, checked in order of reliability
var reactionMetaSelectors = []string{
	`meta[name="article:like_count"]`,
	`meta[property="article:like_count"]`,
	`meta[name="likes"]`,
}

var reactionAttrSelectors = []string{
	"[data-like-count]",
	"[data-likes]",
	"[data-reaction-count]",
}

// ExtractReactions searches the ordered candidate locations (structured meta
// tags, then data attributes, then free-text counters) and returns the
// maximum value found. Absence of every candidate yields 0.0, never an error.
func ExtractReactions(doc *goquery.Document) float64 {
	var best float64

	for _, selector := range reactionMetaSelectors {
		if v, ok := doc.Find(selector).Attr("content"); ok {
			if n, ok := parseCounter(v); ok && n > best {
				best = n
			}
		}
	}

	for _, selector := range reactionAttrSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			for _, attr := range []string{"data-like-count", "data-likes", "data-reaction-count"} {
				if v, ok := s.Attr(attr); ok {
					if n, ok := parseCounter(v); ok && n > best {
						best = n
					}
				}
			}
		})
	}

	doc.Find("button, span.likes, .reaction-count").Each(func(i int, s *goquery.Selection) {
		m := counterPattern.FindStringSubmatch(s.Text())
		if len(m) == 2 {
			if n, ok := parseCounter(m[1]); ok && n > best {
				best = n
			}
		}
	})

	return best
}

func parseCounter(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
