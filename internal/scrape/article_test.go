package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kagari/newsdigest/internal/httpx"
	"github.com/kagari/newsdigest/internal/retry"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestExtractReactions_MaxAcrossCandidates(t *testing.T) {
	doc := docFrom(t, `<html><head>
		<meta name="likes" content="12">
	</head><body>
		<div data-like-count="340"></div>
		<button>97 likes</button>
	</body></html>`)

	if got := ExtractReactions(doc); got != 340 {
		t.Errorf("expected max candidate 340, got %v", got)
	}
}

func TestExtractReactions_FreeTextCounter(t *testing.T) {
	doc := docFrom(t, `<html><body><button>1,204 likes</button></body></html>`)
	if got := ExtractReactions(doc); got != 1204 {
		t.Errorf("expected 1204 from comma-formatted label, got %v", got)
	}
}

func TestExtractReactions_AbsentDefaultsToZero(t *testing.T) {
	doc := docFrom(t, `<html><body><p>no counters here</p></body></html>`)
	if got := ExtractReactions(doc); got != 0 {
		t.Errorf("expected 0.0 when no candidate present, got %v", got)
	}
}

func TestExtract_MetaDescriptionPreferred(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<meta name="description" content="Short official summary.">
			<title>Page</title>
		</head><body>
			<article><h1>Headline</h1>
			<p>` + strings.Repeat("body text ", 20) + `</p></article>
		</body></html>`))
	}))
	defer srv.Close()

	e := NewExtractor(httpx.New(httpx.Config{
		Timeout: 5 * time.Second,
		Retry:   retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond},
	}))
	a, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if a.Summary != "Short official summary." {
		t.Errorf("meta description must win, got %q", a.Summary)
	}
	if a.Title != "Headline" {
		t.Errorf("expected h1 title, got %q", a.Title)
	}
	if a.Content == "" {
		t.Error("expected paragraph content")
	}
}

func TestExtract_NotFoundIsSoftSkip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	e := NewExtractor(httpx.New(httpx.Config{
		Timeout: 5 * time.Second,
		Retry:   retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond},
	}))
	a, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if a != nil {
		t.Error("404 must yield no article")
	}
}
