package board

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/kagari/newsdigest/internal/httpx"
	"github.com/kagari/newsdigest/internal/retry"
	"github.com/kagari/newsdigest/internal/source"
)

func sjis(t *testing.T, s string) []byte {
	t.Helper()
	b, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func fastClient() *httpx.Client {
	return httpx.New(httpx.Config{
		Timeout:   2 * time.Second,
		UserAgent: "test",
		Retry:     retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, BackoffFactor: 1},
	})
}

func boardServer(t *testing.T, index string, threads map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/news/subject.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write(sjis(t, index))
	})
	mux.HandleFunc("/news/dat/", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[len("/news/dat/"):]
		body, ok := threads[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(sjis(t, body))
	})
	return httptest.NewServer(mux)
}

func TestFetch_FallsBackPastDeadMirrors(t *testing.T) {
	dead1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer dead1.Close()
	dead2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer dead2.Close()

	live := boardServer(t,
		"1700000000.dat<>生きているスレ (2)\n",
		map[string]string{
			"1700000000.dat": "名無し<><>2026/08/30(日) 10:00:00.00 ID:a<>最初の書き込み<>生きているスレ\n" +
				"名無し<><>2026/08/30(日) 11:00:00.00 ID:b<>二番目\n",
		})
	defer live.Close()

	a := New([]Board{{Key: "news", Name: "News", Hosts: []string{dead1.URL, dead2.URL, live.URL}}}, fastClient(), 2, 10)

	items, err := a.Fetch(context.Background(), source.Window{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item via the live mirror, got %d", len(items))
	}
	it := items[0]
	if it.DedupKey != "news/1700000000" {
		t.Errorf("dedup key = %q", it.DedupKey)
	}
	if it.Title != "生きているスレ" {
		t.Errorf("title = %q", it.Title)
	}
	if it.Signals["replies"] != 2 {
		t.Errorf("replies signal = %v", it.Signals["replies"])
	}

	// The surviving mirror must now be the preferred candidate.
	cands := a.candidates(a.boards[0])
	if cands[0].Hostname != live.URL {
		t.Errorf("preferred host = %q, want %q", cands[0].Hostname, live.URL)
	}
}

func TestFetch_AllMirrorsDownYieldsZeroItemsNoError(t *testing.T) {
	var hits int32
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer dead.Close()

	a := New([]Board{{Key: "news", Name: "News", Hosts: []string{dead.URL}}}, fastClient(), 2, 10)

	items, err := a.Fetch(context.Background(), source.Window{})
	if err != nil {
		t.Fatalf("mirror exhaustion must not fail the source: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected zero items, got %d", len(items))
	}
	if atomic.LoadInt32(&hits) == 0 {
		t.Error("mirror should have been attempted")
	}
}

func TestFetch_GoneThreadSkippedOthersSurvive(t *testing.T) {
	live := boardServer(t,
		"1700000000.dat<>Alive (1)\n1700000001.dat<>Archived (99)\n",
		map[string]string{
			"1700000000.dat": "a<><>2026/08/30(日) 10:00:00.00<>body<>Alive\n",
		})
	defer live.Close()

	a := New([]Board{{Key: "news", Name: "News", Hosts: []string{live.URL}}}, fastClient(), 2, 10)

	items, err := a.Fetch(context.Background(), source.Window{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("archived thread must be skipped without losing the live one, got %d items", len(items))
	}
	if items[0].ExternalID != "news/1700000000" {
		t.Errorf("unexpected item %q", items[0].ExternalID)
	}
}

func TestFetch_CapsThreadsByReplyCount(t *testing.T) {
	index := "1700000001.dat<>Low (1)\n1700000002.dat<>High (50)\n1700000003.dat<>Mid (10)\n"
	threads := map[string]string{
		"1700000001.dat": "a<><>2026/08/30(日) 10:00:00.00<>x<>Low\n",
		"1700000002.dat": "a<><>2026/08/30(日) 10:00:00.00<>x<>High\n",
		"1700000003.dat": "a<><>2026/08/30(日) 10:00:00.00<>x<>Mid\n",
	}
	live := boardServer(t, index, threads)
	defer live.Close()

	a := New([]Board{{Key: "news", Name: "News", Hosts: []string{live.URL}}}, fastClient(), 2, 2)

	items, err := a.Fetch(context.Background(), source.Window{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected cap of 2 threads, got %d", len(items))
	}
	got := map[string]bool{}
	for _, it := range items {
		got[it.Title] = true
	}
	if !got["High"] || !got["Mid"] {
		t.Errorf("busiest threads must win the cap: %v", got)
	}
}
