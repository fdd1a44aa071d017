package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kagari/newsdigest/internal/retry"
)

func testClient() *Client {
	return New(Config{
		Timeout: 5 * time.Second,
		Retry:   retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2},
	})
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	res := testClient().Fetch(context.Background(), srv.URL, Options{})
	if res.Outcome != Success {
		t.Fatalf("expected Success, got outcome=%v err=%v", res.Outcome, res.Err)
	}
	if string(res.Body) != "ok" {
		t.Errorf("unexpected body %q", res.Body)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFetch_NotFoundIsExpectedMissWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	res := testClient().Fetch(context.Background(), srv.URL, Options{})
	if res.Outcome != ExpectedMiss {
		t.Fatalf("expected ExpectedMiss, got %v", res.Outcome)
	}
	if res.Err != nil {
		t.Errorf("expected misses carry no error, got %v", res.Err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", res.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("404 must not consume retry budget, got %d calls", calls)
	}
}

func TestFetch_TransientExhaustionSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := testClient().Fetch(context.Background(), srv.URL, Options{})
	if res.Outcome != TransientError {
		t.Fatalf("expected TransientError, got %v", res.Outcome)
	}
	if res.Err == nil {
		t.Error("exhausted retries must surface the last error")
	}
}

func TestFetch_DefaultHeadersMergedUnderOverrides(t *testing.T) {
	var gotUA, gotLang, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	res := testClient().Fetch(context.Background(), srv.URL, Options{
		Headers: map[string]string{"Accept": "application/json"},
	})
	if res.Outcome != Success {
		t.Fatalf("fetch failed: %v", res.Err)
	}
	if gotUA == "" || gotLang == "" {
		t.Error("default headers were not applied")
	}
	if gotAccept != "application/json" {
		t.Errorf("caller override must win, got Accept=%q", gotAccept)
	}
}

func TestFetch_InvalidURLIsFatal(t *testing.T) {
	res := testClient().Fetch(context.Background(), "://nope", Options{})
	if res.Outcome != FatalError {
		t.Fatalf("expected FatalError, got %v", res.Outcome)
	}
}
