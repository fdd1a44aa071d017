// Package httpx provides the shared resilient HTTP client used by all
// source adapters: default browser-like headers, per-host rate limiting,
// bounded retries with backoff, and an HTTP/1.1 fallback mode for origins
// that reject modern protocol negotiation.
package httpx

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kagari/newsdigest/internal/retry"
)

// Outcome classifies a completed fetch so callers can pattern-match
// instead of inspecting status codes behind broad error checks.
type Outcome int

const (
	// Success means a 2xx response with a readable body.
	Success Outcome = iota
	// ExpectedMiss means access denied or not found (401/403/404).
	// These are reported at low severity and never retried.
	ExpectedMiss
	// TransientError means the call failed after exhausting retries
	// (timeouts, connection resets, 5xx).
	TransientError
	// FatalError means a non-retryable failure (bad URL, unexpected 4xx).
	FatalError
)

// Result is the tagged outcome of one Fetch call.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Body       []byte
	Header     http.Header
	Err        error
}

// Options adjusts a single call; zero values fall back to client defaults.
type Options struct {
	Method     string
	Headers    map[string]string
	Timeout    time.Duration
	ForceHTTP1 bool
}

type Config struct {
	Timeout            time.Duration
	UserAgent          string
	Retry              retry.Policy
	HostRequestsPerSec float64
}

// Client wraps two pooled http.Clients (negotiated and HTTP/1.1-pinned).
// It is stateless apart from the connection pools and per-host limiters
// and is safe for concurrent use across all sources in the process.
type Client struct {
	std       *http.Client
	http1     *http.Client
	userAgent string
	timeout   time.Duration
	policy    retry.Policy
	hostRate  rate.Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, BackoffFactor: 2}
	}
	hostRate := rate.Limit(cfg.HostRequestsPerSec)
	if hostRate <= 0 {
		hostRate = rate.Inf
	}

	std := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	// Pinned to HTTP/1.1: an empty TLSNextProto map disables ALPN upgrade.
	http1 := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   false,
		TLSNextProto:        map[string]func(string, *tls.Conn) http.RoundTripper{},
	}

	return &Client{
		std:       &http.Client{Transport: std},
		http1:     &http.Client{Transport: http1},
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		policy:    cfg.Retry,
		hostRate:  hostRate,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.hostRate, 1)
		c.limiters[host] = l
	}
	return l
}

// Fetch performs one HTTP call under the retry policy. The returned error is
// non-nil only for TransientError (retries exhausted) and FatalError results;
// ExpectedMiss is a normal, low-severity outcome.
func (c *Client) Fetch(ctx context.Context, rawURL string, opt Options) Result {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Result{Outcome: FatalError, Err: fmt.Errorf("invalid url %q: %w", rawURL, err)}
	}

	if err := c.limiter(u.Host).Wait(ctx); err != nil {
		return Result{Outcome: TransientError, Err: err}
	}

	var res Result
	err = retry.Do(ctx, c.policy, func() error {
		r, err := c.doOnce(ctx, rawURL, opt)
		res = r
		if err == nil {
			return nil
		}
		switch r.Outcome {
		case ExpectedMiss, FatalError:
			return retry.Permanent(err)
		default:
			return err
		}
	})

	if err != nil && res.Outcome == Success {
		// doOnce never returns an error with Success, but keep the
		// invariant explicit for the retry wrapper path.
		res.Outcome = TransientError
	}
	if res.Outcome == ExpectedMiss {
		// Expected misses carry no error to the caller.
		res.Err = nil
		return res
	}
	res.Err = err
	return res
}

func (c *Client) doOnce(ctx context.Context, rawURL string, opt Options) (Result, error) {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := opt.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(callCtx, method, rawURL, nil)
	if err != nil {
		return Result{Outcome: FatalError}, fmt.Errorf("build request: %w", err)
	}

	// Defaults first, caller overrides win.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.8,en;q=0.6")
	req.Header.Set("Accept-Encoding", "gzip")
	for k, v := range opt.Headers {
		req.Header.Set(k, v)
	}

	client := c.std
	if opt.ForceHTTP1 {
		client = c.http1
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Outcome: TransientError}, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return Result{Outcome: ExpectedMiss, StatusCode: resp.StatusCode, Header: resp.Header},
			fmt.Errorf("expected miss %d for %s", resp.StatusCode, rawURL)
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return Result{Outcome: TransientError, StatusCode: resp.StatusCode, Header: resp.Header},
			fmt.Errorf("server error %d for %s", resp.StatusCode, rawURL)
	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return Result{Outcome: FatalError, StatusCode: resp.StatusCode, Header: resp.Header},
			fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return Result{Outcome: TransientError, StatusCode: resp.StatusCode},
				fmt.Errorf("gzip body %s: %w", rawURL, err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return Result{Outcome: TransientError, StatusCode: resp.StatusCode},
			fmt.Errorf("read body %s: %w", rawURL, err)
	}

	return Result{Outcome: Success, StatusCode: resp.StatusCode, Body: body, Header: resp.Header}, nil
}
