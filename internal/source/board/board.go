// Package board crawls legacy bulletin boards hosted redundantly across
// multiple mirror hostnames, in a single-byte-hostile text encoding.
//
// Dedup key strategy: board key plus thread identifier, which is stable for
// the life of a thread.
package board

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kagari/newsdigest/internal/httpx"
	"github.com/kagari/newsdigest/internal/logger"
	"github.com/kagari/newsdigest/internal/metrics"
	"github.com/kagari/newsdigest/internal/source"
)

// HostCandidate tracks one mirror's recent behavior so future host selection
// is biased toward recently-successful mirrors. In-memory only, scoped to the
// adapter's lifetime.
type HostCandidate struct {
	Hostname    string
	LastSuccess time.Time
	LastFailure time.Time
}

type Adapter struct {
	boards          []Board
	client          *httpx.Client
	concurrency     int
	threadsPerBoard int
	clock           func() time.Time

	mu    sync.Mutex
	hosts map[string][]*HostCandidate // board key -> ordered candidates
}

func New(boards []Board, client *httpx.Client, concurrency, threadsPerBoard int) *Adapter {
	if concurrency <= 0 {
		concurrency = 5
	}
	if threadsPerBoard <= 0 {
		threadsPerBoard = 30
	}
	return &Adapter{
		boards:          boards,
		client:          client,
		concurrency:     concurrency,
		threadsPerBoard: threadsPerBoard,
		clock:           time.Now,
		hosts:           make(map[string][]*HostCandidate),
	}
}

func (a *Adapter) Name() string { return "boards" }

// Fetch runs one board-fetch cycle per registered board. A board whose
// mirrors are all down yields zero items for that board, never an error for
// the whole source.
func (a *Adapter) Fetch(ctx context.Context, w source.Window) ([]source.RawItem, error) {
	var items []source.RawItem
	for _, b := range a.boards {
		boardItems := a.fetchBoard(ctx, b)
		items = append(items, boardItems...)
	}
	return items, nil
}

func (a *Adapter) fetchBoard(ctx context.Context, b Board) []source.RawItem {
	stubs, host := a.fetchIndex(ctx, b)
	if host == "" {
		logger.Warn("all mirrors exhausted for board", "board", b.Key)
		return nil
	}
	if len(stubs) == 0 {
		return nil
	}

	// Busiest threads first, capped to keep the cycle polite.
	sort.SliceStable(stubs, func(i, j int) bool {
		return stubs[i].ReplyCount > stubs[j].ReplyCount
	})
	if len(stubs) > a.threadsPerBoard {
		stubs = stubs[:a.threadsPerBoard]
	}

	results := make([]source.RawItem, len(stubs))
	ok := make([]bool, len(stubs))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, stub := range stubs {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, stub ThreadStub) {
			defer wg.Done()
			defer func() { <-sem }()

			item := a.fetchThread(ctx, b, stub, host)
			if item == nil {
				return
			}
			results[slot] = *item
			ok[slot] = true
		}(i, stub)
	}
	wg.Wait()

	items := make([]source.RawItem, 0, len(results))
	for i := range results {
		if ok[i] {
			items = append(items, results[i])
		}
	}
	logger.Info("board crawled", "board", b.Key, "host", host, "threads", len(items))
	return items
}

// fetchIndex walks the board's mirror candidates in priority order until one
// serves the thread index, and returns the stubs plus the host that answered.
// Exhausting every candidate returns an empty host.
func (a *Adapter) fetchIndex(ctx context.Context, b Board) ([]ThreadStub, string) {
	for _, cand := range a.candidates(b) {
		url := baseURL(cand.Hostname) + "/" + b.Key + "/subject.txt"
		res := a.client.Fetch(ctx, url, httpx.Options{ForceHTTP1: true})
		if res.Outcome != httpx.Success {
			a.markFailure(b.Key, cand.Hostname)
			metrics.Global.IncrementHostFailovers()
			logger.Debug("mirror failed, advancing", "board", b.Key, "host", cand.Hostname, "error", res.Err)
			continue
		}

		text, dropped := DecodeShiftJIS(res.Body)
		if dropped > 0 {
			metrics.Global.AddBytesDropped(dropped)
			logger.Debug("undecodable sequences dropped from index", "board", b.Key, "count", dropped)
		}
		a.markSuccess(b.Key, cand.Hostname)
		return ParseIndex(text), cand.Hostname
	}
	return nil, ""
}

// fetchThread retrieves and parses one reply log, retrying across the
// remaining mirror candidates before giving up on this thread only.
func (a *Adapter) fetchThread(ctx context.Context, b Board, stub ThreadStub, preferred string) *source.RawItem {
	hosts := []string{preferred}
	for _, cand := range a.candidates(b) {
		if cand.Hostname != preferred {
			hosts = append(hosts, cand.Hostname)
		}
	}

	for _, host := range hosts {
		url := fmt.Sprintf("%s/%s/dat/%s.dat", baseURL(host), b.Key, stub.ThreadID)
		res := a.client.Fetch(ctx, url, httpx.Options{ForceHTTP1: true})
		switch res.Outcome {
		case httpx.Success:
			text, dropped := DecodeShiftJIS(res.Body)
			if dropped > 0 {
				metrics.Global.AddBytesDropped(dropped)
			}
			return a.buildItem(b, stub, host, text)
		case httpx.ExpectedMiss:
			// The log is gone everywhere this host knows about; an
			// archived thread is not worth a mirror walk.
			return nil
		default:
			a.markFailure(b.Key, host)
			metrics.Global.IncrementHostFailovers()
		}
	}
	logger.Debug("thread unreachable on all mirrors", "board", b.Key, "thread", stub.ThreadID)
	return nil
}

func (a *Adapter) buildItem(b Board, stub ThreadStub, host, text string) *source.RawItem {
	title, replies := ParseThread(text)
	if len(replies) == 0 {
		return nil
	}
	if title == "" {
		title = stub.Title
	}

	now := a.clock()
	created := threadCreatedAt(stub.ThreadID)
	published := created
	if last := replies[len(replies)-1].Stamp; !last.IsZero() {
		published = last
	}

	replyCount := float64(stub.ReplyCount)
	if n := float64(len(replies)); n > replyCount {
		replyCount = n
	}

	signals := map[string]float64{
		"replies": replyCount,
	}
	if !created.IsZero() {
		ageHours := now.Sub(created).Hours()
		if ageHours < 1 {
			ageHours = 1
		}
		signals["velocity"] = replyCount / ageHours
		signals["age_hours"] = ageHours
	}

	return &source.RawItem{
		ExternalID:  b.Key + "/" + stub.ThreadID,
		Title:       title,
		URL:         fmt.Sprintf("%s/test/read.cgi/%s/%s/", baseURL(host), b.Key, stub.ThreadID),
		BodyText:    replies[0].Body,
		PublishedAt: published,
		Category:    b.Name,
		Signals:     signals,
		DedupKey:    b.Key + "/" + stub.ThreadID,
	}
}

// candidates returns the board's mirror list with the most recently
// successful host moved to the front.
func (a *Adapter) candidates(b Board) []*HostCandidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	cands, ok := a.hosts[b.Key]
	if !ok {
		cands = make([]*HostCandidate, len(b.Hosts))
		for i, h := range b.Hosts {
			cands[i] = &HostCandidate{Hostname: h}
		}
		a.hosts[b.Key] = cands
	}

	ordered := make([]*HostCandidate, len(cands))
	copy(ordered, cands)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LastSuccess.After(ordered[j].LastSuccess)
	})
	return ordered
}

func (a *Adapter) markSuccess(boardKey, host string) {
	a.touch(boardKey, host, true)
}

func (a *Adapter) markFailure(boardKey, host string) {
	a.touch(boardKey, host, false)
}

func (a *Adapter) touch(boardKey, host string, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, cand := range a.hosts[boardKey] {
		if cand.Hostname == host {
			if success {
				cand.LastSuccess = a.clock()
			} else {
				cand.LastFailure = a.clock()
			}
			return
		}
	}
}

// baseURL accepts either a bare hostname or a full scheme-qualified base.
func baseURL(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimSuffix(host, "/")
	}
	return "https://" + host
}
