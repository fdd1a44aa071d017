package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kagari/newsdigest/internal/app"
	"github.com/kagari/newsdigest/internal/config"
	"github.com/kagari/newsdigest/internal/dedup"
	"github.com/kagari/newsdigest/internal/httpx"
	"github.com/kagari/newsdigest/internal/logger"
	"github.com/kagari/newsdigest/internal/metrics"
	"github.com/kagari/newsdigest/internal/retry"
	"github.com/kagari/newsdigest/internal/source"
	"github.com/kagari/newsdigest/internal/source/apisrc"
	"github.com/kagari/newsdigest/internal/source/board"
	"github.com/kagari/newsdigest/internal/source/feedsrc"
	"github.com/kagari/newsdigest/internal/storage"
	"github.com/kagari/newsdigest/internal/summarize"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	sourcesFlag := flag.String("source", "all", "comma-separated sources to run: feeds, hackernews, boards, or all")
	days := flag.Int("days", cfg.DayWindow, "publication window in days")
	limit := flag.Int("limit", cfg.ItemLimit, "maximum items per digest")
	flag.Parse()

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	ctx := context.Background()

	client := httpx.New(httpx.Config{
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
		Retry: retry.Policy{
			MaxAttempts:   cfg.RetryAttempts,
			BaseDelay:     cfg.RetryDelay,
			BackoffFactor: cfg.RetryBackoffFactor,
		},
		HostRequestsPerSec: cfg.HostRequestsPerSec,
	})

	summarizer := newSummarizer(ctx, cfg)
	if summarizer != nil {
		defer summarizer.Close()
	}

	store := storage.NewStore(cfg.DataDir)
	adapters := selectAdapters(cfg, client, *sourcesFlag)
	if len(adapters) == 0 {
		logger.Error("no sources selected", "source", *sourcesFlag)
		os.Exit(1)
	}

	failures := 0
	for _, adapter := range adapters {
		tracker, err := newTracker(cfg, adapter.Name())
		if err != nil {
			logger.Error("dedup tracker unavailable", "source", adapter.Name(), "error", err)
			failures++
			continue
		}

		svc := app.NewService(adapter, tracker, summarizer, store)
		if _, err := svc.Run(ctx, app.Options{Days: *days, Limit: *limit}); err != nil {
			logger.Error("run failed", "source", adapter.Name(), "error", err)
			metrics.Global.SetError(err.Error())
			failures++
		}
		if err := tracker.Close(); err != nil {
			logger.Warn("dedup tracker close failed", "source", adapter.Name(), "error", err)
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

// newSummarizer returns nil when no API key is configured; runs then persist
// placeholder summaries instead of aborting.
func newSummarizer(ctx context.Context, cfg *config.Config) summarize.Summarizer {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, digests will carry placeholder summaries")
		return nil
	}
	budget := summarize.NewBudget(cfg.MaxGeminiRequests)
	client, err := summarize.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, budget)
	if err != nil {
		logger.Warn("summarizer unavailable, continuing without it", "error", err)
		return nil
	}
	return client
}

func newTracker(cfg *config.Config, sourceName string) (dedup.Tracker, error) {
	filePath := cfg.DedupFilePath
	if dir, base := filepath.Split(filePath); base != "" {
		filePath = filepath.Join(dir, sourceName+"_"+base)
	}
	return dedup.New(dedup.Config{
		Backend:  cfg.DedupBackend,
		FilePath: filePath,
		DSN:      cfg.PostgresDSN,
		TTLHours: cfg.DedupTTLHours,
	})
}

func selectAdapters(cfg *config.Config, client *httpx.Client, selector string) []source.Adapter {
	wanted := map[string]bool{}
	for _, name := range strings.Split(selector, ",") {
		wanted[strings.TrimSpace(name)] = true
	}
	all := wanted["all"]

	var adapters []source.Adapter
	if all || wanted["feeds"] {
		feeds := feedsrc.LoadRegistry(cfg.FeedsConfigPath)
		adapters = append(adapters, feedsrc.New(feeds, client, cfg.FetchConcurrency))
	}
	if all || wanted["hackernews"] {
		adapters = append(adapters, apisrc.New(apisrc.DefaultBaseURL, client, cfg.FetchConcurrency, 100))
	}
	if all || wanted["boards"] {
		boards := board.LoadRegistry(cfg.BoardsConfigPath)
		adapters = append(adapters, board.New(boards, client, cfg.FetchConcurrency, cfg.ThreadsPerBoard))
	}
	return adapters
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("monitoring server listening", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server stopped", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if healthy, _ := stats["is_healthy"].(bool); !healthy {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metrics.Global.GetStats()); err != nil {
		http.Error(w, fmt.Sprintf("encode metrics: %v", err), http.StatusInternalServerError)
	}
}
