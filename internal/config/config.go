package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)

	// Source registries
	FeedsConfigPath  string
	BoardsConfigPath string

	// Run defaults (overridable per run by CLI flags)
	DayWindow int
	ItemLimit int

	// HTTP settings
	RequestTimeout     time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
	RetryBackoffFactor float64
	HostRequestsPerSec float64
	UserAgent          string

	// Fetch settings
	FetchConcurrency int // parallel thread/article fetches inside one source
	ThreadsPerBoard  int // how many threads to pull a reply log for

	// Dedup settings
	DedupBackend  string // "file" or "postgres"
	DedupFilePath string
	DedupTTLHours int
	PostgresDSN   string

	// Persistence
	DataDir string

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:        "gemini-1.5-flash",
		MaxGeminiRequests:  30,
		FeedsConfigPath:    "configs/feeds.yaml",
		BoardsConfigPath:   "configs/boards.yaml",
		DayWindow:          1,
		ItemLimit:          10,
		RequestTimeout:     30 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         2 * time.Second,
		RetryBackoffFactor: 2.0,
		HostRequestsPerSec: 2.0,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		FetchConcurrency:   5,
		ThreadsPerBoard:    30,
		DedupBackend:       "file",
		DedupFilePath:      "data/seen_items.json",
		DedupTTLHours:      72,
		DataDir:            "data",
	}

	// Load from environment
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.PostgresDSN = os.Getenv("DATABASE_URL")

	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("FEEDS_CONFIG_PATH"); v != "" {
		cfg.FeedsConfigPath = v
	}
	if v := os.Getenv("BOARDS_CONFIG_PATH"); v != "" {
		cfg.BoardsConfigPath = v
	}
	cfg.DedupBackend = getEnvOrDefault("DEDUP_BACKEND", cfg.DedupBackend)
	cfg.DedupFilePath = getEnvOrDefault("DEDUP_FILE_PATH", cfg.DedupFilePath)
	cfg.DedupTTLHours = getEnvIntOrDefault("DEDUP_TTL_HOURS", cfg.DedupTTLHours)
	cfg.DataDir = getEnvOrDefault("DATA_DIR", cfg.DataDir)
	cfg.UserAgent = getEnvOrDefault("CRAWLER_USER_AGENT", cfg.UserAgent)

	if v := os.Getenv("MAX_GEMINI_REQUESTS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.MaxGeminiRequests = val
		}
	}
	if v := os.Getenv("DAY_WINDOW"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.DayWindow = val
		}
	}
	if v := os.Getenv("ITEM_LIMIT"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.ItemLimit = val
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RetryAttempts = val
		}
	}
	if v := os.Getenv("HOST_REQUESTS_PER_SEC"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 {
			cfg.HostRequestsPerSec = val
		}
	}
	if v := os.Getenv("FETCH_CONCURRENCY"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.FetchConcurrency = val
		}
	}
	if v := os.Getenv("THREADS_PER_BOARD"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.ThreadsPerBoard = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.DedupBackend != "file" && c.DedupBackend != "postgres" {
		return fmt.Errorf("DEDUP_BACKEND must be 'file' or 'postgres'")
	}
	if c.DedupBackend == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("DATABASE_URL is required when DEDUP_BACKEND=postgres")
	}
	return nil
}
