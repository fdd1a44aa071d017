package dedup

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/kagari/newsdigest/internal/logger"
)

// PostgresTracker keeps the seen-set in a Postgres table. The in-memory set
// is loaded wholesale at Load and new records are appended at Persist, so
// duplicate checks during the run never hit the database.
type PostgresTracker struct {
	db       *sql.DB
	ttlHours int
	mu       sync.RWMutex
	items    map[string]Record
	pending  []Record
}

func NewPostgresTracker(dsn string, ttlHours int) (*PostgresTracker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	t := &PostgresTracker{
		db:       db,
		ttlHours: ttlHours,
		items:    make(map[string]Record),
	}
	if err := t.ensureSchema(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *PostgresTracker) ensureSchema() error {
	_, err := t.db.Exec(`
		CREATE TABLE IF NOT EXISTS seen_items (
			key        TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			source     TEXT NOT NULL DEFAULT '',
			first_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create seen_items table: %w", err)
	}
	return nil
}

func (t *PostgresTracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	query := `SELECT key, title, source, first_seen FROM seen_items`
	args := []interface{}{}
	if t.ttlHours > 0 {
		query += ` WHERE first_seen > $1`
		args = append(args, time.Now().Add(-time.Duration(t.ttlHours)*time.Hour))
	}

	rows, err := t.db.Query(query, args...)
	if err != nil {
		logger.Warn("dedup table unreadable, treating everything as new", "error", err)
		return nil
	}
	defer rows.Close()

	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Key, &r.Title, &r.Source, &r.FirstSeen); err != nil {
			continue
		}
		t.items[r.Key] = r
	}
	return nil
}

func (t *PostgresTracker) IsDuplicate(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.items[key]
	return ok
}

func (t *PostgresTracker) Add(key, title, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[key]; ok {
		return
	}
	r := Record{Key: key, Title: title, Source: source, FirstSeen: time.Now()}
	t.items[key] = r
	t.pending = append(t.pending, r)
}

func (t *PostgresTracker) Persist() error {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, r := range pending {
		_, err := t.db.Exec(
			`INSERT INTO seen_items (key, title, source, first_seen)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (key) DO NOTHING`,
			r.Key, r.Title, r.Source, r.FirstSeen,
		)
		if err != nil {
			return fmt.Errorf("persist seen item %q: %w", r.Key, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (t *PostgresTracker) Close() error {
	return t.db.Close()
}
