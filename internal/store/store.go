// Package store persists accounts, lifetime stats and match history in
// SQLite. Lifetime stats are cached in Redis when a cache is configured.
package store

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNameTaken = errors.New("name already taken")
)

// timeLayout matches the strftime format the schema defaults use.
const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db     *sql.DB
	cache  *StatsCache
	logger *slog.Logger
}

// New wraps a migrated database. cache may be nil.
func New(db *sql.DB, cache *StatsCache, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, cache: cache, logger: logger}
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }
