// Package health serves the liveness report for the server's backing services.
package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

func SQLite(db *sql.DB) Checker {
	return CheckerFunc(db.PingContext)
}

// Redis checks rdb, or reports the cache as disabled when rdb is nil.
func Redis(rdb redis.UniversalClient) Checker {
	if rdb == nil {
		return nil
	}
	return CheckerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
}

// RoomCounter reports how many rooms are live.
type RoomCounter interface {
	Len() int
}

type Handler struct {
	checks map[string]Checker
	rooms  RoomCounter
	logger *slog.Logger
}

// NewHandler builds the report. A nil Checker is listed as disabled and does
// not affect the status code.
func NewHandler(logger *slog.Logger, rooms RoomCounter, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, rooms: rooms, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type result struct {
	Status string `json:"status"`
}

type Report struct {
	Status string            `json:"status"`
	Checks map[string]result `json:"checks"`
	Rooms  int               `json:"rooms"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rep := Report{Status: "ok", Checks: make(map[string]result, len(h.checks))}
	status := http.StatusOK

	for name, c := range h.checks {
		if c == nil {
			rep.Checks[name] = result{Status: "disabled"}
			continue
		}
		if err := c.Check(ctx); err != nil {
			h.logger.Error("health check failed", "name", name, "error", err)
			rep.Checks[name] = result{Status: "error"}
			rep.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		rep.Checks[name] = result{Status: "ok"}
	}
	if h.rooms != nil {
		rep.Rooms = h.rooms.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(rep)
}
