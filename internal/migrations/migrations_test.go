package migrations_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/playperu/coup/internal/database"
	"github.com/playperu/coup/internal/migrations"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.MemoryPath)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	for _, table := range []string{"accounts", "player_stats", "matches", "match_players"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	v, err := migrations.Version(ctx, db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 1 {
		t.Errorf("expected schema version 1, got %d", v)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run should be a no-op: %v", err)
	}
}

func TestMatchPlayersCascade(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	stmts := []string{
		`INSERT INTO matches (id, room_id, winner_id, settings, started_at, ended_at)
		 VALUES ('m1', 'ROOM', 'p1', jsonb('{}'), '2026-01-01T00:00:00Z', '2026-01-01T00:10:00Z')`,
		`INSERT INTO match_players (match_id, player_id, name, place, stats)
		 VALUES ('m1', 'p1', 'Ana', 1, jsonb('{}'))`,
		`DELETE FROM matches WHERE id = 'm1'`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_players`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected cascade delete, %d rows left", n)
	}
}
