package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/playperu/coup/internal/game"
)

// Match is one finished game as stored.
type Match struct {
	ID        string              `json:"id"`
	RoomID    string              `json:"roomId"`
	WinnerID  string              `json:"winnerId"`
	Settings  game.Settings       `json:"settings"`
	Players   []game.PlayerResult `json:"players"`
	StartedAt string              `json:"startedAt"`
	EndedAt   string              `json:"endedAt"`
}

// RecordMatch stores a finished game and folds it into the lifetime stats
// of every registered participant. It is the engine's persistence sink.
func (s *Store) RecordMatch(ctx context.Context, m game.MatchRecord) error {
	settings, err := json.Marshal(m.Settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	var winner string
	for _, p := range m.Players {
		if p.Place == 1 {
			winner = p.PlayerID
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO matches (id, room_id, winner_id, settings, started_at, ended_at)
		VALUES (?, ?, ?, jsonb(?), ?, ?)
	`, m.ID, m.RoomID, winner, string(settings), formatTime(m.StartedAt), formatTime(m.EndedAt))
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}

	var registered []string
	for _, p := range m.Players {
		stats, err := json.Marshal(p.Stats)
		if err != nil {
			return fmt.Errorf("encoding stats: %w", err)
		}
		guest := 0
		if p.Guest {
			guest = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO match_players (match_id, player_id, name, guest, place, eliminated_by, stats)
			VALUES (?, ?, ?, ?, ?, ?, jsonb(?))
		`, m.ID, p.PlayerID, p.Name, guest, p.Place, p.EliminatedBy, string(stats))
		if err != nil {
			return fmt.Errorf("inserting match player: %w", err)
		}
		if p.Guest {
			continue
		}

		win := 0
		if p.Place == 1 {
			win = 1
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO player_stats (player_id, games_played, wins, eliminations, challenges_won, bluffs_caught, successful_blocks)
			SELECT id, 1, ?, ?, ?, ?, ? FROM accounts WHERE id = ?
			ON CONFLICT(player_id) DO UPDATE SET
				games_played      = games_played + 1,
				wins              = wins + excluded.wins,
				eliminations      = eliminations + excluded.eliminations,
				challenges_won    = challenges_won + excluded.challenges_won,
				bluffs_caught     = bluffs_caught + excluded.bluffs_caught,
				successful_blocks = successful_blocks + excluded.successful_blocks,
				updated_at        = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		`, win, p.Stats.Eliminations, p.Stats.ChallengesWon, p.Stats.BluffsCaught, p.Stats.SuccessfulBlocks, p.PlayerID)
		if err != nil {
			return fmt.Errorf("updating stats: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			registered = append(registered, p.PlayerID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing match: %w", err)
	}
	if err := s.cache.Invalidate(ctx, registered...); err != nil {
		s.logger.Warn("stats cache invalidation failed", "match", m.ID, "error", err)
	}
	return nil
}

// Match loads one stored game.
func (s *Store) Match(ctx context.Context, id string) (Match, error) {
	var m Match
	var settings string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, winner_id, json(settings), started_at, ended_at
		FROM matches WHERE id = ?
	`, id).Scan(&m.ID, &m.RoomID, &m.WinnerID, &settings, &m.StartedAt, &m.EndedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, ErrNotFound
	}
	if err != nil {
		return Match{}, fmt.Errorf("loading match: %w", err)
	}
	if err := json.Unmarshal([]byte(settings), &m.Settings); err != nil {
		return Match{}, fmt.Errorf("decoding settings: %w", err)
	}
	if m.Players, err = s.matchPlayers(ctx, id); err != nil {
		return Match{}, err
	}
	return m, nil
}

// RecentMatches lists the newest games playerID took part in.
func (s *Store) RecentMatches(ctx context.Context, playerID string, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id
		FROM matches m
		JOIN match_players mp ON mp.match_id = m.id
		WHERE mp.player_id = ?
		ORDER BY m.ended_at DESC
		LIMIT ?
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(ids))
	for _, id := range ids {
		m, err := s.Match(ctx, id)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *Store) matchPlayers(ctx context.Context, matchID string) ([]game.PlayerResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, name, guest, place, eliminated_by, json(stats)
		FROM match_players
		WHERE match_id = ?
		ORDER BY place
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("loading match players: %w", err)
	}
	defer rows.Close()

	var players []game.PlayerResult
	for rows.Next() {
		var p game.PlayerResult
		var stats string
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Guest, &p.Place, &p.EliminatedBy, &stats); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stats), &p.Stats); err != nil {
			return nil, fmt.Errorf("decoding player stats: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
