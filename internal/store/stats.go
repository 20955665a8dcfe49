package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Stats are a registered player's lifetime totals.
type Stats struct {
	PlayerID         string `json:"playerId"`
	GamesPlayed      int    `json:"gamesPlayed"`
	Wins             int    `json:"wins"`
	Eliminations     int    `json:"eliminations"`
	ChallengesWon    int    `json:"challengesWon"`
	BluffsCaught     int    `json:"bluffsCaught"`
	SuccessfulBlocks int    `json:"successfulBlocks"`
}

// Stats returns lifetime totals for playerID, zero for a player who never
// finished a game. Cache failures fall back to the database.
func (s *Store) Stats(ctx context.Context, playerID string) (Stats, error) {
	st, ok, err := s.cache.Get(ctx, playerID)
	if err != nil {
		s.logger.Warn("stats cache read failed", "player", playerID, "error", err)
	}
	if ok {
		return st, nil
	}

	st = Stats{PlayerID: playerID}
	err = s.db.QueryRowContext(ctx, `
		SELECT games_played, wins, eliminations, challenges_won, bluffs_caught, successful_blocks
		FROM player_stats WHERE player_id = ?
	`, playerID).Scan(&st.GamesPlayed, &st.Wins, &st.Eliminations, &st.ChallengesWon, &st.BluffsCaught, &st.SuccessfulBlocks)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("loading stats: %w", err)
	}

	if err := s.cache.Set(ctx, st); err != nil {
		s.logger.Warn("stats cache write failed", "player", playerID, "error", err)
	}
	return st, nil
}
