package game

import (
	"context"
	"time"
)

const sinkTimeout = 10 * time.Second

// tryAdvance moves to the next turn once the current action is fully
// resolved and nobody owes anything.
func (r *Room) tryAdvance() {
	if r.phase != PhasePlaying || r.pending != nil || !r.turnDone || r.anyObligation() {
		return
	}
	r.advanceTurn()
}

// advanceTurn steps to the next living seat, at most one full lap.
func (r *Room) advanceTurn() {
	n := len(r.players)
	for i := 1; i <= n; i++ {
		idx := (r.turn + i) % n
		if r.players[idx].Alive() {
			r.turn = idx
			r.turnDone = false
			r.record(Entry{Kind: EntryTurnStarted, Actor: r.players[idx].ID})
			return
		}
	}
	r.fault("no living player to take the turn", "players", n)
}

// eliminate records p's placement and checks for a winner. Placement is
// one past the number of players still alive.
func (r *Room) eliminate(p *Player, by string) {
	r.abandonExchange(p)
	p.Obligations = Obligations{}
	r.clearLinks(p)

	place := len(r.alivePlayers()) + 1
	if by == p.ID {
		by = ""
	}
	r.placements = append(r.placements, Placement{PlayerID: p.ID, Place: place, EliminatedBy: by})
	if killer := r.player(by); killer != nil {
		killer.Stats.Eliminations++
	}
	r.record(Entry{Kind: EntryEliminated, Actor: p.ID, Target: by, Amount: place})
	r.checkWin()
}

// checkWin ends the game when exactly one player is alive.
func (r *Room) checkWin() bool {
	alive := r.alivePlayers()
	if len(alive) != 1 {
		return false
	}
	w := alive[0]
	r.placements = append(r.placements, Placement{PlayerID: w.ID, Place: 1})
	r.phase = PhaseEnded
	r.winner = w.ID
	r.endedAt = r.now()
	r.clearPending()
	r.settleObligations()
	r.turnDone = true
	r.record(Entry{Kind: EntryGameEnded, Actor: w.ID})

	if r.sink != nil {
		rec := r.matchRecord()
		sink, logger := r.sink, r.logger
		r.after = append(r.after, func() {
			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			defer cancel()
			if err := sink.RecordMatch(ctx, rec); err != nil {
				logger.Error("record match", "match", rec.ID, "error", err)
			}
		})
	}
	return true
}

func (r *Room) matchRecord() MatchRecord {
	byID := make(map[string]Placement, len(r.placements))
	for _, pl := range r.placements {
		byID[pl.PlayerID] = pl
	}
	rec := MatchRecord{
		ID:         r.matchID,
		RoomID:     r.id,
		Settings:   r.settings,
		Placements: append([]Placement(nil), r.placements...),
		StartedAt:  r.startedAt,
		EndedAt:    r.endedAt,
	}
	for _, p := range r.players {
		pl := byID[p.ID]
		rec.Players = append(rec.Players, PlayerResult{
			PlayerID:     p.ID,
			Name:         p.Name,
			Guest:        p.Guest,
			Place:        pl.Place,
			EliminatedBy: pl.EliminatedBy,
			Stats:        p.Stats,
		})
	}
	return rec
}
