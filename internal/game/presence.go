package game

import (
	"slices"

	"github.com/playperu/coup/internal/timer"
)

// Disconnect marks id as gone. Players keep their seat for the reconnect
// grace period; spectators are simply dropped.
func (r *Room) Disconnect(id string) error {
	return r.do(func() error {
		if i := r.spectatorIndex(id); i >= 0 {
			r.spectators = slices.Delete(r.spectators, i, i+1)
			r.record(Entry{Kind: EntryLeft, Actor: id})
			return nil
		}
		p := r.player(id)
		if p == nil {
			return ErrNotInRoom
		}
		if p.Presence != PresenceActive {
			return nil
		}
		p.Presence = PresenceDisconnected
		r.record(Entry{Kind: EntryDisconnected, Actor: p.ID})

		p.stopForfeitTimer()
		var h timer.Handle
		h = r.sched.AfterFunc(r.settings.ReconnectGrace, func() {
			r.fire(func() bool { return r.graceExpired(p, h) })
		})
		p.forfeit = h

		r.refreshResponseTimer()
		return nil
	})
}

// Reconnect restores a disconnected player and resumes any paused window.
func (r *Room) Reconnect(id string) error {
	return r.do(func() error {
		p := r.player(id)
		if p == nil {
			if r.spectatorIndex(id) >= 0 {
				return nil
			}
			return ErrNotInRoom
		}
		r.reconnect(p)
		return nil
	})
}

func (r *Room) reconnect(p *Player) {
	if p.Presence == PresenceForfeited && r.phase != PhasePlaying {
		p.Presence = PresenceActive
		r.record(Entry{Kind: EntryReconnected, Actor: p.ID})
		return
	}
	if p.Presence != PresenceDisconnected {
		return
	}
	p.stopForfeitTimer()
	p.Presence = PresenceActive
	r.record(Entry{Kind: EntryReconnected, Actor: p.ID})
	r.refreshResponseTimer()
}

func (r *Room) graceExpired(p *Player, h timer.Handle) bool {
	if p.forfeit != h || r.player(p.ID) != p {
		return false
	}
	p.forfeit = nil
	if r.phase == PhasePlaying {
		r.forfeit(p)
	} else {
		r.removePlayer(p)
	}
	return true
}

// forfeit takes p out of the running game for good: every card is turned
// face up and whatever p was part of is settled without them.
func (r *Room) forfeit(p *Player) {
	wasAlive := p.Alive()
	p.Presence = PresenceForfeited
	p.stopForfeitTimer()
	r.abandonExchange(p)
	for i := range p.Influences {
		p.Influences[i].Revealed = true
	}
	p.Obligations = Obligations{}
	r.clearLinks(p)
	r.record(Entry{Kind: EntryForfeited, Actor: p.ID})

	if wasAlive {
		r.eliminate(p, "")
		if r.phase != PhasePlaying {
			return
		}
	}

	if pa := r.pending; pa != nil {
		switch {
		case pa.Actor == p.ID:
			r.fail("forfeited")
			return
		case pa.Phase == AwaitingBlockChallenge && pa.Blocker == p.ID:
			r.record(Entry{Kind: EntryBlockOverturned, Actor: p.ID, Action: pa.Spec.Kind, Role: pa.BlockRole, Outcome: "forfeited"})
			r.succeed()
			return
		case pa.eligible(p.ID):
			pa.Eligible = slices.DeleteFunc(pa.Eligible, func(id string) bool { return id == p.ID })
			delete(pa.Responded, p.ID)
			if len(pa.awaiting()) > 0 {
				r.refreshResponseTimer()
				return
			}
			if pa.Phase == AwaitingBlockChallenge {
				r.blockStands()
			} else {
				r.succeed()
			}
			return
		}
	}

	if r.pending == nil && r.players[r.turn] == p {
		r.turnDone = true
	}
	r.tryAdvance()
}
