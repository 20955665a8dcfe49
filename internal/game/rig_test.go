package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/playperu/coup/internal/timer"
)

type recordingSink struct {
	mu      sync.Mutex
	matches []MatchRecord
}

func (s *recordingSink) RecordMatch(_ context.Context, m MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, m)
	return nil
}

func (s *recordingSink) all() []MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.matches)
}

type countingPublisher struct{ n atomic.Int64 }

func (p *countingPublisher) Publish(*Room) { p.n.Add(1) }

// rig is a started room with a manual clock and hands set by the test.
type rig struct {
	t     *testing.T
	room  *Room
	clock *timer.Manual
	sink  *recordingSink
	pub   *countingPublisher

	pinned map[string]bool
}

func newLobby(t *testing.T, variant Variant, ids ...string) *rig {
	t.Helper()
	g := &rig{
		t:     t,
		clock: timer.NewManual(),
		sink:  &recordingSink{},
		pub:   &countingPublisher{},

		pinned: map[string]bool{},
	}
	g.room = NewRoom("ROOM", Options{
		Settings:  Settings{Variant: variant},
		Scheduler: g.clock,
		Publisher: g.pub,
		Sink:      g.sink,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
	for _, id := range ids {
		mustOK(t, g.room.Join(Identity{ID: id, Name: "name-" + id}, false))
	}
	return g
}

func newRig(t *testing.T, variant Variant, ids ...string) *rig {
	t.Helper()
	g := newLobby(t, variant, ids...)
	mustOK(t, g.room.Start(ids[0]))
	g.turnTo(ids[0])
	return g
}

func (g *rig) p(id string) *Player {
	g.t.Helper()
	p := g.room.player(id)
	if p == nil {
		g.t.Fatalf("no player %q", id)
	}
	return p
}

// hand swaps id's cards for the given roles, taking them from the deck so
// the card count stays intact. Roles missing from the deck are pulled from
// hands the test has not set.
func (g *rig) hand(id string, roles ...Role) {
	g.t.Helper()
	p := g.p(id)
	d := g.room.deck
	for _, c := range p.Influences {
		d.cards = append(d.cards, c.Role)
	}
	p.Influences = nil
	g.pinned[id] = true
	for _, role := range roles {
		i := slices.Index(d.cards, role)
		if i < 0 {
			g.reclaim(role)
			i = slices.Index(d.cards, role)
		}
		d.cards = slices.Delete(d.cards, i, i+1)
		p.Influences = append(p.Influences, Card{Role: role})
	}
}

// reclaim trades a copy of role out of an unpinned hand for a deck card.
func (g *rig) reclaim(role Role) {
	g.t.Helper()
	d := g.room.deck
	k := slices.IndexFunc(d.cards, func(r Role) bool { return r != role })
	for _, q := range g.room.players {
		if g.pinned[q.ID] || k < 0 {
			continue
		}
		if j := q.holding(role); j >= 0 {
			q.Influences[j].Role, d.cards[k] = d.cards[k], role
			return
		}
	}
	g.t.Fatalf("no %s available to deal", role)
}

func (g *rig) coins(id string, n int) { g.p(id).Coins = n }

func (g *rig) turnTo(id string) {
	g.t.Helper()
	i := slices.IndexFunc(g.room.players, func(p *Player) bool { return p.ID == id })
	if i < 0 {
		g.t.Fatalf("no player %q", id)
	}
	g.room.turn = i
	g.room.turnDone = false
}

func (g *rig) turn() string {
	return g.room.players[g.room.turn].ID
}

// check asserts the card-count and elimination invariants.
func (g *rig) check() {
	g.t.Helper()
	r := g.room
	counts := map[Role]int{}
	total := r.deck.Len()
	for _, c := range r.deck.cards {
		counts[c]++
	}
	for _, p := range r.players {
		total += len(p.Influences)
		for _, c := range p.Influences {
			counts[c.Role]++
		}
	}
	if want := r.settings.Variant.DeckSize(); total != want {
		g.t.Errorf("expected %d cards in play, got %d", want, total)
	}
	for _, role := range r.settings.Variant.Roles() {
		if counts[role] != CopiesPerRole {
			g.t.Errorf("expected %d copies of %s, got %d", CopiesPerRole, role, counts[role])
		}
	}

	placed := map[string]int{}
	for _, pl := range r.placements {
		placed[pl.PlayerID] = pl.Place
	}
	for _, p := range r.players {
		if p.Presence == PresenceForfeited && p.Unrevealed() != 0 {
			g.t.Errorf("forfeited player %s still has hidden cards", p.ID)
		}
		out := placed[p.ID] > 1
		if out == p.Alive() {
			g.t.Errorf("player %s alive=%v but placement %d", p.ID, p.Alive(), placed[p.ID])
		}
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func wantCode(t *testing.T, err error, code Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !errors.Is(err, &Error{Code: code}) {
		t.Fatalf("expected %s, got %v (%s)", code, err, CodeOf(err))
	}
}
