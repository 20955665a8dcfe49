package game

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/coup/internal/timer"
)

type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

// Settings are fixed per room and snapshotted into the match record.
type Settings struct {
	Variant         Variant       `json:"variant"`
	MaxPlayers      int           `json:"maxPlayers"`
	ResponseTimeout time.Duration `json:"responseTimeout"`
	ReconnectGrace  time.Duration `json:"reconnectGrace"`
	LogWindow       int           `json:"logWindow"`
}

func DefaultSettings() Settings {
	return Settings{
		Variant:         VariantBase,
		MaxPlayers:      MaxPlayers,
		ResponseTimeout: 12 * time.Second,
		ReconnectGrace:  30 * time.Second,
		LogWindow:       50,
	}
}

// Normalize fills zero fields from the defaults and clamps MaxPlayers.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if !s.Variant.Valid() {
		s.Variant = d.Variant
	}
	if s.MaxPlayers < MinPlayers || s.MaxPlayers > MaxPlayers {
		s.MaxPlayers = d.MaxPlayers
	}
	if s.ResponseTimeout <= 0 {
		s.ResponseTimeout = d.ResponseTimeout
	}
	if s.ReconnectGrace <= 0 {
		s.ReconnectGrace = d.ReconnectGrace
	}
	if s.LogWindow <= 0 {
		s.LogWindow = d.LogWindow
	}
	return s
}

// Publisher fans a room's state out to its observers. Calls are
// fire-and-forget and always made without the room lock held.
type Publisher interface {
	Publish(r *Room)
}

// Sink receives the record of every finished game.
type Sink interface {
	RecordMatch(ctx context.Context, m MatchRecord) error
}

// Placement is one line of the final standings. Place 1 is the winner.
type Placement struct {
	PlayerID     string `json:"playerId"`
	Place        int    `json:"place"`
	EliminatedBy string `json:"eliminatedBy,omitempty"`
}

type PlayerResult struct {
	PlayerID     string      `json:"playerId"`
	Name         string      `json:"name"`
	Guest        bool        `json:"guest"`
	Place        int         `json:"place"`
	EliminatedBy string      `json:"eliminatedBy,omitempty"`
	Stats        PlayerStats `json:"stats"`
}

// MatchRecord is everything the engine hands to persistence at game end.
type MatchRecord struct {
	ID         string         `json:"id"`
	RoomID     string         `json:"roomId"`
	Settings   Settings       `json:"settings"`
	Players    []PlayerResult `json:"players"`
	Placements []Placement    `json:"placements"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
}

type Options struct {
	Settings  Settings
	Scheduler timer.Scheduler
	Publisher Publisher
	Sink      Sink
	Logger    *slog.Logger
	Rand      *rand.Rand
	Now       func() time.Time
}

// Room is one independent game instance. Every exported method is
// serialized by the room mutex.
type Room struct {
	mu sync.Mutex

	id       string
	settings Settings
	phase    Phase
	host     string

	players    []*Player
	spectators []*Spectator

	turn     int
	turnDone bool
	pending  *PendingAction

	deck       *Deck
	log        []Entry
	seq        int
	version    uint64
	placements []Placement
	matchID    string
	startedAt  time.Time
	endedAt    time.Time
	winner     string
	closed     bool

	sched  timer.Scheduler
	pub    Publisher
	sink   Sink
	logger *slog.Logger
	rng    *rand.Rand
	now    func() time.Time

	// after holds work queued under the lock to run once it is released.
	after []func()
}

func NewRoom(id string, opts Options) *Room {
	r := &Room{
		id:       id,
		settings: opts.Settings.Normalize(),
		phase:    PhaseLobby,
		sched:    opts.Scheduler,
		pub:      opts.Publisher,
		sink:     opts.Sink,
		logger:   opts.Logger,
		rng:      opts.Rand,
		now:      opts.Now,
	}
	if r.sched == nil {
		r.sched = timer.Real{}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("room", id)
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Room) ID() string { return r.id }

func (r *Room) Settings() Settings { return r.settings }

// do runs fn under the lock. On success it drains queued work and publishes.
func (r *Room) do(fn func() error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	err := fn()
	if err == nil {
		r.version++
	}
	after := r.after
	r.after = nil
	r.mu.Unlock()

	for _, f := range after {
		f()
	}
	if err != nil {
		return err
	}
	r.publish()
	return nil
}

// fire is do for scheduler callbacks: fn reports whether anything changed.
func (r *Room) fire(fn func() bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	changed := fn()
	if changed {
		r.version++
	}
	after := r.after
	r.after = nil
	r.mu.Unlock()

	for _, f := range after {
		f()
	}
	if changed {
		r.publish()
	}
}

func (r *Room) publish() {
	if r.pub != nil {
		r.pub.Publish(r)
	}
}

// fault logs an invariant violation. It never panics.
func (r *Room) fault(msg string, args ...any) error {
	r.logger.Error("logic fault: "+msg, append(args, "phase", r.phase, "turn", r.turn)...)
	return ErrInternal
}

func (r *Room) player(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) spectatorIndex(id string) int {
	return slices.IndexFunc(r.spectators, func(s *Spectator) bool { return s.ID == id })
}

func (r *Room) alivePlayers() []*Player {
	var out []*Player
	for _, p := range r.players {
		if p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) anyObligation() bool {
	for _, p := range r.players {
		if p.Obligations.Any() {
			return true
		}
	}
	return false
}

// Join seats id in the lobby, or adds them as a spectator. Joining a room
// you already belong to is a reconnect.
func (r *Room) Join(id Identity, spectate bool) error {
	return r.do(func() error {
		if p := r.player(id.ID); p != nil {
			r.reconnect(p)
			return nil
		}
		if r.spectatorIndex(id.ID) >= 0 {
			return nil
		}
		if spectate || r.phase == PhasePlaying {
			r.spectators = append(r.spectators, &Spectator{ID: id.ID, Name: id.Name, Guest: id.Guest})
			r.record(Entry{Kind: EntryJoined, Actor: id.ID, Outcome: "spectator"})
			return nil
		}
		if len(r.players) >= r.settings.MaxPlayers {
			return ErrRoomFull
		}
		r.players = append(r.players, newPlayer(id))
		if r.host == "" {
			r.host = id.ID
		}
		r.record(Entry{Kind: EntryJoined, Actor: id.ID, Outcome: "player"})
		return nil
	})
}

// Leave removes id outside of a game, or forfeits them during one.
func (r *Room) Leave(id string) error {
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
		if r.phase == PhasePlaying {
			if p.Presence != PresenceForfeited {
				r.forfeit(p)
			}
			return nil
		}
		r.removePlayer(p)
		return nil
	})
}

func (r *Room) removePlayer(p *Player) {
	p.stopForfeitTimer()
	r.players = slices.DeleteFunc(r.players, func(q *Player) bool { return q == p })
	r.record(Entry{Kind: EntryLeft, Actor: p.ID})
	if r.host == p.ID {
		r.host = ""
		if len(r.players) > 0 {
			r.host = r.players[0].ID
		}
	}
}

// SwitchSeat moves id between the seated players and the spectators.
// Only allowed between games.
func (r *Room) SwitchSeat(id string, toSpectator bool) error {
	return r.do(func() error {
		if r.phase == PhasePlaying {
			return ErrWrongPhase
		}
		if toSpectator {
			p := r.player(id)
			if p == nil {
				if r.spectatorIndex(id) >= 0 {
					return nil
				}
				return ErrNotInRoom
			}
			r.removePlayer(p)
			r.spectators = append(r.spectators, &Spectator{ID: p.ID, Name: p.Name, Guest: p.Guest})
			r.record(Entry{Kind: EntrySeatChanged, Actor: id, Outcome: "spectator"})
			return nil
		}

		i := r.spectatorIndex(id)
		if i < 0 {
			if r.player(id) != nil {
				return nil
			}
			return ErrNotInRoom
		}
		if len(r.players) >= r.settings.MaxPlayers {
			return ErrRoomFull
		}
		s := r.spectators[i]
		r.spectators = slices.Delete(r.spectators, i, i+1)
		r.players = append(r.players, newPlayer(Identity{ID: s.ID, Name: s.Name, Guest: s.Guest}))
		if r.host == "" {
			r.host = s.ID
		}
		r.record(Entry{Kind: EntrySeatChanged, Actor: id, Outcome: "player"})
		return nil
	})
}

// Start deals a new game. Players who forfeited the previous game lose
// their seat.
func (r *Room) Start(id string) error {
	return r.do(func() error {
		if r.phase == PhasePlaying {
			return ErrWrongPhase
		}
		if r.player(id) == nil {
			return ErrNotInRoom
		}
		if id != r.host {
			return ErrNotHost
		}
		seated := 0
		for _, p := range r.players {
			if p.Presence != PresenceForfeited {
				seated++
			}
		}
		if seated < MinPlayers {
			return ErrNotEnoughPlayers
		}
		for _, p := range slices.Clone(r.players) {
			if p.Presence == PresenceForfeited {
				r.removePlayer(p)
			}
		}
		r.deal()
		return nil
	})
}

func (r *Room) deal() {
	r.deck = NewDeck(r.settings.Variant.Roles(), r.rng)
	for _, p := range r.players {
		p.Coins = StartingCoins
		p.Influences = p.Influences[:0]
		for range InfluencesPerPlayer {
			role, _ := r.deck.Draw()
			p.Influences = append(p.Influences, Card{Role: role})
		}
		p.Obligations = Obligations{}
		p.DamagedBy = ""
		p.Stats = PlayerStats{}
	}
	r.phase = PhasePlaying
	r.pending = nil
	r.placements = nil
	r.winner = ""
	r.matchID = uuid.NewString()
	r.startedAt = r.now()
	r.endedAt = time.Time{}
	r.turn = r.rng.IntN(len(r.players))
	r.turnDone = false
	r.record(Entry{Kind: EntryGameStarted, Amount: len(r.players)})
	r.record(Entry{Kind: EntryTurnStarted, Actor: r.players[r.turn].ID})
}

// Summary is the lobby listing line for a room.
type Summary struct {
	ID         string  `json:"id"`
	Phase      Phase   `json:"phase"`
	Variant    Variant `json:"variant"`
	Players    int     `json:"players"`
	MaxPlayers int     `json:"maxPlayers"`
	Spectators int     `json:"spectators"`
}

func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summary{
		ID:         r.id,
		Phase:      r.phase,
		Variant:    r.settings.Variant,
		Players:    len(r.players),
		MaxPlayers: r.settings.MaxPlayers,
		Spectators: len(r.spectators),
	}
}

// Phase reports the lifecycle phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Member reports whether id is seated or spectating.
func (r *Room) Member(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player(id) != nil || r.spectatorIndex(id) >= 0
}

// Occupied reports whether any connected participant remains.
func (r *Room) Occupied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.spectators) > 0 {
		return true
	}
	for _, p := range r.players {
		if p.Connected() {
			return true
		}
	}
	return false
}

// Close stops every timer. Later intents fail with ErrRoomClosed.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.pending != nil {
		r.pending.stopTimer()
	}
	for _, p := range r.players {
		p.stopForfeitTimer()
	}
}
