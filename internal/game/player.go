package game

import "github.com/playperu/coup/internal/timer"

// Identity is the verified caller as seen by the engine.
type Identity struct {
	ID    string
	Name  string
	Guest bool
}

// Presence is a seat's lifecycle tag. Players are never removed from a
// game in progress; eligibility logic filters on this instead.
type Presence string

const (
	PresenceActive       Presence = "active"
	PresenceDisconnected Presence = "disconnected"
	PresenceForfeited    Presence = "forfeited"
)

type Card struct {
	Role     Role `json:"role"`
	Revealed bool `json:"revealed"`
}

// Examination is what an examining actor holds after the target showed a card.
type Examination struct {
	Target    string
	CardIndex int
}

// Obligations are the interactive steps a player still owes. Turn order
// cannot advance while any player has one.
type Obligations struct {
	Reveal       int          // influences still to be flipped
	ExchangeKeep int          // cards to keep from an exchange offer, 0 when none
	ShowTo       string       // examiner waiting for this player to show a card
	Examine      *Examination // pending keep-or-swap decision for the examiner
}

func (o Obligations) Any() bool {
	return o.Reveal > 0 || o.ExchangeKeep > 0 || o.ShowTo != "" || o.Examine != nil
}

// PlayerStats are per-game counters handed to the persistence sink.
type PlayerStats struct {
	Actions          int `json:"actions"`
	CoinsGained      int `json:"coinsGained"`
	Challenges       int `json:"challenges"`
	ChallengesWon    int `json:"challengesWon"`
	BluffsCaught     int `json:"bluffsCaught"`
	SuccessfulBlocks int `json:"successfulBlocks"`
	Eliminations     int `json:"eliminations"`
}

type Player struct {
	ID          string
	Name        string
	Guest       bool
	Coins       int
	Influences  []Card
	Presence    Presence
	Obligations Obligations
	// DamagedBy is the player whose action or challenge caused the most
	// recent owed influence loss.
	DamagedBy string
	Stats     PlayerStats

	forfeit timer.Handle
}

func newPlayer(id Identity) *Player {
	return &Player{ID: id.ID, Name: id.Name, Guest: id.Guest, Presence: PresenceActive}
}

// Unrevealed counts face-down influences.
func (p *Player) Unrevealed() int {
	n := 0
	for _, c := range p.Influences {
		if !c.Revealed {
			n++
		}
	}
	return n
}

func (p *Player) Alive() bool { return p.Unrevealed() > 0 }

func (p *Player) Connected() bool { return p.Presence == PresenceActive }

// holding returns the index of an unrevealed card with role r, or -1.
func (p *Player) holding(r Role) int {
	for i, c := range p.Influences {
		if !c.Revealed && c.Role == r {
			return i
		}
	}
	return -1
}

func (p *Player) hiddenAt(i int) bool {
	return i >= 0 && i < len(p.Influences) && !p.Influences[i].Revealed
}

func (p *Player) stopForfeitTimer() {
	if p.forfeit != nil {
		p.forfeit.Stop()
		p.forfeit = nil
	}
}

// Spectator watches a room and sees every hand.
type Spectator struct {
	ID    string
	Name  string
	Guest bool
}
