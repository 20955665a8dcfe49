package game

import "time"

// View is what one observer is allowed to see of a room.
type View struct {
	RoomID     string          `json:"roomId"`
	Version    uint64          `json:"version"`
	Phase      Phase           `json:"phase"`
	Settings   Settings        `json:"settings"`
	Host       string          `json:"host"`
	You        string          `json:"you"`
	Spectating bool            `json:"spectating"`
	Players    []PlayerView    `json:"players"`
	Spectators []SpectatorView `json:"spectators"`
	Turn       string          `json:"turn,omitempty"`
	DeckSize   int             `json:"deckSize"`
	Pending    *PendingView    `json:"pending,omitempty"`
	Examine    *ExamineView    `json:"examine,omitempty"`
	Placements []Placement     `json:"placements,omitempty"`
	Winner     string          `json:"winner,omitempty"`
	Log        []Entry         `json:"log"`
}

// CardView is a card as the observer sees it. Role is empty when hidden.
type CardView struct {
	Role     Role `json:"role,omitempty"`
	Revealed bool `json:"revealed"`
	Hidden   bool `json:"hidden,omitempty"`
}

type ObligationView struct {
	Reveal       int    `json:"reveal,omitempty"`
	ExchangeKeep int    `json:"exchangeKeep,omitempty"`
	ShowTo       string `json:"showTo,omitempty"`
	Examining    string `json:"examining,omitempty"`
}

type PlayerView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Guest       bool           `json:"guest"`
	Coins       int            `json:"coins"`
	Cards       []CardView     `json:"cards"`
	Alive       bool           `json:"alive"`
	Presence    Presence       `json:"presence"`
	Obligations ObligationView `json:"obligations"`
	Stats       PlayerStats    `json:"stats"`
}

type SpectatorView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PendingView is the in-flight action without its timer.
type PendingView struct {
	ID        int          `json:"id"`
	Action    ActionKind   `json:"action"`
	Claim     Role         `json:"claim,omitempty"`
	Actor     string       `json:"actor"`
	Target    string       `json:"target,omitempty"`
	Phase     PendingPhase `json:"phase"`
	Blocker   string       `json:"blocker,omitempty"`
	BlockRole Role         `json:"blockRole,omitempty"`
	Eligible  []string     `json:"eligible"`
	Responded []string     `json:"responded"`
	Paused    bool         `json:"paused"`
	Deadline  *time.Time   `json:"deadline,omitempty"`
}

// ExamineView shows the examiner the card the target picked.
type ExamineView struct {
	Target    string `json:"target"`
	CardIndex int    `json:"cardIndex"`
	Role      Role   `json:"role"`
}

// View projects the room for observerID. Non-members see every unrevealed
// card hidden.
func (r *Room) View(observerID string) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return project(r, observerID, r.spectatorIndex(observerID) >= 0)
}

func project(r *Room, observerID string, spectator bool) View {
	v := View{
		RoomID:     r.id,
		Version:    r.version,
		Phase:      r.phase,
		Settings:   r.settings,
		Host:       r.host,
		You:        observerID,
		Spectating: spectator,
		Players:    make([]PlayerView, 0, len(r.players)),
		Spectators: make([]SpectatorView, 0, len(r.spectators)),
		Placements: append([]Placement(nil), r.placements...),
		Winner:     r.winner,
		Log:        tail(r.log, r.settings.LogWindow),
	}
	if r.deck != nil {
		v.DeckSize = r.deck.Len()
	}
	if r.phase == PhasePlaying && r.turn < len(r.players) {
		v.Turn = r.players[r.turn].ID
	}

	for _, p := range r.players {
		pv := PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			Guest:    p.Guest,
			Coins:    p.Coins,
			Cards:    make([]CardView, 0, len(p.Influences)),
			Alive:    p.Alive(),
			Presence: p.Presence,
			Obligations: ObligationView{
				Reveal:       p.Obligations.Reveal,
				ExchangeKeep: p.Obligations.ExchangeKeep,
				ShowTo:       p.Obligations.ShowTo,
			},
			Stats: p.Stats,
		}
		if ex := p.Obligations.Examine; ex != nil {
			pv.Obligations.Examining = ex.Target
		}
		visible := spectator || p.ID == observerID
		for _, c := range p.Influences {
			if c.Revealed || visible {
				pv.Cards = append(pv.Cards, CardView{Role: c.Role, Revealed: c.Revealed})
			} else {
				pv.Cards = append(pv.Cards, CardView{Hidden: true})
			}
		}
		v.Players = append(v.Players, pv)

		if ex := p.Obligations.Examine; ex != nil && (spectator || p.ID == observerID) {
			if t := r.player(ex.Target); t != nil && t.hiddenAt(ex.CardIndex) {
				v.Examine = &ExamineView{Target: t.ID, CardIndex: ex.CardIndex, Role: t.Influences[ex.CardIndex].Role}
			}
		}
	}
	for _, s := range r.spectators {
		v.Spectators = append(v.Spectators, SpectatorView{ID: s.ID, Name: s.Name})
	}

	if pa := r.pending; pa != nil {
		pv := &PendingView{
			ID:        pa.ID,
			Action:    pa.Spec.Kind,
			Claim:     pa.Spec.Claim,
			Actor:     pa.Actor,
			Target:    pa.Target,
			Phase:     pa.Phase,
			Blocker:   pa.Blocker,
			BlockRole: pa.BlockRole,
			Eligible:  append([]string{}, pa.Eligible...),
			Responded: []string{},
			Paused:    pa.Paused,
		}
		for _, id := range pa.Eligible {
			if pa.Responded[id] {
				pv.Responded = append(pv.Responded, id)
			}
		}
		if !pa.Paused && !pa.Deadline.IsZero() {
			d := pa.Deadline
			pv.Deadline = &d
		}
		v.Pending = pv
	}
	return v
}
