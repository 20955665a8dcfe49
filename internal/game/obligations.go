package game

// Reveal flips one of the caller's unrevealed cards to pay an owed
// influence loss.
func (r *Room) Reveal(playerID string, cardIndex int) error {
	return r.do(func() error {
		p, err := r.obligated(playerID)
		if err != nil {
			return err
		}
		if p.Obligations.Reveal == 0 {
			return ErrNoObligation
		}
		if !p.hiddenAt(cardIndex) {
			return ErrInvalidCard
		}

		p.Influences[cardIndex].Revealed = true
		p.Obligations.Reveal--
		r.record(Entry{Kind: EntryInfluenceLost, Actor: p.ID, Target: p.DamagedBy, Role: p.Influences[cardIndex].Role})
		if !p.Alive() {
			r.eliminate(p, p.DamagedBy)
			if r.phase != PhasePlaying {
				return nil
			}
		}
		r.tryAdvance()
		return nil
	})
}

// ChooseExchange keeps the cards at the given indices and returns every
// other unrevealed card to the deck.
func (r *Room) ChooseExchange(playerID string, keep []int) error {
	return r.do(func() error {
		p, err := r.obligated(playerID)
		if err != nil {
			return err
		}
		if p.Obligations.ExchangeKeep == 0 {
			return ErrNoObligation
		}
		if len(keep) != p.Obligations.ExchangeKeep {
			return ErrInvalidKeepCount
		}
		kept := make(map[int]bool, len(keep))
		for _, i := range keep {
			if !p.hiddenAt(i) || kept[i] {
				return ErrInvalidCard
			}
			kept[i] = true
		}

		var hand []Card
		var back []Role
		for i, c := range p.Influences {
			if c.Revealed || kept[i] {
				hand = append(hand, c)
				continue
			}
			back = append(back, c.Role)
		}
		p.Influences = hand
		r.deck.ReturnMany(back)
		p.Obligations.ExchangeKeep = 0
		r.record(Entry{Kind: EntryExchanged, Actor: p.ID, Amount: len(back)})
		r.tryAdvance()
		return nil
	})
}

// ShowCard is the examine target privately showing one card to the examiner.
func (r *Room) ShowCard(playerID string, cardIndex int) error {
	return r.do(func() error {
		p, err := r.obligated(playerID)
		if err != nil {
			return err
		}
		if p.Obligations.ShowTo == "" {
			return ErrNoObligation
		}
		if !p.hiddenAt(cardIndex) {
			return ErrInvalidCard
		}

		examiner := r.player(p.Obligations.ShowTo)
		p.Obligations.ShowTo = ""
		if examiner == nil || !examiner.Alive() {
			r.tryAdvance()
			return nil
		}
		examiner.Obligations.Examine = &Examination{Target: p.ID, CardIndex: cardIndex}
		r.record(Entry{Kind: EntryCardShown, Actor: p.ID, Target: examiner.ID, Amount: cardIndex})
		return nil
	})
}

// ResolveExamine ends an examine: keep leaves the target's card alone, swap
// sends it back to the deck and deals a replacement.
func (r *Room) ResolveExamine(playerID string, swap bool) error {
	return r.do(func() error {
		p, err := r.obligated(playerID)
		if err != nil {
			return err
		}
		ex := p.Obligations.Examine
		if ex == nil {
			return ErrNoObligation
		}

		p.Obligations.Examine = nil
		outcome := "kept"
		if target := r.player(ex.Target); swap && target != nil && target.hiddenAt(ex.CardIndex) {
			r.replaceCard(target, ex.CardIndex)
			outcome = "swapped"
		}
		r.record(Entry{Kind: EntryExamined, Actor: p.ID, Target: ex.Target, Outcome: outcome})
		r.tryAdvance()
		return nil
	})
}

// obligated returns the caller if the game is running and they are seated.
func (r *Room) obligated(playerID string) (*Player, error) {
	if r.phase != PhasePlaying {
		return nil, ErrNotPlaying
	}
	p := r.player(playerID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	return p, nil
}

// abandonExchange settles an exchange the actor never finished by keeping
// the first cards up to the keep count.
func (r *Room) abandonExchange(p *Player) {
	n := p.Obligations.ExchangeKeep
	if n == 0 {
		return
	}
	var hand []Card
	var back []Role
	for _, c := range p.Influences {
		if c.Revealed || n > 0 {
			if !c.Revealed {
				n--
			}
			hand = append(hand, c)
			continue
		}
		back = append(back, c.Role)
	}
	p.Influences = hand
	r.deck.ReturnMany(back)
	p.Obligations.ExchangeKeep = 0
}

// clearLinks drops obligations other players hold that point at p.
func (r *Room) clearLinks(p *Player) {
	for _, q := range r.players {
		if q.Obligations.ShowTo == p.ID {
			q.Obligations.ShowTo = ""
		}
		if ex := q.Obligations.Examine; ex != nil && ex.Target == p.ID {
			q.Obligations.Examine = nil
		}
	}
}

// settleObligations clears every open obligation at game end.
func (r *Room) settleObligations() {
	for _, p := range r.players {
		r.abandonExchange(p)
		p.Obligations = Obligations{}
	}
}
