package game

// clearPending drops the in-flight action and cancels its timer.
func (r *Room) clearPending() *PendingAction {
	pa := r.pending
	if pa != nil {
		pa.stopTimer()
	}
	r.pending = nil
	return pa
}

// succeed applies the pending action's effect and ends it.
func (r *Room) succeed() {
	pa := r.clearPending()
	actor := r.player(pa.Actor)
	if actor == nil {
		r.fault("pending actor missing", "actor", pa.Actor)
		r.endAction()
		return
	}
	target := r.player(pa.Target)
	r.applyEffect(actor, pa.Spec, target)
	r.record(Entry{Kind: EntryActionResolved, Actor: pa.Actor, Target: pa.Target, Action: pa.Spec.Kind})
	r.endAction()
}

// fail cancels the pending action with no effect.
func (r *Room) fail(outcome string) {
	pa := r.clearPending()
	r.record(Entry{Kind: EntryActionFailed, Actor: pa.Actor, Target: pa.Target, Action: pa.Spec.Kind, Outcome: outcome})
	r.endAction()
}

// endAction marks the turn's action as resolved and advances when nothing
// else is owed.
func (r *Room) endAction() {
	r.turnDone = true
	r.tryAdvance()
}

func (r *Room) challengeAction(challenger *Player) {
	pa := r.pending
	pa.stopTimer()
	actor := r.player(pa.Actor)
	if actor == nil {
		r.fault("pending actor missing", "actor", pa.Actor)
		r.clearPending()
		r.endAction()
		return
	}
	challenger.Stats.Challenges++
	r.record(Entry{Kind: EntryChallenged, Actor: challenger.ID, Target: actor.ID, Action: pa.Spec.Kind, Role: pa.Spec.Claim})

	if idx := actor.holding(pa.Spec.Claim); idx >= 0 {
		r.record(Entry{Kind: EntryChallengeLost, Actor: challenger.ID, Target: actor.ID, Role: pa.Spec.Claim})
		r.replaceCard(actor, idx)
		r.loseInfluence(challenger, actor.ID)
		r.succeed()
		return
	}

	challenger.Stats.ChallengesWon++
	actor.Stats.BluffsCaught++
	r.record(Entry{Kind: EntryChallengeWon, Actor: challenger.ID, Target: actor.ID, Role: pa.Spec.Claim})
	r.loseInfluence(actor, challenger.ID)
	r.fail("bluff_caught")
}

func (r *Room) challengeBlock(challenger *Player) {
	pa := r.pending
	pa.stopTimer()
	blocker := r.player(pa.Blocker)
	if blocker == nil {
		r.fault("pending blocker missing", "blocker", pa.Blocker)
		r.succeed()
		return
	}
	challenger.Stats.Challenges++
	r.record(Entry{Kind: EntryChallenged, Actor: challenger.ID, Target: blocker.ID, Action: pa.Spec.Kind, Role: pa.BlockRole})

	if idx := blocker.holding(pa.BlockRole); idx >= 0 {
		r.record(Entry{Kind: EntryChallengeLost, Actor: challenger.ID, Target: blocker.ID, Role: pa.BlockRole})
		r.replaceCard(blocker, idx)
		r.loseInfluence(challenger, blocker.ID)
		r.blockStands()
		return
	}

	challenger.Stats.ChallengesWon++
	blocker.Stats.BluffsCaught++
	r.record(Entry{Kind: EntryChallengeWon, Actor: challenger.ID, Target: blocker.ID, Role: pa.BlockRole})
	r.record(Entry{Kind: EntryBlockOverturned, Actor: blocker.ID, Action: pa.Spec.Kind, Role: pa.BlockRole})
	r.loseInfluence(blocker, challenger.ID)
	r.succeed()
}

func (r *Room) blockStands() {
	pa := r.pending
	if b := r.player(pa.Blocker); b != nil {
		b.Stats.SuccessfulBlocks++
	}
	r.record(Entry{Kind: EntryBlockStands, Actor: pa.Blocker, Target: pa.Actor, Action: pa.Spec.Kind, Role: pa.BlockRole})
	r.fail("blocked")
}

// applyEffect performs the action's final step. Costs are paid here and
// nowhere else.
func (r *Room) applyEffect(actor *Player, spec ActionSpec, target *Player) {
	actor.Coins -= spec.Cost

	switch spec.Kind {
	case Income, ForeignAid, Tax:
		actor.Coins += spec.Gain
		actor.Stats.CoinsGained += spec.Gain

	case Steal:
		if target == nil {
			return
		}
		n := min(StealLimit, target.Coins)
		target.Coins -= n
		actor.Coins += n
		actor.Stats.CoinsGained += n
		r.record(Entry{Kind: EntryCoinsMoved, Actor: actor.ID, Target: target.ID, Amount: n})

	case Coup, Assassinate:
		if target != nil {
			r.loseInfluence(target, actor.ID)
		}

	case Exchange, Inquire:
		keep := actor.Unrevealed()
		for range spec.Draw {
			role, ok := r.deck.Draw()
			if !ok {
				break
			}
			actor.Influences = append(actor.Influences, Card{Role: role})
		}
		actor.Obligations.ExchangeKeep = keep

	case Examine:
		if target != nil && target.Alive() {
			target.Obligations.ShowTo = actor.ID
		}
	}
}

// replaceCard shuffles p's card at idx back into the deck and deals a
// fresh one into the same slot.
func (r *Room) replaceCard(p *Player, idx int) {
	r.deck.Return(p.Influences[idx].Role)
	role, ok := r.deck.Draw()
	if !ok {
		r.fault("deck empty after return")
		return
	}
	p.Influences[idx] = Card{Role: role}
}

// loseInfluence adds one owed reveal to p, capped at what p can still lose.
func (r *Room) loseInfluence(p *Player, by string) {
	if !p.Alive() || p.Presence == PresenceForfeited {
		return
	}
	p.Obligations.Reveal = min(p.Obligations.Reveal+1, p.Unrevealed())
	p.DamagedBy = by
}
