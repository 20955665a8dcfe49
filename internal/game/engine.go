package game

import (
	"time"

	"github.com/playperu/coup/internal/timer"
)

// PendingPhase is where an in-flight action sits in the response state
// machine. Declared actions that need no response never get a record.
type PendingPhase string

const (
	AwaitingResponse       PendingPhase = "awaiting_response"
	AwaitingBlockChallenge PendingPhase = "awaiting_block_challenge"
)

// PendingAction is the single action in flight in a room.
type PendingAction struct {
	ID     int
	Spec   ActionSpec
	Actor  string
	Target string
	Phase  PendingPhase

	Blocker   string
	BlockRole Role

	// Eligible is fixed when a response window opens; players leave it only
	// by forfeiting. Responded records explicit passes.
	Eligible  []string
	Responded map[string]bool

	Paused   bool
	Deadline time.Time

	timer timer.Handle
}

func (pa *PendingAction) eligible(id string) bool {
	for _, e := range pa.Eligible {
		if e == id {
			return true
		}
	}
	return false
}

// awaiting lists eligible players who have not responded yet.
func (pa *PendingAction) awaiting() []string {
	var out []string
	for _, id := range pa.Eligible {
		if !pa.Responded[id] {
			out = append(out, id)
		}
	}
	return out
}

func (pa *PendingAction) stopTimer() {
	if pa.timer != nil {
		pa.timer.Stop()
		pa.timer = nil
	}
}

// ResponseKind is what a player may answer to a pending action.
type ResponseKind string

const (
	Pass      ResponseKind = "pass"
	Challenge ResponseKind = "challenge"
	Block     ResponseKind = "block"
)

type Response struct {
	Kind ResponseKind
	Role Role // claimed blocking role
}

// Declare starts playerID's action for this turn.
func (r *Room) Declare(playerID string, kind ActionKind, targetID string) error {
	return r.do(func() error { return r.declare(playerID, kind, targetID) })
}

func (r *Room) declare(playerID string, kind ActionKind, targetID string) error {
	if r.phase != PhasePlaying {
		return ErrNotPlaying
	}
	actor := r.player(playerID)
	if actor == nil {
		return ErrNotInRoom
	}
	if !actor.Alive() {
		return ErrEliminated
	}
	if r.players[r.turn] != actor {
		return ErrNotYourTurn
	}
	if r.pending != nil {
		return ErrActionPending
	}
	if r.anyObligation() {
		return ErrObligationOutstanding
	}
	if r.turnDone {
		return ErrNotYourTurn
	}
	spec, ok := Lookup(r.settings.Variant, kind)
	if !ok {
		return ErrInvalidAction
	}
	if actor.Coins >= CoupThreshold && kind != Coup {
		return ErrMustCoup
	}
	if actor.Coins < spec.Cost {
		return ErrInsufficientCoins
	}
	var target *Player
	if spec.Targeted {
		target = r.player(targetID)
		if target == nil || target == actor || !target.Alive() {
			return ErrInvalidTarget
		}
	}

	actor.Stats.Actions++
	e := Entry{Kind: EntryActionDeclared, Actor: actor.ID, Action: kind, Role: spec.Claim}
	if target != nil {
		e.Target = target.ID
	}
	r.record(e)

	if spec.Immediate() {
		r.applyEffect(actor, spec, target)
		r.record(Entry{Kind: EntryActionResolved, Actor: actor.ID, Target: e.Target, Action: kind})
		r.endAction()
		return nil
	}

	r.pending = &PendingAction{
		ID:        r.seq,
		Spec:      spec,
		Actor:     actor.ID,
		Target:    e.Target,
		Phase:     AwaitingResponse,
		Eligible:  r.responders(actor.ID),
		Responded: make(map[string]bool),
	}
	if len(r.pending.Eligible) == 0 {
		r.succeed()
		return nil
	}
	r.armResponseTimer()
	return nil
}

// responders returns every other player still in the game, connected or not.
func (r *Room) responders(except string) []string {
	var out []string
	for _, p := range r.players {
		if p.ID != except && p.Alive() && p.Presence != PresenceForfeited {
			out = append(out, p.ID)
		}
	}
	return out
}

// Respond answers the pending action during its first response window.
func (r *Room) Respond(playerID string, resp Response) error {
	return r.do(func() error { return r.respond(playerID, resp) })
}

func (r *Room) respond(playerID string, resp Response) error {
	if r.phase != PhasePlaying {
		return ErrNotPlaying
	}
	pa := r.pending
	if pa == nil {
		return ErrNoPendingAction
	}
	if pa.Phase != AwaitingResponse {
		return ErrInvalidResponse
	}
	p := r.player(playerID)
	if p == nil {
		return ErrNotInRoom
	}
	if !pa.eligible(playerID) {
		return ErrNotEligible
	}
	if pa.Responded[playerID] {
		return ErrAlreadyResponded
	}

	switch resp.Kind {
	case Pass:
		pa.Responded[playerID] = true
		r.record(Entry{Kind: EntryPassed, Actor: playerID, Action: pa.Spec.Kind})
		if len(pa.awaiting()) == 0 {
			r.succeed()
		} else {
			r.refreshResponseTimer()
		}
		return nil

	case Challenge:
		if !pa.Spec.Challengeable() {
			return ErrInvalidResponse
		}
		r.challengeAction(p)
		return nil

	case Block:
		if !pa.Spec.Blockable() || !pa.Spec.CanBlockWith(resp.Role) {
			return ErrInvalidResponse
		}
		if pa.Spec.TargetBlocksOnly && playerID != pa.Target {
			return ErrNotEligible
		}
		r.block(p, resp.Role)
		return nil
	}
	return ErrInvalidResponse
}

// RespondToBlock challenges the standing block, or passes on it.
func (r *Room) RespondToBlock(playerID string, challenge bool) error {
	return r.do(func() error { return r.respondToBlock(playerID, challenge) })
}

func (r *Room) respondToBlock(playerID string, challenge bool) error {
	if r.phase != PhasePlaying {
		return ErrNotPlaying
	}
	pa := r.pending
	if pa == nil {
		return ErrNoPendingAction
	}
	if pa.Phase != AwaitingBlockChallenge {
		return ErrInvalidResponse
	}
	p := r.player(playerID)
	if p == nil {
		return ErrNotInRoom
	}
	if !pa.eligible(playerID) {
		return ErrNotEligible
	}
	if pa.Responded[playerID] {
		return ErrAlreadyResponded
	}

	if !challenge {
		pa.Responded[playerID] = true
		r.record(Entry{Kind: EntryPassed, Actor: playerID, Action: pa.Spec.Kind, Role: pa.BlockRole})
		if len(pa.awaiting()) == 0 {
			r.blockStands()
		} else {
			r.refreshResponseTimer()
		}
		return nil
	}
	r.challengeBlock(p)
	return nil
}

func (r *Room) block(blocker *Player, role Role) {
	pa := r.pending
	pa.stopTimer()
	pa.Phase = AwaitingBlockChallenge
	pa.Blocker = blocker.ID
	pa.BlockRole = role
	pa.Eligible = r.responders(blocker.ID)
	pa.Responded = make(map[string]bool)
	r.record(Entry{Kind: EntryBlocked, Actor: blocker.ID, Target: pa.Actor, Action: pa.Spec.Kind, Role: role})
	if len(pa.Eligible) == 0 {
		r.blockStands()
		return
	}
	r.armResponseTimer()
}

// armResponseTimer opens a fresh response window unless a responder we
// are waiting on is disconnected, in which case the window stays paused.
func (r *Room) armResponseTimer() {
	pa := r.pending
	pa.stopTimer()
	if r.waitingOnDisconnected(pa) {
		if !pa.Paused {
			r.record(Entry{Kind: EntryResponsesPaused, Actor: pa.Actor, Action: pa.Spec.Kind})
		}
		pa.Paused = true
		pa.Deadline = time.Time{}
		return
	}
	if pa.Paused {
		r.record(Entry{Kind: EntryResponsesResumed, Actor: pa.Actor, Action: pa.Spec.Kind})
	}
	pa.Paused = false
	pa.Deadline = r.now().Add(r.settings.ResponseTimeout)

	var h timer.Handle
	h = r.sched.AfterFunc(r.settings.ResponseTimeout, func() {
		r.fire(func() bool { return r.responseTimedOut(h) })
	})
	pa.timer = h
}

// refreshResponseTimer re-evaluates the pause condition after presence or
// eligibility changed. A running window is left alone.
func (r *Room) refreshResponseTimer() {
	pa := r.pending
	if pa == nil {
		return
	}
	waiting := r.waitingOnDisconnected(pa)
	switch {
	case waiting && !pa.Paused:
		r.armResponseTimer()
	case !waiting && pa.Paused:
		r.armResponseTimer()
	}
}

func (r *Room) waitingOnDisconnected(pa *PendingAction) bool {
	for _, id := range pa.awaiting() {
		if p := r.player(id); p != nil && p.Presence == PresenceDisconnected {
			return true
		}
	}
	return false
}

func (r *Room) responseTimedOut(h timer.Handle) bool {
	pa := r.pending
	if pa == nil || pa.timer != h {
		return false
	}
	pa.timer = nil
	r.record(Entry{Kind: EntryTimedOut, Actor: pa.Actor, Action: pa.Spec.Kind})
	if pa.Phase == AwaitingBlockChallenge {
		r.blockStands()
	} else {
		r.succeed()
	}
	return true
}
