package game

import "time"

// EntryKind tags a log entry. Resolution logic never reads the log back.
type EntryKind string

const (
	EntryJoined           EntryKind = "joined"
	EntryLeft             EntryKind = "left"
	EntrySeatChanged      EntryKind = "seat_changed"
	EntryGameStarted      EntryKind = "game_started"
	EntryTurnStarted      EntryKind = "turn_started"
	EntryActionDeclared   EntryKind = "action_declared"
	EntryActionResolved   EntryKind = "action_resolved"
	EntryActionFailed     EntryKind = "action_failed"
	EntryPassed           EntryKind = "passed"
	EntryTimedOut         EntryKind = "timed_out"
	EntryChallenged       EntryKind = "challenged"
	EntryChallengeWon     EntryKind = "challenge_won"
	EntryChallengeLost    EntryKind = "challenge_lost"
	EntryBlocked          EntryKind = "blocked"
	EntryBlockStands      EntryKind = "block_stands"
	EntryBlockOverturned  EntryKind = "block_overturned"
	EntryInfluenceLost    EntryKind = "influence_lost"
	EntryExchanged        EntryKind = "exchanged"
	EntryCardShown        EntryKind = "card_shown"
	EntryExamined         EntryKind = "examined"
	EntryCoinsMoved       EntryKind = "coins_moved"
	EntryEliminated       EntryKind = "eliminated"
	EntryDisconnected     EntryKind = "disconnected"
	EntryReconnected      EntryKind = "reconnected"
	EntryForfeited        EntryKind = "forfeited"
	EntryGameEnded        EntryKind = "game_ended"
	EntryResponsesPaused  EntryKind = "responses_paused"
	EntryResponsesResumed EntryKind = "responses_resumed"
)

// Entry is one public event. Role is only ever a claimed or revealed role.
type Entry struct {
	Seq     int        `json:"seq"`
	Kind    EntryKind  `json:"kind"`
	At      time.Time  `json:"at"`
	Actor   string     `json:"actor,omitempty"`
	Target  string     `json:"target,omitempty"`
	Action  ActionKind `json:"action,omitempty"`
	Role    Role       `json:"role,omitempty"`
	Amount  int        `json:"amount,omitempty"`
	Outcome string     `json:"outcome,omitempty"`
}

func (r *Room) record(e Entry) {
	r.seq++
	e.Seq = r.seq
	e.At = r.now()
	r.log = append(r.log, e)
}

// tail returns the last n entries.
func tail(log []Entry, n int) []Entry {
	if n <= 0 || len(log) <= n {
		return append([]Entry(nil), log...)
	}
	return append([]Entry(nil), log[len(log)-n:]...)
}
