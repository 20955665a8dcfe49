package game

import (
	"errors"
	"fmt"
)

// Code is the machine-readable reason an intent was rejected.
type Code string

const (
	CodeNotPlaying            Code = "not_playing"
	CodeWrongPhase            Code = "wrong_phase"
	CodeNotYourTurn           Code = "not_your_turn"
	CodeActionPending         Code = "action_pending"
	CodeNoPendingAction       Code = "no_pending_action"
	CodeObligationOutstanding Code = "obligation_outstanding"
	CodeInsufficientCoins     Code = "insufficient_coins"
	CodeMustCoup              Code = "must_coup"
	CodeInvalidTarget         Code = "invalid_target"
	CodeInvalidAction         Code = "invalid_action"
	CodeInvalidResponse       Code = "invalid_response"
	CodeNotEligible           Code = "not_eligible"
	CodeAlreadyResponded      Code = "already_responded"
	CodeInvalidCard           Code = "invalid_card"
	CodeNoObligation          Code = "no_obligation"
	CodeInvalidKeepCount      Code = "invalid_keep_count"
	CodeNotInRoom             Code = "not_in_room"
	CodeRoomFull              Code = "room_full"
	CodeNotHost               Code = "not_host"
	CodeNotEnoughPlayers      Code = "not_enough_players"
	CodeEliminated            Code = "eliminated"
	CodeRoomClosed            Code = "room_closed"
	CodeInternal              Code = "internal"
)

// Error is a rejected intent. Validation errors leave the room untouched.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrNotPlaying            = newError(CodeNotPlaying, "game is not in progress")
	ErrWrongPhase            = newError(CodeWrongPhase, "not allowed in the current room phase")
	ErrNotYourTurn           = newError(CodeNotYourTurn, "not your turn")
	ErrActionPending         = newError(CodeActionPending, "another action is still pending")
	ErrNoPendingAction       = newError(CodeNoPendingAction, "no action is pending")
	ErrObligationOutstanding = newError(CodeObligationOutstanding, "a player still owes a reveal, exchange or examine step")
	ErrInsufficientCoins     = newError(CodeInsufficientCoins, "not enough coins")
	ErrMustCoup              = newError(CodeMustCoup, "you must coup with 10 or more coins")
	ErrInvalidTarget         = newError(CodeInvalidTarget, "invalid target")
	ErrInvalidAction         = newError(CodeInvalidAction, "unknown action")
	ErrInvalidResponse       = newError(CodeInvalidResponse, "response not allowed for this action")
	ErrNotEligible           = newError(CodeNotEligible, "you cannot respond to this action")
	ErrAlreadyResponded      = newError(CodeAlreadyResponded, "already responded")
	ErrInvalidCard           = newError(CodeInvalidCard, "invalid card index")
	ErrNoObligation          = newError(CodeNoObligation, "nothing owed")
	ErrInvalidKeepCount      = newError(CodeInvalidKeepCount, "wrong number of cards kept")
	ErrNotInRoom             = newError(CodeNotInRoom, "not in this room")
	ErrRoomFull              = newError(CodeRoomFull, "room is full")
	ErrNotHost               = newError(CodeNotHost, "only the host can do that")
	ErrNotEnoughPlayers      = newError(CodeNotEnoughPlayers, "not enough players")
	ErrEliminated            = newError(CodeEliminated, "you have been eliminated")
	ErrRoomClosed            = newError(CodeRoomClosed, "room is closed")
	ErrInternal              = newError(CodeInternal, "internal consistency error")
)

// CodeOf extracts the rejection code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
