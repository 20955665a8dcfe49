package server

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/playperu/coup/internal/game"
)

var tracer = otel.Tracer("github.com/playperu/coup/internal/server")

// Intent types accepted over HTTP and WebSocket.
const (
	IntentJoin          = "join"
	IntentLeave         = "leave"
	IntentSwitchSeat    = "switch_seat"
	IntentStart         = "start"
	IntentDeclare       = "declare"
	IntentRespond       = "respond"
	IntentBlockResponse = "block_response"
	IntentReveal        = "reveal"
	IntentExchange      = "exchange"
	IntentShowCard      = "show_card"
	IntentResolveExam   = "resolve_examine"
)

// Intent is one player request against a room. Fields not used by Type are
// ignored.
type Intent struct {
	Type      string            `json:"type"`
	Action    game.ActionKind   `json:"action,omitempty"`
	Target    string            `json:"target,omitempty"`
	Response  game.ResponseKind `json:"response,omitempty"`
	Role      game.Role         `json:"role,omitempty"`
	Challenge bool              `json:"challenge,omitempty"`
	Card      int               `json:"card"`
	Keep      []int             `json:"keep,omitempty"`
	Swap      bool              `json:"swap,omitempty"`
	Spectate  bool              `json:"spectate,omitempty"`
}

type IntentError struct {
	Code    game.Code `json:"code"`
	Message string    `json:"message"`
}

// IntentResult is the acknowledgement of one intent.
type IntentResult struct {
	Success bool         `json:"success"`
	Error   *IntentError `json:"error,omitempty"`
}

var errUnknownIntent = &game.Error{Code: game.CodeInvalidAction, Message: "unknown intent type"}

// dispatch applies in to room on behalf of who.
func dispatch(ctx context.Context, room *game.Room, who game.Identity, in Intent) error {
	_, span := tracer.Start(ctx, "intent."+in.Type)
	defer span.End()
	span.SetAttributes(
		attribute.String("room.id", room.ID()),
		attribute.String("player.id", who.ID),
		attribute.String("intent.type", in.Type),
	)

	err := apply(room, who, in)
	if err != nil {
		span.SetAttributes(attribute.String("intent.error", string(game.CodeOf(err))))
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func apply(room *game.Room, who game.Identity, in Intent) error {
	switch in.Type {
	case IntentJoin:
		return room.Join(who, in.Spectate)
	case IntentLeave:
		return room.Leave(who.ID)
	case IntentSwitchSeat:
		return room.SwitchSeat(who.ID, in.Spectate)
	case IntentStart:
		return room.Start(who.ID)
	case IntentDeclare:
		return room.Declare(who.ID, in.Action, in.Target)
	case IntentRespond:
		return room.Respond(who.ID, game.Response{Kind: in.Response, Role: in.Role})
	case IntentBlockResponse:
		return room.RespondToBlock(who.ID, in.Challenge)
	case IntentReveal:
		return room.Reveal(who.ID, in.Card)
	case IntentExchange:
		return room.ChooseExchange(who.ID, in.Keep)
	case IntentShowCard:
		return room.ShowCard(who.ID, in.Card)
	case IntentResolveExam:
		return room.ResolveExamine(who.ID, in.Swap)
	}
	return errUnknownIntent
}

func resultOf(err error) IntentResult {
	if err == nil {
		return IntentResult{Success: true}
	}
	var ge *game.Error
	if errors.As(err, &ge) {
		return IntentResult{Error: &IntentError{Code: ge.Code, Message: ge.Message}}
	}
	return IntentResult{Error: &IntentError{Code: game.CodeInternal, Message: "internal error"}}
}

// statusFor maps a rejection code to the HTTP status the REST surface uses.
func statusFor(code game.Code) int {
	switch code {
	case "":
		return http.StatusOK
	case game.CodeNotHost, game.CodeNotInRoom, game.CodeNotEligible, game.CodeEliminated:
		return http.StatusForbidden
	case game.CodeInvalidAction, game.CodeInvalidTarget, game.CodeInvalidResponse,
		game.CodeInvalidCard, game.CodeInvalidKeepCount:
		return http.StatusBadRequest
	case game.CodeRoomClosed:
		return http.StatusGone
	case game.CodeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusConflict
}
