package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/coup/internal/game"
)

// Envelope frames every WebSocket message. T is "intent" from the client and
// "result" or "state" from the server.
type Envelope struct {
	T  string          `json:"t"`
	ID int             `json:"id,omitempty"`
	M  json.RawMessage `json:"m,omitempty"`
}

type outbound struct {
	T  string `json:"t"`
	ID int    `json:"id,omitempty"`
	M  any    `json:"m"`
}

const wsWriteTimeout = 5 * time.Second

// handleWS carries presence, intents and state pushes over one socket. The
// first socket a seated player opens reconnects them; closing the last one
// disconnects them.
func handleWS(logger *slog.Logger, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := roomFrom(r)
		who := identityFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub := hub.Subscribe(room.ID(), who.ID)
		defer hub.Unsubscribe(room.ID(), sub)

		if hub.Attach(room.ID(), who.ID) && room.Member(who.ID) {
			if err := room.Reconnect(who.ID); err != nil {
				logger.Debug("reconnect on open", "room", room.ID(), "player", who.ID, "error", err)
			}
		}
		defer func() {
			if hub.Detach(room.ID(), who.ID) && room.Member(who.ID) {
				if err := room.Disconnect(who.ID); err != nil {
					logger.Debug("disconnect on close", "room", room.ID(), "player", who.ID, "error", err)
				}
			}
		}()

		if err := write(ctx, conn, outbound{T: "state", M: room.View(who.ID)}); err != nil {
			return
		}
		go pushStates(ctx, cancel, conn, sub)

		for {
			var env Envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				logger.Debug("websocket read ended", "room", room.ID(), "player", who.ID, "error", err)
				return
			}
			if env.T != "intent" {
				continue
			}
			var in Intent
			var res IntentResult
			if err := json.Unmarshal(env.M, &in); err != nil {
				res = IntentResult{Error: &IntentError{Code: game.CodeInvalidAction, Message: "malformed intent"}}
			} else {
				err := dispatch(ctx, room, who, in)
				res = resultOf(err)
				if res.Error != nil && res.Error.Code == game.CodeInternal {
					logger.Error("intent failed", "room", room.ID(), "player", who.ID, "intent", in.Type, "error", err)
				}
			}
			if err := write(ctx, conn, outbound{T: "result", ID: env.ID, M: res}); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func pushStates(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sub *Subscription) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-sub.ch:
			if err := write(ctx, conn, outbound{T: "state", M: v}); err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg outbound) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
