package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/playperu/coup/internal/game"
	"github.com/playperu/coup/internal/rooms"
)

type CreateRoomRequest struct {
	Variant    game.Variant `json:"variant,omitempty"`
	MaxPlayers int          `json:"maxPlayers,omitempty"`
	Spectate   bool         `json:"spectate,omitempty"`
}

type JoinRoomRequest struct {
	Spectate bool `json:"spectate"`
}

func handleListRooms(reg *rooms.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg.List())
	}
}

// handleCreateRoom opens a room and seats the caller as its host.
func handleCreateRoom(logger *slog.Logger, reg *rooms.Registry, defaults game.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoomRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		settings := defaults
		if req.Variant != "" {
			if !req.Variant.Valid() {
				writeError(w, http.StatusBadRequest, "unknown variant")
				return
			}
			settings.Variant = req.Variant
		}
		if req.MaxPlayers != 0 {
			if req.MaxPlayers < game.MinPlayers || req.MaxPlayers > game.MaxPlayers {
				writeError(w, http.StatusBadRequest, "maxPlayers must be between 2 and 6")
				return
			}
			settings.MaxPlayers = req.MaxPlayers
		}

		who := identityFrom(r)
		room := reg.Create(settings.Normalize())
		if err := room.Join(who, req.Spectate); err != nil {
			writeIntentError(w, err)
			return
		}
		logger.Info("room created", "room", room.ID(), "host", who.ID, "variant", settings.Variant)
		writeJSON(w, http.StatusCreated, room.Summary())
	}
}

func handleJoinRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRoomRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		who := identityFrom(r)
		room := roomFrom(r)
		if err := room.Join(who, req.Spectate); err != nil {
			writeIntentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room.View(who.ID))
	}
}

func handleRoomState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, roomFrom(r).View(identityFrom(r).ID))
	}
}

func handleIntent(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Intent
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		room := roomFrom(r)
		who := identityFrom(r)
		err := dispatch(r.Context(), room, who, in)
		res := resultOf(err)
		if res.Error != nil && res.Error.Code == game.CodeInternal {
			logger.Error("intent failed", "room", room.ID(), "player", who.ID, "intent", in.Type, "error", err)
		}
		status := http.StatusOK
		if res.Error != nil {
			status = statusFor(res.Error.Code)
		}
		writeJSON(w, status, res)
	}
}

func writeIntentError(w http.ResponseWriter, err error) {
	res := resultOf(err)
	writeJSON(w, statusFor(res.Error.Code), res)
}
