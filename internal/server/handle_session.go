package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/coup/internal/identity"
	"github.com/playperu/coup/internal/store"
)

type GuestRequest struct {
	Name string `json:"name"`
}

type CredentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SessionResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Guest    bool   `json:"guest"`
}

type MeResponse struct {
	PlayerID      string        `json:"playerId"`
	Name          string        `json:"name"`
	Guest         bool          `json:"guest"`
	Stats         store.Stats   `json:"stats"`
	RecentMatches []store.Match `json:"recentMatches"`
}

const recentMatchLimit = 10

func sessionResponse(s identity.Session) SessionResponse {
	return SessionResponse{
		Token:    s.Token,
		PlayerID: s.Identity.ID,
		Name:     s.Identity.Name,
		Guest:    s.Identity.Guest,
	}
}

func handleGuest(ids *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuestRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess, err := ids.Guest(req.Name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func handleRegister(logger *slog.Logger, ids *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess, err := ids.Register(r.Context(), req.Name, req.Password)
		switch {
		case errors.Is(err, identity.ErrInvalidName), errors.Is(err, identity.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, store.ErrNameTaken):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			logger.Error("registering account", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, sessionResponse(sess))
	}
}

func handleLogin(logger *slog.Logger, ids *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess, err := ids.Login(r.Context(), req.Name, req.Password)
		if errors.Is(err, identity.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			logger.Error("logging in", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse(sess))
	}
}

func handleMe(logger *slog.Logger, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who := identityFrom(r)
		resp := MeResponse{
			PlayerID:      who.ID,
			Name:          who.Name,
			Guest:         who.Guest,
			Stats:         store.Stats{PlayerID: who.ID},
			RecentMatches: []store.Match{},
		}
		if !who.Guest {
			stats, err := st.Stats(r.Context(), who.ID)
			if err != nil {
				logger.Error("loading stats", "player", who.ID, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			resp.Stats = stats
			matches, err := st.RecentMatches(r.Context(), who.ID, recentMatchLimit)
			if err != nil {
				logger.Error("loading matches", "player", who.ID, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			resp.RecentMatches = append(resp.RecentMatches, matches...)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
