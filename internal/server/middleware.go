package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/coup/internal/game"
	"github.com/playperu/coup/internal/rooms"
)

type ctxKey int

const (
	ctxKeyIdentity ctxKey = iota
	ctxKeyRoom
)

func authMiddleware(ids Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := identityFromRequest(r, ids)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyIdentity, who)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func roomMiddleware(reg *rooms.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			room, err := reg.Get(chi.URLParam(r, "roomID"))
			if err != nil {
				writeError(w, http.StatusNotFound, "room not found")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyRoom, room)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFrom(r *http.Request) game.Identity {
	return r.Context().Value(ctxKeyIdentity).(game.Identity)
}

func roomFrom(r *http.Request) *game.Room {
	return r.Context().Value(ctxKeyRoom).(*game.Room)
}
