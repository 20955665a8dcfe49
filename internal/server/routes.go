package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, d Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Coup API", "/openapi.json", "/docs"))
	r.Mount("/healthz", d.Health.Routes())

	r.Route("/api/session", func(r chi.Router) {
		r.Post("/guest", handleGuest(d.Identity))
		r.Post("/register", handleRegister(d.Logger, d.Identity))
		r.Post("/login", handleLogin(d.Logger, d.Identity))
	})

	r.Get("/api/rooms", handleListRooms(d.Rooms))

	// Everything below needs a session token.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(d.Identity))
		r.Get("/api/me", handleMe(d.Logger, d.Store))
		r.Post("/api/rooms", handleCreateRoom(d.Logger, d.Rooms, d.Defaults))

		r.Route("/api/rooms/{roomID}", func(r chi.Router) {
			r.Use(roomMiddleware(d.Rooms))
			r.Post("/join", handleJoinRoom())
			r.Get("/state", handleRoomState())
			r.Post("/intents", handleIntent(d.Logger))
			r.Get("/ws", handleWS(d.Logger, d.Hub))
			r.Get("/events", handleEvents(d.Logger, d.Hub))
		})
	})
}
