package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/coup/internal/game"
	"github.com/playperu/coup/internal/handler/health"
)

// ErrorResponse is returned for all non-intent error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type operation struct {
	method, path  string
	summary, desc string
	req           any
	resp          []response
}

type response struct {
	status      int
	body        any
	contentType string
}

func respOK(body any) response { return response{status: http.StatusOK, body: body} }

func respWith(code int, body any) response { return response{status: code, body: body} }

var operations = []operation{
	{
		method:  http.MethodGet,
		path:    "/healthz",
		summary: "Health check",
		desc:    "Reports SQLite and Redis reachability and the number of live rooms.",
		resp:    []response{respOK(health.Report{}), respWith(http.StatusServiceUnavailable, health.Report{})},
	},
	{
		method:  http.MethodPost,
		path:    "/api/session/guest",
		summary: "Guest session",
		desc:    "Issues a session token for a throwaway identity.",
		req:     GuestRequest{},
		resp:    []response{respOK(SessionResponse{}), respWith(http.StatusBadRequest, ErrorResponse{})},
	},
	{
		method:  http.MethodPost,
		path:    "/api/session/register",
		summary: "Register",
		desc:    "Creates an account and returns a session token.",
		req:     CredentialsRequest{},
		resp: []response{
			respWith(http.StatusCreated, SessionResponse{}),
			respWith(http.StatusBadRequest, ErrorResponse{}),
			respWith(http.StatusConflict, ErrorResponse{}),
		},
	},
	{
		method:  http.MethodPost,
		path:    "/api/session/login",
		summary: "Log in",
		desc:    "Exchanges account credentials for a session token.",
		req:     CredentialsRequest{},
		resp:    []response{respOK(SessionResponse{}), respWith(http.StatusUnauthorized, ErrorResponse{})},
	},
	{
		method:  http.MethodGet,
		path:    "/api/me",
		summary: "Current player",
		desc:    "Returns the caller's identity, lifetime stats and recent matches. Requires Bearer token.",
		resp:    []response{respOK(MeResponse{}), respWith(http.StatusUnauthorized, ErrorResponse{})},
	},
	{
		method:  http.MethodGet,
		path:    "/api/rooms",
		summary: "List rooms",
		desc:    "Returns every live room with its phase and occupancy.",
		resp:    []response{respOK([]game.Summary{})},
	},
	{
		method:  http.MethodPost,
		path:    "/api/rooms",
		summary: "Create room",
		desc:    "Opens a room and seats the caller as host. Requires Bearer token.",
		req:     CreateRoomRequest{},
		resp: []response{
			respWith(http.StatusCreated, game.Summary{}),
			respWith(http.StatusBadRequest, ErrorResponse{}),
			respWith(http.StatusUnauthorized, ErrorResponse{}),
		},
	},
	{
		method:  http.MethodPost,
		path:    "/api/rooms/{roomID}/join",
		summary: "Join room",
		desc:    "Seats the caller, or adds them as a spectator. Joining a running game spectates. Requires Bearer token.",
		req:     JoinRoomRequest{},
		resp: []response{
			respOK(game.View{}),
			respWith(http.StatusConflict, IntentResult{}),
			respWith(http.StatusNotFound, ErrorResponse{}),
		},
	},
	{
		method:  http.MethodGet,
		path:    "/api/rooms/{roomID}/state",
		summary: "Room state",
		desc:    "Returns the room as the caller may see it. Requires Bearer token.",
		resp:    []response{respOK(game.View{}), respWith(http.StatusNotFound, ErrorResponse{})},
	},
	{
		method:  http.MethodPost,
		path:    "/api/rooms/{roomID}/intents",
		summary: "Submit intent",
		desc:    "Applies one player intent. Rejections carry a machine-readable code and leave the room unchanged.",
		req:     Intent{},
		resp: []response{
			respOK(IntentResult{}),
			respWith(http.StatusBadRequest, IntentResult{}),
			respWith(http.StatusForbidden, IntentResult{}),
			respWith(http.StatusConflict, IntentResult{}),
		},
	},
	{
		method:  http.MethodGet,
		path:    "/api/rooms/{roomID}/ws",
		summary: "Room socket",
		desc:    "WebSocket carrying intents, their results and state pushes. Pass token as query parameter.",
		resp:    []response{{status: http.StatusSwitchingProtocols, contentType: "text/plain"}},
	},
	{
		method:  http.MethodGet,
		path:    "/api/rooms/{roomID}/events",
		summary: "Room event stream",
		desc:    "Server-Sent Events stream of state pushes. Pass token as query parameter.",
		resp:    []response{{status: http.StatusOK, contentType: "text/event-stream"}},
	},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Coup API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Rooms, sessions and live play for the Coup card game.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.desc)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, resp := range op.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(resp.status)}
			if resp.contentType != "" {
				opts = append(opts, openapi.WithContentType(resp.contentType))
			}
			oc.AddRespStructure(resp.body, opts...)
		}
		_ = r.AddOperation(oc)
	}
	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
