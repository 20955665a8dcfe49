package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playperu/coup/internal/database"
	"github.com/playperu/coup/internal/game"
	"github.com/playperu/coup/internal/handler/health"
	"github.com/playperu/coup/internal/identity"
	"github.com/playperu/coup/internal/migrations"
	"github.com/playperu/coup/internal/rooms"
	"github.com/playperu/coup/internal/store"
	"github.com/playperu/coup/internal/timer"
)

type testEnv struct {
	router http.Handler
	deps   Deps
	clock  *timer.Manual
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.MemoryPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(db, nil, logger)
	hub := NewHub(logger)
	clock := timer.NewManual()
	reg := rooms.NewRegistry(game.Options{
		Scheduler: clock,
		Publisher: hub,
		Sink:      st,
		Logger:    logger,
	})
	t.Cleanup(reg.Close)

	d := Deps{
		Logger:   logger,
		Rooms:    reg,
		Hub:      hub,
		Identity: identity.NewService(st, "server-test-secret", time.Hour),
		Store:    st,
		Health:   health.NewHandler(logger, reg, map[string]health.Checker{"sqlite": health.SQLite(db)}),
		Defaults: game.DefaultSettings(),
	}
	return &testEnv{router: NewRouter(d), deps: d, clock: clock}
}

func newTestRouter(t *testing.T) http.Handler {
	return newTestEnv(t).router
}

// call performs a request and decodes the JSON response into out when non-nil.
func (e *testEnv) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
	return rec.Code
}

func (e *testEnv) guest(t *testing.T, name string) SessionResponse {
	t.Helper()
	var s SessionResponse
	if code := e.call(t, http.MethodPost, "/api/session/guest", "", GuestRequest{Name: name}, &s); code != http.StatusOK {
		t.Fatalf("guest session: expected 200, got %d", code)
	}
	return s
}

// startedRoom creates a room hosted by a, joins b and starts the game.
func (e *testEnv) startedRoom(t *testing.T) (roomID string, a, b SessionResponse) {
	t.Helper()
	a, b = e.guest(t, "Ana"), e.guest(t, "Bea")

	var sum game.Summary
	if code := e.call(t, http.MethodPost, "/api/rooms", a.Token, CreateRoomRequest{}, &sum); code != http.StatusCreated {
		t.Fatalf("create room: expected 201, got %d", code)
	}
	if code := e.call(t, http.MethodPost, "/api/rooms/"+sum.ID+"/join", b.Token, JoinRoomRequest{}, nil); code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d", code)
	}
	var res IntentResult
	if code := e.call(t, http.MethodPost, "/api/rooms/"+sum.ID+"/intents", a.Token, Intent{Type: IntentStart}, &res); code != http.StatusOK || !res.Success {
		t.Fatalf("start: expected success, got %d %+v", code, res)
	}
	return sum.ID, a, b
}

func TestSessions(t *testing.T) {
	e := newTestEnv(t)

	g := e.guest(t, "Ana")
	if !g.Guest || g.Token == "" {
		t.Fatalf("unexpected guest session %+v", g)
	}

	var reg SessionResponse
	if code := e.call(t, http.MethodPost, "/api/session/register", "", CredentialsRequest{Name: "Bea", Password: "hunter22"}, &reg); code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", code)
	}
	if code := e.call(t, http.MethodPost, "/api/session/register", "", CredentialsRequest{Name: "bea", Password: "hunter22"}, nil); code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", code)
	}
	if code := e.call(t, http.MethodPost, "/api/session/login", "", CredentialsRequest{Name: "Bea", Password: "wrong"}, nil); code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", code)
	}

	var me MeResponse
	if code := e.call(t, http.MethodGet, "/api/me", reg.Token, nil, &me); code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", code)
	}
	if me.PlayerID != reg.PlayerID || me.Guest || me.Stats.GamesPlayed != 0 {
		t.Errorf("unexpected me %+v", me)
	}
	if code := e.call(t, http.MethodGet, "/api/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("me without token: expected 401, got %d", code)
	}
	if code := e.call(t, http.MethodGet, "/api/me", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("me with bad token: expected 401, got %d", code)
	}
}

func TestRoomLifecycle(t *testing.T) {
	e := newTestEnv(t)
	roomID, a, b := e.startedRoom(t)

	var list []game.Summary
	e.call(t, http.MethodGet, "/api/rooms", "", nil, &list)
	if len(list) != 1 || list[0].Players != 2 || list[0].Phase != game.PhasePlaying {
		t.Fatalf("unexpected room list %+v", list)
	}

	var v game.View
	if code := e.call(t, http.MethodGet, "/api/rooms/"+roomID+"/state", a.Token, nil, &v); code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", code)
	}
	if v.You != a.PlayerID || len(v.Players) != 2 {
		t.Fatalf("unexpected view %+v", v)
	}

	current, waiting := a, b
	if v.Turn == b.PlayerID {
		current, waiting = b, a
	}

	var res IntentResult
	code := e.call(t, http.MethodPost, "/api/rooms/"+roomID+"/intents", waiting.Token, Intent{Type: IntentDeclare, Action: game.Income}, &res)
	if code != http.StatusConflict || res.Success || res.Error.Code != game.CodeNotYourTurn {
		t.Errorf("out of turn: expected 409 not_your_turn, got %d %+v", code, res)
	}

	code = e.call(t, http.MethodPost, "/api/rooms/"+roomID+"/intents", current.Token, Intent{Type: IntentDeclare, Action: game.Income}, &res)
	if code != http.StatusOK || !res.Success {
		t.Fatalf("income: expected success, got %d %+v", code, res)
	}
	e.call(t, http.MethodGet, "/api/rooms/"+roomID+"/state", current.Token, nil, &v)
	if v.Turn != waiting.PlayerID {
		t.Errorf("expected turn to pass to %s, got %s", waiting.PlayerID, v.Turn)
	}
}

func TestIntentRejections(t *testing.T) {
	e := newTestEnv(t)
	roomID, a, _ := e.startedRoom(t)

	tests := []struct {
		name     string
		path     string
		token    string
		intent   Intent
		wantCode int
	}{
		{"unknown room", "/api/rooms/ZZZZZ/intents", a.Token, Intent{Type: IntentStart}, http.StatusNotFound},
		{"no token", "/api/rooms/" + roomID + "/intents", "", Intent{Type: IntentStart}, http.StatusUnauthorized},
		{"unknown intent", "/api/rooms/" + roomID + "/intents", a.Token, Intent{Type: "dance"}, http.StatusBadRequest},
		{"restart while playing", "/api/rooms/" + roomID + "/intents", a.Token, Intent{Type: IntentStart}, http.StatusConflict},
		{"reveal with nothing owed", "/api/rooms/" + roomID + "/intents", a.Token, Intent{Type: IntentReveal}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := e.call(t, http.MethodPost, tt.path, tt.token, tt.intent, nil); code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, code)
			}
		})
	}
}

func TestCreateRoomValidation(t *testing.T) {
	e := newTestEnv(t)
	a := e.guest(t, "Ana")

	if code := e.call(t, http.MethodPost, "/api/rooms", a.Token, CreateRoomRequest{Variant: "chess"}, nil); code != http.StatusBadRequest {
		t.Errorf("bad variant: expected 400, got %d", code)
	}
	if code := e.call(t, http.MethodPost, "/api/rooms", a.Token, CreateRoomRequest{MaxPlayers: 9}, nil); code != http.StatusBadRequest {
		t.Errorf("bad max players: expected 400, got %d", code)
	}
	var sum game.Summary
	if code := e.call(t, http.MethodPost, "/api/rooms", a.Token, CreateRoomRequest{Variant: game.VariantInquisitor, MaxPlayers: 3}, &sum); code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", code)
	}
	if sum.Variant != game.VariantInquisitor || sum.MaxPlayers != 3 || sum.Players != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	var rep health.Report
	if code := e.call(t, http.MethodGet, "/healthz", "", nil, &rep); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if rep.Checks["sqlite"].Status != "ok" {
		t.Errorf("unexpected report %+v", rep)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code game.Code
		want int
	}{
		{game.CodeNotYourTurn, http.StatusConflict},
		{game.CodeAlreadyResponded, http.StatusConflict},
		{game.CodeNotHost, http.StatusForbidden},
		{game.CodeInvalidKeepCount, http.StatusBadRequest},
		{game.CodeRoomClosed, http.StatusGone},
		{game.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.code, tt.want, got)
		}
	}
}
