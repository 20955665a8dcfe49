package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/coup/internal/game"
)

func dialRoom(t *testing.T, ctx context.Context, srv *httptest.Server, roomID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/rooms/" + roomID + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

// readUntil reads envelopes until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) Envelope {
	t.Helper()
	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			t.Fatalf("reading %s: %v", typ, err)
		}
		if env.T == typ {
			return env
		}
	}
}

func TestWebSocketIntentsAndPresence(t *testing.T) {
	e := newTestEnv(t)
	roomID, a, b := e.startedRoom(t)
	room, _ := e.deps.Rooms.Get(roomID)

	srv := httptest.NewServer(e.router)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current := a
	if room.View("").Turn == b.PlayerID {
		current = b
	}

	conn := dialRoom(t, ctx, srv, roomID, current.Token)
	defer conn.CloseNow()

	var v game.View
	if err := json.Unmarshal(readUntil(t, ctx, conn, "state").M, &v); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if v.You != current.PlayerID || v.Phase != game.PhasePlaying {
		t.Fatalf("unexpected initial view %+v", v)
	}

	msg := map[string]any{"t": "intent", "id": 7, "m": Intent{Type: IntentDeclare, Action: game.Income}}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	env := readUntil(t, ctx, conn, "result")
	var res IntentResult
	if err := json.Unmarshal(env.M, &res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if env.ID != 7 || !res.Success {
		t.Fatalf("expected success for intent 7, got %d %+v", env.ID, res)
	}

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	json.Unmarshal(readUntil(t, ctx, conn, "result").M, &res)
	if res.Success || res.Error.Code != game.CodeNotYourTurn {
		t.Errorf("expected not_your_turn, got %+v", res)
	}

	conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for {
		var presence game.Presence
		for _, p := range room.View("").Players {
			if p.ID == current.PlayerID {
				presence = p.Presence
			}
		}
		if presence == game.PresenceDisconnected {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %s disconnected after the socket closed, got %s", current.PlayerID, presence)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if e.clock.Pending() == 0 {
		t.Error("expected a reconnect grace timer")
	}

	again := dialRoom(t, ctx, srv, roomID, current.Token)
	defer again.CloseNow()
	json.Unmarshal(readUntil(t, ctx, again, "state").M, &v)
	for _, p := range v.Players {
		if p.ID == current.PlayerID && p.Presence != game.PresenceActive {
			t.Errorf("expected reconnect on open, got %s", p.Presence)
		}
	}
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	e := newTestEnv(t)
	roomID, _, _ := e.startedRoom(t)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/rooms/" + roomID + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	e := newTestEnv(t)
	roomID, a, _ := e.startedRoom(t)

	srv := httptest.NewServer(e.router)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/rooms/"+roomID+"/events?token="+a.Token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var v game.View
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			t.Fatalf("decoding event: %v", err)
		}
		if v.You != a.PlayerID || v.RoomID != roomID {
			t.Errorf("unexpected view %+v", v)
		}
		return
	}
	t.Fatalf("stream ended without a state event: %v", sc.Err())
}
