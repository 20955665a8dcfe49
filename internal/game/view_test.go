package game

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestViewHidesOtherHands(t *testing.T) {
	g := newRig(t, VariantBase, "x", "y")
	g.hand("x", Duke, Captain)
	g.hand("y", Contessa, Assassin)
	g.p("y").Influences[1].Revealed = true
	mustOK(t, g.room.Join(Identity{ID: "s", Name: "s"}, true))

	tests := []struct {
		name     string
		observer string
		wantX    []CardView
		wantY    []CardView
	}{
		{
			name:     "owner",
			observer: "x",
			wantX:    []CardView{{Role: Duke}, {Role: Captain}},
			wantY:    []CardView{{Hidden: true}, {Role: Assassin, Revealed: true}},
		},
		{
			name:     "other player",
			observer: "y",
			wantX:    []CardView{{Hidden: true}, {Hidden: true}},
			wantY:    []CardView{{Role: Contessa}, {Role: Assassin, Revealed: true}},
		},
		{
			name:     "spectator",
			observer: "s",
			wantX:    []CardView{{Role: Duke}, {Role: Captain}},
			wantY:    []CardView{{Role: Contessa}, {Role: Assassin, Revealed: true}},
		},
		{
			name:     "stranger",
			observer: "nobody",
			wantX:    []CardView{{Hidden: true}, {Hidden: true}},
			wantY:    []CardView{{Hidden: true}, {Role: Assassin, Revealed: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.room.View(tt.observer)
			if v.Spectating != (tt.observer == "s") {
				t.Errorf("unexpected spectating flag %v", v.Spectating)
			}
			for i, want := range [][]CardView{tt.wantX, tt.wantY} {
				got := v.Players[i].Cards
				if len(got) != len(want) {
					t.Fatalf("player %d: expected %d cards, got %d", i, len(want), len(got))
				}
				for j := range want {
					if got[j] != want[j] {
						t.Errorf("player %d card %d: expected %+v, got %+v", i, j, want[j], got[j])
					}
				}
			}
		})
	}
}

func TestViewNeverLeaksHiddenRoles(t *testing.T) {
	g := newRig(t, VariantBase, "x", "y")
	g.hand("x", Ambassador, Ambassador)
	g.hand("y", Contessa, Contessa)

	mustOK(t, g.room.Declare("x", Tax, ""))
	b, err := json.Marshal(g.room.View("y"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), string(Ambassador)) {
		t.Errorf("view for y leaks x's hand: %s", b)
	}
}

func TestViewPending(t *testing.T) {
	g := newRig(t, VariantBase, "x", "y", "z")
	mustOK(t, g.room.Declare("x", ForeignAid, ""))
	mustOK(t, g.room.Respond("z", Response{Kind: Pass}))

	v := g.room.View("y")
	p := v.Pending
	if p == nil {
		t.Fatal("expected pending action in view")
	}
	if p.Action != ForeignAid || p.Actor != "x" || p.Phase != AwaitingResponse {
		t.Errorf("unexpected pending %+v", p)
	}
	if p.Deadline == nil || p.Paused {
		t.Errorf("expected a running deadline, got %+v", p)
	}
	if len(p.Eligible) != 2 || len(p.Responded) != 1 || p.Responded[0] != "z" {
		t.Errorf("unexpected response sets %+v", p)
	}
	if v.Turn != "x" {
		t.Errorf("expected turn x, got %q", v.Turn)
	}

	mustOK(t, g.room.Disconnect("y"))
	p = g.room.View("x").Pending
	if !p.Paused || p.Deadline != nil {
		t.Errorf("expected paused window without deadline, got %+v", p)
	}
}

func TestViewLogWindow(t *testing.T) {
	g := newRig(t, VariantBase, "x", "y")
	g.room.settings.LogWindow = 3
	for range 5 {
		mustOK(t, g.room.Declare(g.turn(), Income, ""))
	}

	v := g.room.View("x")
	if len(v.Log) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(v.Log))
	}
	if last := v.Log[2]; last.Seq != g.room.seq {
		t.Errorf("expected newest entry last, got seq %d want %d", last.Seq, g.room.seq)
	}
}
