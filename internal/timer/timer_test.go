package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	m := NewManual()
	var order []int

	m.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	m.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	m.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	m.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("after 2s order = %v, want [1 2]", order)
	}

	m.Advance(time.Second)
	if len(order) != 3 || order[2] != 3 {
		t.Fatalf("after 3s order = %v, want [1 2 3]", order)
	}
}

func TestStopPreventsFire(t *testing.T) {
	m := NewManual()
	fired := false
	h := m.AfterFunc(time.Second, func() { fired = true })

	if !h.Stop() {
		t.Fatal("first Stop should report true")
	}
	if h.Stop() {
		t.Fatal("second Stop should report false")
	}

	m.Advance(time.Minute)
	if fired {
		t.Fatal("stopped callback fired")
	}
	if got := m.Pending(); got != 0 {
		t.Errorf("Pending = %d, want 0", got)
	}
}

func TestStopAfterFireReportsFalse(t *testing.T) {
	m := NewManual()
	h := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)

	if h.Stop() {
		t.Error("Stop after fire should report false")
	}
}

func TestCallbackMaySchedule(t *testing.T) {
	m := NewManual()
	var n int
	m.AfterFunc(time.Second, func() {
		n++
		m.AfterFunc(time.Second, func() { n++ })
	})

	m.Advance(2 * time.Second)
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
}

func TestRealFiresOnce(t *testing.T) {
	var n atomic.Int32
	done := make(chan struct{})
	Real{}.AfterFunc(5*time.Millisecond, func() {
		n.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	if got := n.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestRealStop(t *testing.T) {
	var n atomic.Int32
	h := Real{}.AfterFunc(50*time.Millisecond, func() { n.Add(1) })
	if !h.Stop() {
		t.Fatal("Stop should report true before deadline")
	}
	time.Sleep(100 * time.Millisecond)
	if got := n.Load(); got != 0 {
		t.Errorf("fired %d times after Stop", got)
	}
}
