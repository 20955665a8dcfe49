package server

import (
	"log/slog"
	"sync"

	"github.com/playperu/coup/internal/game"
)

// Subscription receives the newest view of a room for one observer. The
// channel holds at most one view; a slow reader only ever misses stale ones.
type Subscription struct {
	observer string
	ch       chan game.View

	mu   sync.Mutex
	last uint64
}

// offer buffers v unless a newer version was already offered. Concurrent
// publishes may project out of order.
func (s *Subscription) offer(v game.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Version < s.last {
		return
	}
	s.last = v.Version
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}

// Hub is the in-process fan-out of room state, keyed by room code. It also
// counts each player's live sockets so presence follows the last one closed.
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	subs  map[string]map[*Subscription]struct{}
	conns map[string]map[string]int
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
		conns:  make(map[string]map[string]int),
	}
}

// Subscribe registers observer for room state pushes.
func (h *Hub) Subscribe(roomID, observer string) *Subscription {
	s := &Subscription{observer: observer, ch: make(chan game.View, 1)}
	h.mu.Lock()
	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[*Subscription]struct{})
	}
	h.subs[roomID][s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) Unsubscribe(roomID string, s *Subscription) {
	h.mu.Lock()
	delete(h.subs[roomID], s)
	if len(h.subs[roomID]) == 0 {
		delete(h.subs, roomID)
	}
	h.mu.Unlock()
}

// Publish projects the room once per distinct observer and offers the view
// to each of their subscriptions.
func (h *Hub) Publish(r *game.Room) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs[r.ID()]))
	for s := range h.subs[r.ID()] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	views := make(map[string]game.View, len(subs))
	for _, s := range subs {
		v, ok := views[s.observer]
		if !ok {
			v = r.View(s.observer)
			views[s.observer] = v
		}
		s.offer(v)
	}
	h.logger.Debug("room published", "room", r.ID(), "subscribers", len(subs))
}

// Attach counts a new socket for playerID and reports whether it is the first.
func (h *Hub) Attach(roomID, playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[roomID] == nil {
		h.conns[roomID] = make(map[string]int)
	}
	h.conns[roomID][playerID]++
	return h.conns[roomID][playerID] == 1
}

// Detach drops a socket and reports whether it was the player's last.
func (h *Hub) Detach(roomID, playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.conns[roomID][playerID] - 1
	if n > 0 {
		h.conns[roomID][playerID] = n
		return false
	}
	delete(h.conns[roomID], playerID)
	if len(h.conns[roomID]) == 0 {
		delete(h.conns, roomID)
	}
	return true
}

// Forget drops every subscription of a closed room.
func (h *Hub) Forget(roomID string) {
	h.mu.Lock()
	delete(h.subs, roomID)
	delete(h.conns, roomID)
	h.mu.Unlock()
}
