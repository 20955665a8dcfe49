// Package rooms owns the set of live game rooms.
package rooms

import (
	"crypto/rand"
	"errors"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/playperu/coup/internal/game"
)

var ErrNotFound = errors.New("room not found")

const (
	codeLength = 5
	// codeChars leaves out characters that are easy to misread.
	codeChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

type entry struct {
	room    *game.Room
	created time.Time
}

// Registry maps room codes to rooms. Rooms are built from a shared
// template of engine options.
type Registry struct {
	base game.Options
	now  func() time.Time

	mu    sync.RWMutex
	rooms map[string]entry
}

func NewRegistry(base game.Options) *Registry {
	return &Registry{
		base:  base,
		now:   time.Now,
		rooms: make(map[string]entry),
	}
}

// Create opens a new room under a fresh code.
func (r *Registry) Create(settings game.Settings) *game.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := generateCode()
	for {
		if _, ok := r.rooms[code]; !ok {
			break
		}
		code = generateCode()
	}

	opts := r.base
	opts.Settings = settings
	room := game.NewRoom(code, opts)
	r.rooms[code] = entry{room: room, created: r.now()}
	return room
}

// Get looks a room up by code, case-insensitively.
func (r *Registry) Get(code string) (*game.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return e.room, nil
}

// List returns a summary of every room, ordered by code.
func (r *Registry) List() []game.Summary {
	r.mu.RLock()
	rooms := make([]*game.Room, 0, len(r.rooms))
	for _, e := range r.rooms {
		rooms = append(rooms, e.room)
	}
	r.mu.RUnlock()

	out := make([]game.Summary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	slices.SortFunc(out, func(a, b game.Summary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Sweep closes and forgets every room older than minAge that has no
// connected participant left. It returns the codes it removed.
func (r *Registry) Sweep(minAge time.Duration) []string {
	cutoff := r.now().Add(-minAge)

	r.mu.RLock()
	var idle []string
	for code, e := range r.rooms {
		if e.created.Before(cutoff) && !e.room.Occupied() {
			idle = append(idle, code)
		}
	}
	r.mu.RUnlock()

	var removed []string
	for _, code := range idle {
		r.mu.Lock()
		e, ok := r.rooms[code]
		// Someone may have joined since the scan.
		stale := ok && !e.room.Occupied()
		if stale {
			delete(r.rooms, code)
		}
		r.mu.Unlock()
		if stale {
			e.room.Close()
			removed = append(removed, code)
		}
	}
	slices.Sort(removed)
	return removed
}

// Close stops every room's timers and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, e := range r.rooms {
		e.room.Close()
		delete(r.rooms, code)
	}
}

func generateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		if err != nil {
			panic("rooms: crypto/rand unavailable: " + err.Error())
		}
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
