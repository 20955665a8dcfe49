package timer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by Advance instead of the wall clock.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	*task
	at  time.Duration
	seq int
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	mt := &manualTask{task: &task{f: f}, at: m.now + d, seq: m.seq}
	m.tasks = append(m.tasks, mt)
	return mt.task
}

// Advance moves the clock forward by d and runs every callback that became
// due, in deadline order. Callbacks run without the scheduler lock held so
// they may schedule new work.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.tasks, func(i, j int) bool {
			if m.tasks[i].at == m.tasks[j].at {
				return m.tasks[i].seq < m.tasks[j].seq
			}
			return m.tasks[i].at < m.tasks[j].at
		})
		if len(m.tasks) == 0 || m.tasks[0].at > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.now = next.at
		m.mu.Unlock()

		next.fire()
	}
}

// Pending returns the number of callbacks that are scheduled and not stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		t.mu.Lock()
		if !t.done {
			n++
		}
		t.mu.Unlock()
	}
	return n
}
