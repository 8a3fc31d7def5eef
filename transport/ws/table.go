package ws

import (
	"sync"

	"haven-chat/runtime/workers"
)

// Table is the side-table of live sessions, keyed by session id. The
// liveness worker probes through it; the HTTP layer adds and removes.
type Table struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewTable() *Table {
	return &Table{sessions: make(map[string]*Session)}
}

func (t *Table) Add(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[s.ID()] = s
}

func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, id)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Sessions snapshots the table as probe targets.
func (t *Table) Sessions() []workers.ProbeTarget {
	t.mu.RLock()
	defer t.mu.RUnlock()

	targets := make([]workers.ProbeTarget, 0, len(t.sessions))
	for _, s := range t.sessions {
		targets = append(targets, s)
	}
	return targets
}
