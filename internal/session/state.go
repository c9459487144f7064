package session

import (
	"sync"

	"ai-interviewer/internal/domain"
)

// state is the transient, per-user view of one running interview. Only the
// draft answer lives here exclusively; everything else is a cache of the
// persisted session row and can be rebuilt by Resume after a restart.
type state struct {
	mu           sync.Mutex
	session      *domain.Session
	questionText string
	draft        string
}

// registry holds live interview states keyed by user id.
type registry struct {
	mu     sync.RWMutex
	states map[int64]*state
}

func newRegistry() *registry {
	return &registry{states: make(map[int64]*state)}
}

func (r *registry) get(userID int64) *state {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[userID]
}

func (r *registry) put(userID int64, st *state) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[userID] = st
}

func (r *registry) remove(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
}
