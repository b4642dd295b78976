package handlers

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/pkg/simulation"
)

// SessionStatus tracks a simulation's lifecycle within the API.
type SessionStatus string

const (
	StatusCreated   SessionStatus = "created"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
)

// Session is one live simulation held in memory by the API. Events
// accumulate as the run produces them so late status polls still see
// the full transcript.
type Session struct {
	ID  uuid.UUID
	Sim *simulation.Simulation

	mu     sync.Mutex
	status SessionStatus
	events []simulation.Event
	errMsg string
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start transitions created -> running. A simulation runs at most
// once; concurrent or repeated starts are rejected.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCreated {
		return fmt.Errorf("simulation is %s; it can only be run once", s.status)
	}
	s.status = StatusRunning
	return nil
}

// Finish records the run's outcome.
func (s *Session) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusFailed
		s.errMsg = err.Error()
		return
	}
	s.status = StatusCompleted
}

// AppendEvent records one produced event.
func (s *Session) AppendEvent(ev simulation.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Transcript returns a copy of the events produced so far plus the
// terminal error message, if any.
func (s *Session) Transcript() ([]simulation.Event, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]simulation.Event, len(s.events))
	copy(out, s.events)
	return out, s.errMsg
}

// Registry holds the API's live sessions, keyed by simulation ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers a simulation and returns its session.
func (r *Registry) Add(sim *simulation.Simulation) *Session {
	s := &Session{ID: sim.ID, Sim: sim, status: StatusCreated}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get looks up a session by ID.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns all session IDs.
func (r *Registry) List() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
