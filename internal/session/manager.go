package session

import (
	"context"
	"errors"
	"sync"

	"ragchat/internal/helper"

	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("session not found")

// Manager keeps the live sessions of the HTTP surface.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*State)}
}

func (m *Manager) Create() (*State, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := New(id)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	log.Info().Str("session", id).Msg("Session created")
	return s, nil
}

func (m *Manager) Get(id string) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Do runs fn with exclusive access to the session.
func (m *Manager) Do(id string, fn func(s *State) error) error {
	s, ok := m.Get(id)
	if !ok {
		return ErrNotFound
	}
	return run(s, fn)
}

func run(s *State, fn func(s *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Delete may have taken the lock first and torn the session down.
	if s.closed {
		return ErrNotFound
	}
	return fn(s)
}

// Delete tears the session down once any running interaction finishes.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Close(ctx)
	log.Info().Str("session", id).Msg("Session deleted")
	return nil
}

func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*State)
	m.mu.Unlock()

	for _, s := range sessions {
		s.mu.Lock()
		s.Close(ctx)
		s.mu.Unlock()
	}
}
