package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"janggi/internal/board"
)

var ErrNotFound = errors.New("game: not found")

// Manager is a concurrency-safe table of live games, keyed by a uuid
// (ported from the teacher's server/game.Manager).
type Manager struct {
	mu    sync.RWMutex
	games map[string]*State
}

func NewManager() *Manager {
	return &Manager{games: make(map[string]*State)}
}

// New starts a fresh game with the given starting layouts and stores it
// under a new id.
func (m *Manager) New(choLayout, hanLayout board.StartingLayout) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	g := &State{
		ID:        uuid.NewString(),
		Board:     board.NewBoard(choLayout, hanLayout),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.games[g.ID] = g
	return g
}

func (m *Manager) Get(id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

// Touch updates UpdatedAt after a move has been applied to g.Board in place.
func (m *Manager) Touch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return ErrNotFound
	}
	g.UpdatedAt = time.Now()
	return nil
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
}
