// internal/store/memory.go
//
// Session registry: the process-wide map from game id to live session.
//
// Characteristics:
//   - Stores *game.Session values keyed by Session.ID().
//   - Concurrency-safe via RWMutex; sessions carry their own lock for state.
//   - State is lost when the process restarts. Finished games survive only
//     as rows in the archive.

package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/robalobadob/wortkunst/internal/game"
)

// ErrNotFound is returned for an unknown game id.
var ErrNotFound = errors.New("not_found")

// Store is the registry interface injected into the HTTP layer.
type Store interface {
	// Save registers or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete unregisters a session. Deleting an unknown id is ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns every registered session ordered by id.
	List(ctx context.Context) ([]*game.Session, error)
}

// NewID returns a fresh game identifier.
func NewID() string { return uuid.NewString() }

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Session)}
}

func (m *memory) Save(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memory) List(_ context.Context) ([]*game.Session, error) {
	m.mu.RLock()
	out := make([]*game.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}
