package store

import (
	"context"
	"sync"

	"anypos-register/internal/services/pos"
	"anypos-register/internal/services/session"
)

// MemoryStore keeps register state in process. State is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	carts    map[string]pos.Cart
	sessions map[string]session.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:    make(map[string]pos.Cart),
		sessions: make(map[string]session.Session),
	}
}

func (m *MemoryStore) LoadCart(_ context.Context, registerID string) (*pos.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[registerID]
	if !ok {
		return nil, nil
	}
	c = c.Clone()
	return &c, nil
}

func (m *MemoryStore) SaveCart(_ context.Context, registerID string, cart pos.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[registerID] = cart.Clone()
	return nil
}

func (m *MemoryStore) LoadSession(_ context.Context, registerID string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[registerID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, registerID string, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[registerID] = s
	return nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, registerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, registerID)
	return nil
}
