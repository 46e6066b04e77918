package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps sessions in process memory. Values are cloned on the way in and out so
// callers cannot mutate stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Load implements [Store].
func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return sess.Clone(), nil
}

// Store implements [Store].
func (m *MemoryStore) Store(_ context.Context, sess *Session) error {
	if err := validateForStore(sess); err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess.Clone()
	m.mu.Unlock()
	return nil
}

// Delete implements [Store].
func (m *MemoryStore) Delete(_ context.Context, ids ...string) error {
	m.mu.Lock()
	for _, id := range ids {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return nil
}

// FindByShop implements [Store]. Results are ordered by session ID.
func (m *MemoryStore) FindByShop(_ context.Context, shop string) ([]*Session, error) {
	shop = normalizeShop(shop)
	m.mu.RLock()
	out := make([]*Session, 0, 2)
	for _, sess := range m.sessions {
		if normalizeShop(sess.Shop) == shop {
			out = append(out, sess.Clone())
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ Store = (*MemoryStore)(nil)
