package umlsession

import (
	"context"
	"sync"
)

// MemStore keeps sessions in memory.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]*Session),
	}
}

func (ms *MemStore) Get(ctx context.Context, id string) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	s, ok := ms.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Copy(), nil
}

func (ms *MemStore) List(ctx context.Context) ([]*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]*Session, 0, len(ms.sessions))
	for _, s := range ms.sessions {
		out = append(out, s.Copy())
	}
	sortByModified(out)
	return out, nil
}

func (ms *MemStore) Put(ctx context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[s.ID] = s.Copy()
	return nil
}

func (ms *MemStore) Delete(ctx context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(ms.sessions, id)
	return nil
}

func (ms *MemStore) Close() error {
	return nil
}
