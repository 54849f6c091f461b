package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownTier     = errors.New("unknown model tier")
)

// Store persists sessions partitioned by owner.
type Store interface {
	// List returns the owner's sessions, most recently updated first.
	List(ctx context.Context, ownerID string) ([]Session, error)
	Get(ctx context.Context, id string) (Session, error)
	// Put replaces the stored session wholesale. Last write wins.
	Put(ctx context.Context, session Session) error
	// Delete removes a session; deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
}

// MemoryStore implements Store in memory, suitable for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) List(_ context.Context, ownerID string) ([]Session, error) {
	s.mu.RLock()
	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.OwnerID == ownerID {
			out = append(out, session.Clone())
		}
	}
	s.mu.RUnlock()

	SortByRecent(out)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Put replaces the stored session. CreatedAt of an existing record is kept.
func (s *MemoryStore) Put(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := session.Clone()
	if prev, ok := s.sessions[session.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	s.sessions[session.ID] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// SortByRecent orders sessions by LastUpdatedAt descending, then by id.
func SortByRecent(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.LastUpdatedAt.Equal(b.LastUpdatedAt) {
			return a.LastUpdatedAt.After(b.LastUpdatedAt)
		}
		return a.ID < b.ID
	})
}
