package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-market/internal/auctionerrors"
)

// Store maps opaque session tokens to account IDs
type Store interface {
	Save(ctx context.Context, token, accountID string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

type entry struct {
	accountID string
	expiresAt time.Time
}

// MemoryStore is a concurrency-safe in-memory session Store
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Save stores a session that expires after ttl
func (s *MemoryStore) Save(ctx context.Context, token, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[token] = entry{accountID: accountID, expiresAt: s.now().Add(ttl)}
	return nil
}

// Lookup returns the account of a live session, evicting it once expired
func (s *MemoryStore) Lookup(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[token]
	if !ok {
		return "", fmt.Errorf("lookup session: %w", auctionerrors.ErrUnauthenticated)
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, token)
		return "", fmt.Errorf("lookup session: expired: %w", auctionerrors.ErrUnauthenticated)
	}
	return e.accountID, nil
}

// Delete ends a session; unknown tokens are ignored
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}
