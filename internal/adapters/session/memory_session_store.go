package session

import (
	"context"
	"sync"

	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
)

// MemorySessionStore is an in-process SessionStateProvider used when Redis is
// unavailable and in tests. The mutex gives the same per-identity atomicity
// the Redis store gets from SETNX.
type MemorySessionStore struct {
	mu     sync.Mutex
	locked map[string]bool
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() providers.SessionStateProvider {
	return &MemorySessionStore{locked: make(map[string]bool)}
}

// SetUpgradeLock marks the identity as upgrade-locked.
func (s *MemorySessionStore) SetUpgradeLock(_ context.Context, identityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked[identityKey] = true
	return nil
}

// IsUpgradeLocked reports whether the identity is upgrade-locked.
func (s *MemorySessionStore) IsUpgradeLocked(_ context.Context, identityKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked[identityKey], nil
}

// ClearUpgradeLock removes the lock for the identity.
func (s *MemorySessionStore) ClearUpgradeLock(_ context.Context, identityKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locked, identityKey)
	return nil
}
