package statestore

import (
	"context"
	"sync"
	"time"

	"campuseval/internal/domain/service"
)

type memoryEntry struct {
	verifier  string
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() service.OAuthStateStore {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (s *memoryStore) Save(_ context.Context, state, verifier string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, key)
		}
	}

	s.entries[state] = memoryEntry{verifier: verifier, expiresAt: now.Add(ttl)}

	return nil
}

func (s *memoryStore) Consume(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return "", service.ErrOAuthStateNotFound
	}
	delete(s.entries, state)

	if !entry.expiresAt.After(s.now()) {
		return "", service.ErrOAuthStateNotFound
	}

	return entry.verifier, nil
}
