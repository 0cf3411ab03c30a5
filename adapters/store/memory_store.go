package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

// MemoryStore is an in-memory implementation of the NonceStore
// interface, intended for tests and single-process development runs.
type MemoryStore struct {
	records map[string]time.Time
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]time.Time),
	}
}

var _ ports.NonceStore = (*MemoryStore)(nil)

// Create stores a record for the token
func (s *MemoryStore) Create(ctx context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[token] = expiresAt
	return nil
}

// FindUnexpired returns the record for the token if it has not expired
func (s *MemoryStore) FindUnexpired(ctx context.Context, token string, now time.Time) (*core.NonceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, exists := s.records[token]
	if !exists || !expiresAt.After(now) {
		return nil, nil
	}

	return &core.NonceRecord{Token: token, ExpiresAt: expiresAt}, nil
}

// Consume deletes the token's record if it exists and is unexpired.
// The lookup and delete happen under one lock so concurrent consumers
// of the same token cannot both claim it.
func (s *MemoryStore) Consume(ctx context.Context, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, exists := s.records[token]
	if !exists || !expiresAt.After(now) {
		return false, nil
	}

	delete(s.records, token)
	return true, nil
}

// DeleteIfPresent removes the token's record regardless of expiry
func (s *MemoryStore) DeleteIfPresent(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[token]; !exists {
		return false, nil
	}

	delete(s.records, token)
	return true, nil
}

// DeleteAllExpired removes every record expired at now
func (s *MemoryStore) DeleteAllExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, expiresAt := range s.records {
		if !expiresAt.After(now) {
			delete(s.records, token)
			count++
		}
	}

	return count, nil
}
