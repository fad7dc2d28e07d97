package store

import (
	"context"
	"sync"
	"time"

	"github.com/sparksclub/walletauth/ports"
)

// MemoryRevocationStore is an in-memory implementation of the RevocationStore interface
type MemoryRevocationStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.Mutex
	now               func() time.Time
}

// NewMemoryRevocationStore creates a new in-memory revocation store
func NewMemoryRevocationStore(opts ...Option) *MemoryRevocationStore {
	o := buildOptions(opts)
	return &MemoryRevocationStore{
		invalidatedTokens: make(map[string]time.Time),
		now:               o.now,
	}
}

var _ ports.RevocationStore = (*MemoryRevocationStore)(nil)

// InvalidateToken marks a token as invalidated until expiry elapses
func (s *MemoryRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime := s.now().Add(expiry)
	if current, ok := s.invalidatedTokens[tokenID]; ok && current.After(expiryTime) {
		return nil
	}
	s.invalidatedTokens[tokenID] = expiryTime
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	// The token itself has expired by now, so the entry is no longer needed
	if !s.now().Before(expiryTime) {
		delete(s.invalidatedTokens, tokenID)
		return false, nil
	}

	return true, nil
}

// SweepExpired drops revocation entries whose tokens have expired anyway
func (s *MemoryRevocationStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, exp := range s.invalidatedTokens {
		if !now.Before(exp) {
			delete(s.invalidatedTokens, id)
			removed++
		}
	}
	return removed, nil
}
