// Package users holds the UserStore implementations used by the auth service.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/ports"
)

const DefaultRole = "user"

// MemoryStore keeps users in process memory, for development and tests
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*core.User
	byAddress map[string]string
	now       func() time.Time
}

// NewMemoryStore creates a new in-memory user store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*core.User),
		byAddress: make(map[string]string),
		now:       time.Now,
	}
}

var _ ports.UserStore = (*MemoryStore)(nil)

// FindOrCreateByWalletAddress returns the user owning address, creating it on first login
func (s *MemoryStore) FindOrCreateByWalletAddress(ctx context.Context, address string, kind core.WalletKind) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if id, ok := s.byAddress[address]; ok {
		u := s.byID[id]
		u.LastLoginAt = now
		u.WalletKind = kind
		cp := *u
		return &cp, nil
	}

	u := &core.User{
		ID:            uuid.NewString(),
		WalletAddress: address,
		WalletKind:    kind,
		Role:          DefaultRole,
		CreatedAt:     now,
		LastLoginAt:   now,
	}
	s.byID[u.ID] = u
	s.byAddress[address] = u.ID

	cp := *u
	return &cp, nil
}

// GetByID returns core.ErrUserNotFound for unknown ids
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// Len returns the number of known users
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
