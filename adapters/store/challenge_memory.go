package store

import (
	"context"
	"sync"
	"time"

	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/ports"
)

// MemoryChallengeStore keeps pending challenges in process memory.
// A restart drops every outstanding challenge; clients simply ask for a new one.
type MemoryChallengeStore struct {
	challenges map[string]core.Challenge
	mu         sync.Mutex
	now        func() time.Time
}

// NewMemoryChallengeStore creates a new in-memory challenge store
func NewMemoryChallengeStore(opts ...Option) *MemoryChallengeStore {
	o := buildOptions(opts)
	return &MemoryChallengeStore{
		challenges: make(map[string]core.Challenge),
		now:        o.now,
	}
}

var _ ports.ChallengeStore = (*MemoryChallengeStore)(nil)

// Put stores a copy of the challenge under its address
func (s *MemoryChallengeStore) Put(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.Address] = *challenge
	return nil
}

// Get returns the live challenge for address
func (s *MemoryChallengeStore) Get(ctx context.Context, address string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[address]
	if !ok || c.Expired(s.now()) {
		return nil, core.ErrChallengeNotFound
	}
	return &c, nil
}

// Take removes the challenge for address and returns it if it was still live
func (s *MemoryChallengeStore) Take(ctx context.Context, address string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[address]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}
	delete(s.challenges, address)

	if c.Expired(s.now()) {
		return nil, core.ErrChallengeNotFound
	}
	return &c, nil
}

// Delete drops the challenge for address, if any
func (s *MemoryChallengeStore) Delete(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, address)
	return nil
}

// SweepExpired drops every expired challenge
func (s *MemoryChallengeStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for address, c := range s.challenges {
		if c.Expired(now) {
			delete(s.challenges, address)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored challenges, expired ones included
func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.challenges)
}
