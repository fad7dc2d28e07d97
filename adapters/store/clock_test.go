package store

import (
	"sync"
	"time"

	"github.com/sparksclub/walletauth/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func challengeFor(address, message string, expiresAt time.Time) *core.Challenge {
	return &core.Challenge{
		ID:         "id-" + message,
		Address:    address,
		Message:    message,
		Nonce:      message,
		WalletKind: core.WalletPhantom,
		IssuedAt:   expiresAt.Add(-5 * time.Minute),
		ExpiresAt:  expiresAt,
	}
}
