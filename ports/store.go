package ports

import (
	"context"
	"time"

	"github.com/sparksclub/walletauth/core"
)

// ChallengeStore keeps at most one outstanding challenge per wallet address
type ChallengeStore interface {
	// Put stores the challenge, replacing any previous one for the same address
	Put(ctx context.Context, challenge *core.Challenge) error
	// Get returns core.ErrChallengeNotFound for missing or expired challenges
	Get(ctx context.Context, address string) (*core.Challenge, error)
	// Take atomically fetches and removes the challenge for address
	Take(ctx context.Context, address string) (*core.Challenge, error)
	Delete(ctx context.Context, address string) error
	// SweepExpired removes expired challenges and reports how many were dropped
	SweepExpired(ctx context.Context) (int, error)
}

// RevocationStore interface for session invalidation
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// UserStore resolves wallet addresses to user identities
type UserStore interface {
	// FindOrCreateByWalletAddress must be atomic for concurrent first logins of one address
	FindOrCreateByWalletAddress(ctx context.Context, address string, kind core.WalletKind) (*core.User, error)
	GetByID(ctx context.Context, id string) (*core.User, error)
}
