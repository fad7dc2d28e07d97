package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/ports"
)

type challengeRecord struct {
	ID         string          `json:"id"`
	Address    string          `json:"address"`
	Message    string          `json:"message"`
	Nonce      string          `json:"nonce"`
	WalletKind core.WalletKind `json:"wallet_kind"`
	IssuedAt   time.Time       `json:"issued_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// RedisChallengeStore shares pending challenges between instances.
// Keys carry the challenge lifetime as TTL so redis does the sweeping.
type RedisChallengeStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client redis.UniversalClient, prefix string, opts ...Option) *RedisChallengeStore {
	o := buildOptions(opts)
	return &RedisChallengeStore{
		client: client,
		prefix: prefix + "challenge:",
		now:    o.now,
	}
}

var _ ports.ChallengeStore = (*RedisChallengeStore)(nil)

func (s *RedisChallengeStore) key(address string) string {
	return s.prefix + address
}

// Put stores the challenge with a TTL matching its remaining lifetime
func (s *RedisChallengeStore) Put(ctx context.Context, challenge *core.Challenge) error {
	ttl := challenge.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, challenge.Address)
	}

	payload, err := json.Marshal(challengeRecord{
		ID:         challenge.ID,
		Address:    challenge.Address,
		Message:    challenge.Message,
		Nonce:      challenge.Nonce,
		WalletKind: challenge.WalletKind,
		IssuedAt:   challenge.IssuedAt,
		ExpiresAt:  challenge.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	if err := s.client.Set(ctx, s.key(challenge.Address), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Get reads the challenge without consuming it
func (s *RedisChallengeStore) Get(ctx context.Context, address string) (*core.Challenge, error) {
	payload, err := s.client.Get(ctx, s.key(address)).Bytes()
	return s.decode(payload, err)
}

// Take consumes the challenge with GETDEL, so only one caller can observe it
func (s *RedisChallengeStore) Take(ctx context.Context, address string) (*core.Challenge, error) {
	payload, err := s.client.GetDel(ctx, s.key(address)).Bytes()
	return s.decode(payload, err)
}

// Delete removes the challenge for address
func (s *RedisChallengeStore) Delete(ctx context.Context, address string) error {
	if err := s.client.Del(ctx, s.key(address)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// SweepExpired is a no-op, expired keys are evicted by redis
func (s *RedisChallengeStore) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *RedisChallengeStore) decode(payload []byte, err error) (*core.Challenge, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to read challenge: %w", err)
	}

	var rec challengeRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}

	c := &core.Challenge{
		ID:         rec.ID,
		Address:    rec.Address,
		Message:    rec.Message,
		Nonce:      rec.Nonce,
		WalletKind: rec.WalletKind,
		IssuedAt:   rec.IssuedAt,
		ExpiresAt:  rec.ExpiresAt,
	}
	// TTL granularity can leave a key alive slightly past ExpiresAt
	if c.Expired(s.now()) {
		return nil, core.ErrChallengeNotFound
	}
	return c, nil
}
