package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sparksclub/walletauth/adapters/store"
	"github.com/sparksclub/walletauth/core"
	"github.com/sparksclub/walletauth/internal/logging"
	"github.com/sparksclub/walletauth/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) SweepExpired(context.Context) (int, error) {
	return 0, errors.New("redis unavailable")
}

func TestSweeperRemovesExpiredChallenges(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Now()}
	challenges := store.NewMemoryChallengeStore(store.WithClock(clock.Now))

	for i, addr := range []string{"a", "b", "c"} {
		require.NoError(t, challenges.Put(ctx, &core.Challenge{
			Address:   addr,
			Message:   addr,
			ExpiresAt: clock.Now().Add(time.Duration(i+1) * time.Minute),
		}))
	}
	clock.Advance(2 * time.Minute)

	m := metrics.New()
	s, err := NewSweeper(5*time.Minute, logging.Discard(), m, challenges, brokenStore{})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Sweep(ctx))
	assert.Equal(t, 1, challenges.Len())

	out, err := testutil.GatherAndCount(m.Registry, "sparks_auth_challenge_swept_total")
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func TestSweeperStartStop(t *testing.T) {
	s, err := NewSweeper(time.Second, logging.Discard(), nil, store.NewMemoryChallengeStore())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSweeperRejectsBadInterval(t *testing.T) {
	_, err := NewSweeper(0, logging.Discard(), nil)
	assert.Error(t, err)
}
