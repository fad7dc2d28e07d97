package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryRevocationStore(WithClock(clock.Now))

	revoked, err := s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.InvalidateToken(ctx, "jti", time.Hour))
	revoked, err = s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	// a shorter second invalidation must not shorten the first
	require.NoError(t, s.InvalidateToken(ctx, "jti", time.Minute))
	clock.Advance(30 * time.Minute)
	revoked, err = s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	clock.Advance(time.Hour)
	removed, err := s.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestRedisRevocationStore(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := NewRedisRevocationStore(rdb, "sparks:")

	require.NoError(t, s.InvalidateToken(ctx, "jti", time.Hour))
	revoked, err := s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.InvalidateToken(ctx, "expired", 0))
	assert.False(t, mr.Exists("sparks:revoked:expired"))
}
