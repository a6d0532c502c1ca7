package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationsLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryRevocations(func() time.Time { return now })
	ctx := context.Background()

	revoked, err := m.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	revoked, err = m.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = m.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry expires with the token")
	assert.Equal(t, 0, m.Len())
}

func TestMemoryRevocationsIgnoresExpiredTokens(t *testing.T) {
	now := time.Now()
	m := NewMemoryRevocations(func() time.Time { return now })

	require.NoError(t, m.Revoke(context.Background(), "old", now.Add(-time.Minute)))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryRevocationsSweepsOnRevoke(t *testing.T) {
	now := time.Now()
	m := NewMemoryRevocations(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Revoke(ctx, "a", now.Add(time.Minute)))
	now = now.Add(2 * time.Minute)
	require.NoError(t, m.Revoke(ctx, "b", now.Add(time.Minute)))

	assert.Equal(t, 1, m.Len())
}
