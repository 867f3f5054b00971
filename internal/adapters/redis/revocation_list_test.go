package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calluna-labs/authgate/internal/testutil"
)

func TestRevocationList_RevokeAndCheck(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	list := NewRevocationList(client)
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Now().Add(30*time.Minute)))

	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Other token IDs are unaffected.
	revoked, err = list.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationList_ExpiredDeadlineIsNoop(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	list := NewRevocationList(client)
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)))

	revoked, err := list.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationList_EmptyTokenID(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	list := NewRevocationList(client)
	ctx := context.Background()

	assert.Error(t, list.Revoke(ctx, "", time.Now().Add(time.Minute)))

	revoked, err := list.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}
