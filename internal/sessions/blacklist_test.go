package sessions

import (
	"context"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBlacklist(t *testing.T) (*Blacklist, *mr.Miniredis) {
	t.Helper()
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBlacklist(client), m
}

func TestBlacklist_RevokedUntilTTL(t *testing.T) {
	bl, m := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "access-token-1", 2*time.Second))
	ok, err := bl.IsRevoked(ctx, "access-token-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = bl.IsRevoked(ctx, "access-token-2")
	require.NoError(t, err)
	require.False(t, ok)

	m.FastForward(3 * time.Second)
	ok, err = bl.IsRevoked(ctx, "access-token-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBlacklist_KeysDoNotHoldRawToken(t *testing.T) {
	bl, m := newTestBlacklist(t)
	require.NoError(t, bl.Revoke(context.Background(), "secret-token", time.Minute))

	keys := m.Keys()
	require.Len(t, keys, 1)
	require.True(t, strings.HasPrefix(keys[0], blacklistPrefix))
	require.NotContains(t, keys[0], "secret-token")
	require.Equal(t, blacklistKey("secret-token"), keys[0])
}

func TestBlacklist_ExpiredTokenIsNotStored(t *testing.T) {
	bl, m := newTestBlacklist(t)
	require.NoError(t, bl.Revoke(context.Background(), "stale", 0))
	require.Empty(t, m.Keys())
}

func TestBlacklist_InstancesAreIndependent(t *testing.T) {
	a, _ := newTestBlacklist(t)
	b, _ := newTestBlacklist(t)
	ctx := context.Background()

	require.NoError(t, a.Revoke(ctx, "tok", time.Minute))
	ok, err := b.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBlacklist_WithoutClientIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, bl := range []*Blacklist{nil, NewBlacklist(nil)} {
		require.NoError(t, bl.Revoke(ctx, "no-client-token", time.Second))
		ok, err := bl.IsRevoked(ctx, "no-client-token")
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestBlacklist_RedisDownIsAnError(t *testing.T) {
	bl, m := newTestBlacklist(t)
	m.Close()
	_, err := bl.IsRevoked(context.Background(), "tok")
	require.Error(t, err)
}
