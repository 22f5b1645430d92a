package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "0xabababababababababababababababababababababababababababababababab"

func TestTxLocks_AcquireConflictRelease(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locks := NewTxLocks(rdb, time.Minute)
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, testHash, "owner-a")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := mr.Get(txKey(testHash))
	require.NoError(t, err)
	assert.Equal(t, "owner-a", got)

	ok, err = locks.Acquire(ctx, testHash, "owner-b")
	require.NoError(t, err)
	assert.False(t, ok, "second claim is turned away")

	require.NoError(t, locks.Release(ctx, testHash, "owner-a"))
	assert.False(t, mr.Exists(txKey(testHash)))

	ok, err = locks.Acquire(ctx, testHash, "owner-b")
	require.NoError(t, err)
	assert.True(t, ok, "released hash can be claimed again")
}

func TestTxLocks_ReleaseByOtherOwnerKeepsClaim(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locks := NewTxLocks(rdb, time.Minute)
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, testHash, "owner-a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locks.Release(ctx, testHash, "owner-b"))
	got, err := mr.Get(txKey(testHash))
	require.NoError(t, err)
	assert.Equal(t, "owner-a", got)
}

func TestTxLocks_ClaimExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locks := NewTxLocks(rdb, 30*time.Second)
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, testHash, "owner-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, mr.TTL(txKey(testHash)))

	mr.FastForward(31 * time.Second)

	// A stale release after expiry must not drop the new holder's claim.
	ok, err = locks.Acquire(ctx, testHash, "owner-b")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, locks.Release(ctx, testHash, "owner-a"))
	got, err := mr.Get(txKey(testHash))
	require.NoError(t, err)
	assert.Equal(t, "owner-b", got)
}

func TestTxLocks_RedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	locks := NewTxLocks(rdb, time.Minute)
	mr.Close()

	_, err := locks.Acquire(context.Background(), testHash, "owner-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim transaction")
}
