package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseIfOwner deletes a claim only while it still belongs to the caller.
var releaseIfOwner = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TxLocks marks transaction hashes as being processed so concurrent
// submissions of the same hash are turned away early.
type TxLocks struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTxLocks creates a lock set whose claims expire after ttl.
func NewTxLocks(rdb *redis.Client, ttl time.Duration) *TxLocks {
	return &TxLocks{rdb: rdb, ttl: ttl}
}

func txKey(hash string) string {
	return "crypto:tx:" + hash
}

// Acquire claims hash for owner. It returns false when someone else holds it.
func (l *TxLocks) Acquire(ctx context.Context, hash, owner string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, txKey(hash), owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim transaction: %w", err)
	}
	return ok, nil
}

// Release drops owner's claim on hash. A claim that expired and was taken
// by someone else is left alone.
func (l *TxLocks) Release(ctx context.Context, hash, owner string) error {
	if err := releaseIfOwner.Run(ctx, l.rdb, []string{txKey(hash)}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release transaction claim: %w", err)
	}
	return nil
}
