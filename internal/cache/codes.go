package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// incrAttempts counts a verification attempt against a live code. The
// counter expires together with the code. Returns -1 when the code is gone.
var incrAttempts = redis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
	return -1
end
local n = redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ttl)
return n
`)

// CodeStore keeps hashed verification codes with an expiry.
type CodeStore struct {
	rdb *redis.Client
}

// NewCodeStore creates a CodeStore.
func NewCodeStore(rdb *redis.Client) *CodeStore {
	return &CodeStore{rdb: rdb}
}

func codeKey(channel, destination string) string {
	return fmt.Sprintf("verify:%s:%s", channel, strings.ToLower(destination))
}

func attemptsKey(channel, destination string) string {
	return codeKey(channel, destination) + ":attempts"
}

// Save stores a fresh code, replacing any previous one and its attempt count.
func (s *CodeStore) Save(ctx context.Context, channel, destination string, code domain.StoredCode, ttl time.Duration) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal code: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey(channel, destination), data, ttl)
		pipe.Del(ctx, attemptsKey(channel, destination))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

// Get returns the stored code, or nil when none exists or it has expired.
func (s *CodeStore) Get(ctx context.Context, channel, destination string) (*domain.StoredCode, error) {
	data, err := s.rdb.Get(ctx, codeKey(channel, destination)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get code: %w", err)
	}

	var code domain.StoredCode
	if err := json.Unmarshal(data, &code); err != nil {
		return nil, fmt.Errorf("failed to unmarshal code: %w", err)
	}
	return &code, nil
}

// IncrAttempts atomically records one more attempt and returns the new
// count, or -1 when the code no longer exists.
func (s *CodeStore) IncrAttempts(ctx context.Context, channel, destination string) (int64, error) {
	keys := []string{codeKey(channel, destination), attemptsKey(channel, destination)}
	n, err := incrAttempts.Run(ctx, s.rdb, keys).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to count attempt: %w", err)
	}
	return n, nil
}

// Delete removes the stored code and its attempt count.
func (s *CodeStore) Delete(ctx context.Context, channel, destination string) error {
	if err := s.rdb.Del(ctx, codeKey(channel, destination), attemptsKey(channel, destination)).Err(); err != nil {
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}
