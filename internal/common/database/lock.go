// internal/common/database/lock.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ApplicantLocker serializes workflow transitions per applicant. The external
// store has no transactions, so the tag swap and metafield writes of one
// transition must not interleave with another writer in this process.
//
// The lock is advisory: SET NX with a TTL, released only by the holder
// (value-checked delete). A crashed holder is covered by the TTL.
type ApplicantLocker struct {
	redis *RedisClient
	ttl   time.Duration
	wait  time.Duration
}

const (
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 5 * time.Second
	lockPollDelay   = 100 * time.Millisecond
)

// releaseScript deletes the key only when the stored value matches, so a
// holder whose TTL already lapsed cannot release someone else's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

func NewApplicantLocker(redis *RedisClient) *ApplicantLocker {
	return &ApplicantLocker{
		redis: redis,
		ttl:   defaultLockTTL,
		wait:  defaultLockWait,
	}
}

// Lock acquires the per-applicant lock, polling until acquired or the wait
// window closes. It returns a release func. When redis itself is
// unreachable the caller receives the error and decides the fallback.
func (l *ApplicantLocker) Lock(ctx context.Context, customerID string) (release func(), err error) {
	key := "verify:lock:" + customerID
	value := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.redis.SetNX(ctx, key, value, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, context.DeadlineExceeded
		}
		select {
		case <-time.After(lockPollDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, _ = l.redis.Eval(releaseCtx, releaseScript, []string{key}, value)
	}, nil
}

// TokenConsumptionStore records verification tokens that have already been
// accepted, making them single-use. Entries expire with the remaining token
// validity, so the set stays bounded without a cleanup job.
type TokenConsumptionStore struct {
	redis *RedisClient
}

func NewTokenConsumptionStore(redis *RedisClient) *TokenConsumptionStore {
	return &TokenConsumptionStore{redis: redis}
}

// Consume marks a token id as used. The first caller gets true; replays get
// false.
func (s *TokenConsumptionStore) Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.redis.SetNX(ctx, "verify:consumed:"+tokenID, 1, ttl)
}
