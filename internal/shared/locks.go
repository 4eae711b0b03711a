package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates the critical section is already taken.
var ErrLockHeld = errors.New("shared: lock already held")

// ClosingLockKey builds redis keys for closing-voucher generation critical
// sections, scoped per book and period.
func ClosingLockKey(bookID int64, period string) string {
	return fmt.Sprintf("ledger:book:%d:close:%s:lock", bookID, period)
}

// SequenceLockKey builds redis keys serialising voucher number allocation
// per book and voucher type.
func SequenceLockKey(bookID int64, voucherType string) string {
	return fmt.Sprintf("ledger:book:%d:seq:%s:lock", bookID, voucherType)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// BookMutex provides per-book mutual exclusion backed by redis.
type BookMutex struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookMutex constructs a BookMutex with the supplied TTL guarding against
// abandoned locks.
func NewBookMutex(client *redis.Client, ttl time.Duration) *BookMutex {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BookMutex{client: client, ttl: ttl}
}

// Acquire takes the named lock and returns a release function. ErrLockHeld is
// returned when another holder owns the key.
func (m *BookMutex) Acquire(ctx context.Context, key string) (func(), error) {
	if m == nil || m.client == nil {
		// No redis configured: single-process deployments rely on the
		// database transaction for serialisation.
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := m.client.SetNX(ctx, key, token, m.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func() {
		_, _ = releaseScript.Run(context.Background(), m.client, []string{key}, token).Result()
	}
	return release, nil
}
