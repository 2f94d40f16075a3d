package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/recipeverse/internal/config"
)

const (
	keyBillingCustomer     = "lock:billing_customer:%s"
	defaultCustomerLockTTL = 30 * time.Second
)

// Deletes the key only while it still holds our token, so an expired lock
// re-acquired by another checkout is left alone.
const releaseIfOwnerScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrCustomerLockHeld = errors.New("billing_customer_lock_held")
	errEmptyLockUser    = errors.New("billing customer lock requires a user id")
)

// CustomerLock serialises billing customer creation for one user across
// instances. It is nil when redis is not configured.
type CustomerLock struct {
	client  *redis.Client
	release *redis.Script
	ttl     time.Duration
}

func NewCustomerLock(cfg config.Config, client *redis.Client) *CustomerLock {
	if client == nil {
		return nil
	}
	ttl := time.Duration(cfg.RateLimit.LockTTLSecs) * time.Second
	if ttl <= 0 {
		ttl = defaultCustomerLockTTL
	}
	return &CustomerLock{
		client:  client,
		release: redis.NewScript(releaseIfOwnerScript),
		ttl:     ttl,
	}
}

// Acquire takes the lock for userID and returns its release func.
// ErrCustomerLockHeld means another checkout for the same user is running.
func (l *CustomerLock) Acquire(ctx context.Context, userID string) (func(context.Context) error, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errEmptyLockUser
	}
	if l == nil {
		return func(context.Context) error { return nil }, nil
	}

	key := customerLockKey(userID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrCustomerLockHeld
	}
	return func(ctx context.Context) error {
		return l.release.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

func customerLockKey(userID string) string {
	return fmt.Sprintf(keyBillingCustomer, userID)
}
