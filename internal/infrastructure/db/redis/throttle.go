package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 15 * time.Minute
)

// SigninThrottle counts failed signins per username in Redis and reports a
// lockout once MaxFailures is reached within the lockout window.
// Key format: signin:fail:<username>
type SigninThrottle struct {
	client      redis.Cmdable
	maxFailures int64
	window      time.Duration
}

// NewSigninThrottle creates a SigninThrottle. Non-positive limits fall back
// to 5 failures per 15 minutes.
func NewSigninThrottle(client redis.Cmdable, maxFailures int, window time.Duration) *SigninThrottle {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if window <= 0 {
		window = defaultLockout
	}
	return &SigninThrottle{client: client, maxFailures: int64(maxFailures), window: window}
}

// Locked reports whether key has reached the failure limit.
func (t *SigninThrottle) Locked(ctx context.Context, key string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the failure counter and restarts the lockout
// window.
func (t *SigninThrottle) RecordFailure(ctx context.Context, key string) error {
	k := t.key(key)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the failure counter after a successful signin.
func (t *SigninThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.key(key)).Err(); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}

func (t *SigninThrottle) key(username string) string {
	return "signin:fail:" + username
}
