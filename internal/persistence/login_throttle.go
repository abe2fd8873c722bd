package persistence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginFailPrefix = "helpdesk:login_fail:"

// LoginThrottle counts failed login attempts per username in redis. The
// counter expires on its own after the lockout window.
type LoginThrottle struct {
	client *redis.Client
}

// NewLoginThrottle builds the throttle on top of an existing connection.
func NewLoginThrottle(r *Redis) *LoginThrottle {
	return &LoginThrottle{client: r.Client}
}

// RecordFailure increments the failure counter and returns the new count.
// The expiry is set only when the counter is created so the window does not
// slide on every attempt.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string, window time.Duration) (int64, error) {
	key := loginFailPrefix + username
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Failures returns the current failure count for a username.
func (t *LoginThrottle) Failures(ctx context.Context, username string) (int64, error) {
	count, err := t.client.Get(ctx, loginFailPrefix+username).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	return t.client.Del(ctx, loginFailPrefix+username).Err()
}
