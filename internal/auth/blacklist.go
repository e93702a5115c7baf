package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the narrow key-value surface the auth core needs.  Get returns
// ("", nil) when the key is absent.  The production implementation is
// RedisCache; tests substitute an in-memory fake.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to the Cache interface.
type RedisCache struct{ rdb *redis.Client }

func NewRedisCache(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

const (
	// blacklistTTL bounds how long a revoked jti is remembered.  It must be
	// at least as long as the longest access-token lifetime in production.
	blacklistTTL = 24 * time.Hour
	// blacklistMarker is the value written for a revoked jti; presence is
	// checked by equality.
	blacklistMarker = "blacklisted"
)

// BlacklistStore records revoked token identifiers in the cache.  Entries
// self-expire; there is no removal operation.  A nil cache disables
// blacklisting entirely, mirroring how the service degrades when Redis is
// unreachable at startup.
type BlacklistStore struct{ cache Cache }

func NewBlacklistStore(cache Cache) *BlacklistStore { return &BlacklistStore{cache: cache} }

// Blacklist marks the jti as revoked for the next 24 hours.
func (s *BlacklistStore) Blacklist(ctx context.Context, jti string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, jti, blacklistMarker, blacklistTTL)
}

// IsBlacklisted reports whether the jti was revoked inside the window.
func (s *BlacklistStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	v, err := s.cache.Get(ctx, jti)
	if err != nil {
		return false, err
	}
	return v == blacklistMarker, nil
}

const (
	maxFailedLogins   = 5
	failedLoginWindow = 15 * time.Minute
)

// LoginLimiter counts failed login attempts per email.  After five failures
// inside the window further logins are refused until the key expires.  The
// counter lives in the cache, so it is shared across instances; a nil cache
// turns throttling off.
type LoginLimiter struct{ cache Cache }

func NewLoginLimiter(cache Cache) *LoginLimiter { return &LoginLimiter{cache: cache} }

func attemptsKey(email string) string { return fmt.Sprintf("login_attempts:%s", email) }

// Blocked reports whether the email has exhausted its attempts.
func (l *LoginLimiter) Blocked(ctx context.Context, email string) (bool, error) {
	if l.cache == nil {
		return false, nil
	}
	v, err := l.cache.Get(ctx, attemptsKey(email))
	if err != nil || v == "" {
		return false, err
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return false, nil
	}
	return n >= maxFailedLogins, nil
}

// RecordFailure bumps the counter and starts the expiry window on the first
// failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	if l.cache == nil {
		return nil
	}
	n, err := l.cache.Incr(ctx, attemptsKey(email))
	if err != nil {
		return err
	}
	if n == 1 {
		return l.cache.Expire(ctx, attemptsKey(email), failedLoginWindow)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Del(ctx, attemptsKey(email))
}
