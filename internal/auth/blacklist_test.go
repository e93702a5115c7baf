package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache is an in-memory Cache used by the auth tests.  TTLs are recorded
// but not enforced; expiry behavior belongs to Redis.
type fakeCache struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) Del(_ context.Context, key string) error {
	delete(f.data, key)
	delete(f.ttls, key)
	return nil
}

func (f *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.ttls[key] = ttl
	return nil
}

func TestBlacklistStore(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	store := NewBlacklistStore(cache)

	revoked, err := store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Blacklist(ctx, "jti-1"))

	revoked, err = store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Entries self-expire after 24 hours.
	assert.Equal(t, 24*time.Hour, cache.ttls["jti-1"])

	// An unrelated jti stays valid.
	revoked, err = store.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklistStoreWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := NewBlacklistStore(nil)

	require.NoError(t, store.Blacklist(ctx, "jti-1"))
	revoked, err := store.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestLoginLimiter(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	limiter := NewLoginLimiter(cache)

	for i := 0; i < maxFailedLogins-1; i++ {
		require.NoError(t, limiter.RecordFailure(ctx, "a@b.c"))
		blocked, err := limiter.Blocked(ctx, "a@b.c")
		require.NoError(t, err)
		assert.False(t, blocked, "attempt %d must not block", i+1)
	}

	require.NoError(t, limiter.RecordFailure(ctx, "a@b.c"))
	blocked, err := limiter.Blocked(ctx, "a@b.c")
	require.NoError(t, err)
	assert.True(t, blocked)

	// The window starts with the first failure.
	assert.Equal(t, failedLoginWindow, cache.ttls[attemptsKey("a@b.c")])

	// Other emails are unaffected.
	blocked, err = limiter.Blocked(ctx, "other@b.c")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, limiter.Reset(ctx, "a@b.c"))
	blocked, err = limiter.Blocked(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestLoginLimiterWithoutCache(t *testing.T) {
	ctx := context.Background()
	limiter := NewLoginLimiter(nil)

	require.NoError(t, limiter.RecordFailure(ctx, "a@b.c"))
	blocked, err := limiter.Blocked(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, blocked)
}
