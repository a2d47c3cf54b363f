package service

import (
	"context"
	"testing"
	"time"

	"github.com/Payphone-Digital/accounts/internal/dto"
	"github.com/Payphone-Digital/accounts/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCacheService(redis.NewFromRedis(rdb), time.Minute, nil), mr
}

func TestCacheService_RoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.GetProfile(ctx, "user-1")
	assert.False(t, ok)

	cache.SetProfile(ctx, &dto.UserResponse{ID: "user-1", Username: "janed", Email: "jane@x.com"})

	got, ok := cache.GetProfile(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, "janed", got.Username)
	assert.Equal(t, time.Minute, mr.TTL("accounts:profile:user-1"))

	cache.InvalidateProfile(ctx, "user-1")
	_, ok = cache.GetProfile(ctx, "user-1")
	assert.False(t, ok)
}

func TestCacheService_ExpiresWithTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.SetProfile(ctx, &dto.UserResponse{ID: "user-1"})
	mr.FastForward(2 * time.Minute)

	_, ok := cache.GetProfile(ctx, "user-1")
	assert.False(t, ok)
}

func TestCacheService_CorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set("accounts:profile:user-1", "{not json"))

	_, ok := cache.GetProfile(context.Background(), "user-1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("accounts:profile:user-1"))
}

func TestCacheService_RedisDownDegradesToMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	_, ok := cache.GetProfile(context.Background(), "user-1")
	assert.False(t, ok)
	cache.SetProfile(context.Background(), &dto.UserResponse{ID: "user-1"})
	cache.InvalidateProfile(context.Background(), "user-1")
}
