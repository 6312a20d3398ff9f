package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCodeStore_SingleUse(t *testing.T) {
	t.Parallel()

	s := NewMemCodeStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Put(ctx, "a@b.c", "123456", now.Add(5*time.Minute)))

	ok, err := s.Claim(ctx, "a@b.c", "123456", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// второй раз тот же код не проходит
	ok, err = s.Claim(ctx, "a@b.c", "123456", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemCodeStore_UpsertOverwrites(t *testing.T) {
	t.Parallel()

	s := NewMemCodeStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Put(ctx, "a@b.c", "111111", now.Add(time.Minute)))
	require.NoError(t, s.Put(ctx, "a@b.c", "222222", now.Add(time.Minute)))

	ok, _ := s.Claim(ctx, "a@b.c", "111111", now)
	assert.False(t, ok, "старый код не должен приниматься")
	ok, _ = s.Claim(ctx, "a@b.c", "222222", now)
	assert.True(t, ok, "принимается только последний код")
}

func TestMemCodeStore_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	s := NewMemCodeStore()
	ctx := context.Background()
	expiry := time.Now().Add(time.Minute)

	require.NoError(t, s.Put(ctx, "a@b.c", "123456", expiry))

	// ровно в момент expiry — уже поздно
	ok, _ := s.Claim(ctx, "a@b.c", "123456", expiry)
	assert.False(t, ok)

	// запись удалена как истёкшая, повтор за секунду до — тоже мимо
	require.NoError(t, s.Put(ctx, "a@b.c", "123456", expiry))
	ok, _ = s.Claim(ctx, "a@b.c", "123456", expiry.Add(-time.Second))
	assert.True(t, ok)
}

func newRedisStore(t *testing.T) *RedisCodeStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCodeStore(rdb)
}

func TestRedisCodeStore_ClaimOnce(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Put(ctx, "a@b.c", "654321", now.Add(5*time.Minute)))

	ok, err := s.Claim(ctx, "a@b.c", "654321", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "a@b.c", "654321", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCodeStore_WrongCode(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Put(ctx, "a@b.c", "654321", now.Add(5*time.Minute)))

	ok, err := s.Claim(ctx, "a@b.c", "000000", now)
	require.NoError(t, err)
	assert.False(t, ok)

	// неверная попытка не сжигает код
	ok, err = s.Claim(ctx, "a@b.c", "654321", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCodeStore_OverwriteKeepsSingleLiveCode(t *testing.T) {
	s := newRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Put(ctx, "a@b.c", "111111", now.Add(time.Minute)))
	require.NoError(t, s.Put(ctx, "a@b.c", "222222", now.Add(time.Minute)))

	ok, _ := s.Claim(ctx, "a@b.c", "111111", now)
	assert.False(t, ok)
	ok, _ = s.Claim(ctx, "a@b.c", "222222", now)
	assert.True(t, ok)
}
