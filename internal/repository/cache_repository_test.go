package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

func newCache(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, nil), mr
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	repo, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "exams:list", []string{"a", "b"}, time.Minute))
	assert.True(t, mr.Exists("examprep:exams:list"))

	var got []string
	require.NoError(t, repo.Get(ctx, "exams:list", &got))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestCacheExpiry(t *testing.T) {
	repo, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "exams:list", 1, time.Second))
	mr.FastForward(2 * time.Second)

	var got int
	assert.ErrorIs(t, repo.Get(ctx, "exams:list", &got), appErrors.ErrCacheMiss)
}

func TestCacheDeleteByPattern(t *testing.T) {
	repo, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "exams:list", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "exams:e1", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "other", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "exams:*"))
	assert.False(t, mr.Exists("examprep:exams:list"))
	assert.False(t, mr.Exists("examprep:exams:e1"))
	assert.True(t, mr.Exists("examprep:other"))
}

func TestCacheWithoutClientIsMiss(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var v int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &v), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
}
