package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

func TestLRUCacheRoundTripAndExpiry(t *testing.T) {
	cache, err := NewLRUCacheRepository(8)
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "slots:list:a", []string{"x"}, time.Minute))
	var out []string
	require.NoError(t, cache.Get(ctx, "slots:list:a", &out))
	assert.Equal(t, []string{"x"}, out)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, cache.Get(ctx, "slots:list:a", &out), appErrors.ErrCacheMiss)
}

func TestLRUCacheDeleteByPattern(t *testing.T) {
	cache, err := NewLRUCacheRepository(8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "slots:list:a", 1, 0))
	require.NoError(t, cache.Set(ctx, "slots:list:b", 2, 0))
	require.NoError(t, cache.Set(ctx, "timetable:c", 3, 0))

	require.NoError(t, cache.DeleteByPattern(ctx, "slots:*"))

	var v int
	assert.ErrorIs(t, cache.Get(ctx, "slots:list:a", &v), appErrors.ErrCacheMiss)
	require.NoError(t, cache.Get(ctx, "timetable:c", &v))
	assert.Equal(t, 3, v)
}

func TestLRUCacheDeleteByPatternSpansSlashes(t *testing.T) {
	cache, err := NewLRUCacheRepository(8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "slots:list:a/b::0::1:20", 1, 0))
	require.NoError(t, cache.Set(ctx, "slots:week:x/y", 2, 0))
	require.NoError(t, cache.Set(ctx, "timetable:c/d:2", 3, 0))

	require.NoError(t, cache.DeleteByPattern(ctx, "slots:*"))

	var v int
	assert.ErrorIs(t, cache.Get(ctx, "slots:list:a/b::0::1:20", &v), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, cache.Get(ctx, "slots:week:x/y", &v), appErrors.ErrCacheMiss)
	require.NoError(t, cache.Get(ctx, "timetable:c/d:2", &v))

	require.NoError(t, cache.DeleteByPattern(ctx, "timetable:?/d:2"))
	assert.ErrorIs(t, cache.Get(ctx, "timetable:c/d:2", &v), appErrors.ErrCacheMiss)

	assert.Error(t, cache.DeleteByPattern(ctx, "slots:[a-"))
}
