package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-booking-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

// invalidatingRepo runs onSet after each write reaches the backend.
type invalidatingRepo struct {
	CacheRepository
	onSet func()
}

func (r *invalidatingRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	err := r.CacheRepository.Set(ctx, key, value, ttl)
	if r.onSet != nil {
		onSet := r.onSet
		r.onSet = nil
		onSet()
	}
	return err
}

func newLRUCache(t *testing.T) (*CacheService, CacheRepository) {
	t.Helper()
	lru, err := repository.NewLRUCacheRepository(16)
	require.NoError(t, err)
	return NewCacheService(lru, nil, time.Minute, nil), lru
}

func TestCacheFillStoresWhenNothingInvalidated(t *testing.T) {
	cache, _ := newLRUCache(t)
	ctx := context.Background()

	epoch := cache.Epoch()
	assert.True(t, cache.Fill(ctx, "timetable:flu:2", []int{1, 2}, epoch))

	var out []int
	require.True(t, cache.Get(ctx, "timetable:flu:2", &out))
	assert.Equal(t, []int{1, 2}, out)
}

func TestCacheFillSkippedAfterInvalidate(t *testing.T) {
	cache, _ := newLRUCache(t)
	ctx := context.Background()

	epoch := cache.Epoch()
	cache.Invalidate(ctx, cacheTimetablePrefix+"*")
	assert.False(t, cache.Fill(ctx, "timetable:flu:2", []int{1}, epoch))

	var out []int
	assert.False(t, cache.Get(ctx, "timetable:flu:2", &out))
}

func TestCacheFillRolledBackWhenInvalidatedDuringWrite(t *testing.T) {
	lru, err := repository.NewLRUCacheRepository(16)
	require.NoError(t, err)
	repo := &invalidatingRepo{CacheRepository: lru}
	cache := NewCacheService(repo, nil, time.Minute, nil)
	ctx := context.Background()
	repo.onSet = func() { cache.Invalidate(ctx, cacheSlotsPrefix+"*") }

	epoch := cache.Epoch()
	assert.False(t, cache.Fill(ctx, "timetable:flu:2", []int{1}, epoch))

	var out []int
	assert.ErrorIs(t, lru.Get(ctx, "timetable:flu:2", &out), appErrors.ErrCacheMiss)
}

func TestDisabledCacheIgnoresFill(t *testing.T) {
	var cache *CacheService
	assert.Zero(t, cache.Epoch())
	assert.False(t, cache.Fill(context.Background(), "k", 1, 0))
	cache.Invalidate(context.Background(), "*")
}
