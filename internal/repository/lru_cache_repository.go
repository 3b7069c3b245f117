package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

type lruEntry struct {
	payload   []byte
	expiresAt time.Time
}

// LRUCacheRepository is an in-process cache with the same contract as
// CacheRepository, used when no Redis is configured.
type LRUCacheRepository struct {
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time
}

// NewLRUCacheRepository builds a cache bounded to size entries.
func NewLRUCacheRepository(size int) (*LRUCacheRepository, error) {
	cache, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUCacheRepository{cache: cache, now: time.Now}, nil
}

// Get unmarshals a live entry into dest or returns appErrors.ErrCacheMiss.
func (r *LRUCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	entry, ok := r.cache.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		r.cache.Remove(key)
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value for ttl; a non-positive ttl never expires.
func (r *LRUCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	entry := lruEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.cache.Add(key, entry)
	return nil
}

// DeleteByPattern evicts keys matching a glob pattern. As in Redis, a
// trailing * matches any suffix, including one containing '/'.
func (r *LRUCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	match, err := globMatcher(pattern)
	if err != nil {
		return err
	}
	for _, key := range r.cache.Keys() {
		if match(key) {
			r.cache.Remove(key)
		}
	}
	return nil
}

func globMatcher(pattern string) (func(string) bool, error) {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok && !strings.ContainsAny(prefix, `*?[\`) {
		return func(key string) bool { return strings.HasPrefix(key, prefix) }, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("match cache pattern %s: %w", pattern, err)
	}
	return func(key string) bool {
		matched, _ := path.Match(pattern, key)
		return matched
	}, nil
}

// Close purges the cache.
func (r *LRUCacheRepository) Close() error {
	r.cache.Purge()
	return nil
}
