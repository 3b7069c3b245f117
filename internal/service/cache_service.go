package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/clinic-booking-api/pkg/errors"
)

// Cache key namespaces. Patterns passed to Invalidate are globs over these.
const (
	cacheSlotsPrefix     = "slots:"
	cacheTimetablePrefix = "timetable:"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps a cache backend with metrics and fail-open semantics:
// backend errors are logged and treated as misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	epoch      atomic.Uint64
}

// NewCacheService constructs a cache service. A nil repo disables caching.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Get reports whether key was found and decoded into dest.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores value under key using the default TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Set(ctx, key, value, s.defaultTTL); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Epoch returns the invalidation counter. Read it before loading the
// value passed to Fill.
func (s *CacheService) Epoch() uint64 {
	if !s.Enabled() {
		return 0
	}
	return s.epoch.Load()
}

// Fill stores value under key unless an invalidation ran since epoch was
// read. A value that raced an invalidation is never left behind.
func (s *CacheService) Fill(ctx context.Context, key string, value interface{}, epoch uint64) bool {
	if !s.Enabled() || s.epoch.Load() != epoch {
		return false
	}
	s.Set(ctx, key, value)
	if s.epoch.Load() != epoch {
		if err := s.repo.DeleteByPattern(ctx, key); err != nil {
			s.logger.Warn("cache fill rollback failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return true
}

// Invalidate removes every key matching the given patterns. The epoch is
// bumped first so concurrent fills see it.
func (s *CacheService) Invalidate(ctx context.Context, patterns ...string) {
	if !s.Enabled() {
		return
	}
	s.epoch.Add(1)
	for _, pattern := range patterns {
		if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}
