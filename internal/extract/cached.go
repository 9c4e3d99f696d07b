package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/stellasora-tools/buildcore/internal/cache"
	"github.com/stellasora-tools/buildcore/internal/ratelimit"
	"github.com/stellasora-tools/buildcore/pkg/core"
)

// CachedSource puts a cache with a revalidation window and a rate limiter in front
// of another Source. Stale entries are revalidated when the limiter allows it and
// served as-is when revalidation fails.
type CachedSource struct {
	src     Source
	cache   *cache.EffectCache
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewCachedSource wraps src.
func NewCachedSource(src Source, c *cache.EffectCache, limiter *ratelimit.Limiter, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{
		src:     src,
		cache:   c,
		limiter: limiter,
		logger:  logger.With("component", "extract"),
		now:     time.Now,
	}
}

// CacheKey is the cache key for a description list.
func CacheKey(descriptions []string) string {
	return strings.Join(descriptions, "\x1f")
}

// Extract implements Source.
func (s *CachedSource) Extract(ctx context.Context, descriptions []string) ([]core.EffectInfo, error) {
	key := CacheKey(descriptions)
	cached, fresh, ok := s.cache.Get(key, s.now())
	if ok && fresh {
		return cached, nil
	}

	if ok {
		// stale: revalidate only if a slot is free right now
		if !s.limiter.Allow() {
			s.logger.DebugContext(ctx, "serving stale effects, limiter busy", "descriptions", len(descriptions))
			return cached, nil
		}
		effects, err := s.fetch(ctx, key, descriptions)
		if err != nil {
			s.logger.WarnContext(ctx, "revalidation failed, serving stale effects", "error", err)
			return cached, nil
		}
		return effects, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.fetch(ctx, key, descriptions)
}

func (s *CachedSource) fetch(ctx context.Context, key string, descriptions []string) ([]core.EffectInfo, error) {
	effects, err := s.src.Extract(ctx, descriptions)
	if err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			s.limiter.Backoff(rl.RetryAfter)
		}
		return nil, err
	}
	s.cache.Set(key, effects, s.now())
	return effects, nil
}
