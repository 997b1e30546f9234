// Package cache wraps the durable post-cache store with TTL semantics:
// an expired entry reads as a miss and is purged, while Stale gives the
// poller a best-effort fallback when a refresh fails.
package cache

import (
	"context"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/repositories/postcache"
	"github.com/davidnys/redgrid/pkg/config"
	"github.com/davidnys/redgrid/pkg/errors"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/davidnys/redgrid/pkg/retry"
	"go.uber.org/fx"
)

// CacheKey is the fixed key the merged post list is stored under.
const CacheKey = "posts:v1"

type Service struct {
	repo   postcache.Repository
	logger logger.Logger
	ttl    time.Duration
	now    func() time.Time
}

type Opts struct {
	fx.In

	Repo   postcache.Repository
	Logger logger.Logger
	Config *config.Config
}

func New(opts Opts) *Service {
	return &Service{
		repo:   opts.Repo,
		logger: opts.Logger.WithComponent("PostCache"),
		ttl:    opts.Config.Fetcher.CacheTTL,
		now:    time.Now,
	}
}

// Load returns the cached posts and their stored-at time when a live entry
// exists. An expired entry counts as a miss and is purged.
func (s *Service) Load(ctx context.Context) ([]domain.Post, time.Time, bool) {
	entry, err := s.repo.Get(ctx, CacheKey)
	if err != nil {
		if !errors.Is(err, postcache.ErrNotFound) {
			s.logger.Error("Cache read failed", "error", err)
		}
		return nil, time.Time{}, false
	}

	if !s.now().Before(entry.ExpiresAt) {
		if err := s.repo.Delete(ctx, CacheKey); err != nil {
			s.logger.Warn("Failed to purge expired cache entry", "error", err)
		}
		return nil, time.Time{}, false
	}

	return entry.Posts, entry.UpdatedAt, true
}

// Stale returns whatever the store still holds, expired or not. Used only
// as a fallback after a failed refresh.
func (s *Service) Stale(ctx context.Context) ([]domain.Post, bool) {
	entry, err := s.repo.Get(ctx, CacheKey)
	if err != nil {
		return nil, false
	}
	return entry.Posts, len(entry.Posts) > 0
}

// Store persists a fresh post list with a full TTL. A failed write purges
// the entry and retries once; persistent failure is logged and dropped —
// the app keeps running without cache.
func (s *Service) Store(ctx context.Context, posts []domain.Post) {
	now := s.now()
	entry := postcache.Entry{
		Posts:     posts,
		ExpiresAt: now.Add(s.ttl),
		UpdatedAt: now,
	}

	if err := s.repo.Set(ctx, CacheKey, entry); err == nil {
		return
	}

	if err := s.repo.Delete(ctx, CacheKey); err != nil {
		s.logger.Warn("Cache purge before write retry failed", "error", err)
	}
	err := retry.Do(ctx, s.logger, "post_cache_write", func() error {
		return s.repo.Set(ctx, CacheKey, entry)
	}, retry.WriteConfig())
	if err != nil {
		s.logger.Error("Dropping cache write after retry", "error", err)
	}
}

// Clear removes the cached post list.
func (s *Service) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, CacheKey)
}
