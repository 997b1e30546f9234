package postcache

import (
	"context"
	"errors"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
)

var ErrNotFound = errors.New("cache entry not found")

// Entry is one persisted cache record: the full post list plus its expiry.
type Entry struct {
	Posts     []domain.Post
	ExpiresAt time.Time
	UpdatedAt time.Time
}

//go:generate go run go.uber.org/mock/mockgen -source=postcache.go -destination=mocks/mock.go

// Repository is the durable store for cached post lists, keyed by a fixed
// cache key. Expiry decisions belong to the cache service, not the store.
type Repository interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}
