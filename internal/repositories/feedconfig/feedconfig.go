package feedconfig

import (
	"context"
	"errors"

	"github.com/davidnys/redgrid/internal/domain"
)

var (
	ErrNotFound      = errors.New("feed config not found")
	ErrAlreadyExists = errors.New("feed config already exists")
)

//go:generate go run go.uber.org/mock/mockgen -source=feedconfig.go -destination=mocks/mock.go

// Repository persists the ordered list of feed configurations.
type Repository interface {
	Create(ctx context.Context, cfg domain.FeedConfig) error
	Update(ctx context.Context, cfg domain.FeedConfig) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.FeedConfig, error)
	// ReplaceAll swaps the entire stored set atomically, used by
	// reset-to-defaults and profile switching.
	ReplaceAll(ctx context.Context, cfgs []domain.FeedConfig) error
}
