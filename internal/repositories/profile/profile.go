package profile

import (
	"context"
	"errors"

	"github.com/davidnys/redgrid/internal/domain"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrAlreadyExists = errors.New("profile already exists")
)

//go:generate go run go.uber.org/mock/mockgen -source=profile.go -destination=mocks/mock.go

// Repository persists named configuration profiles.
type Repository interface {
	Create(ctx context.Context, p domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	List(ctx context.Context) ([]*domain.Profile, error)
	Update(ctx context.Context, p domain.Profile) error
	Delete(ctx context.Context, id string) error
}
