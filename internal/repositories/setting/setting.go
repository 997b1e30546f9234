package setting

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("setting not found")

// Well-known setting keys.
const (
	KeyNsfwMode       = "nsfw_mode"
	KeyCurrentProfile = "current_profile"
)

//go:generate go run go.uber.org/mock/mockgen -source=setting.go -destination=mocks/mock.go

// Repository is a small key/value store for global settings.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
