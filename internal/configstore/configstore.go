// Package configstore manages the ordered feed configuration list, the
// global NSFW setting, and named profiles.
package configstore

import (
	"context"
	"fmt"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/query"
	"github.com/davidnys/redgrid/internal/repositories/feedconfig"
	"github.com/davidnys/redgrid/internal/repositories/profile"
	"github.com/davidnys/redgrid/internal/repositories/setting"
	"github.com/davidnys/redgrid/pkg/errors"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/fx"
)

type Service struct {
	configs  feedconfig.Repository
	settings setting.Repository
	profiles profile.Repository
	logger   logger.Logger
	now      func() time.Time
}

type Opts struct {
	fx.In

	Configs  feedconfig.Repository
	Settings setting.Repository
	Profiles profile.Repository
	Logger   logger.Logger
}

func New(opts Opts) *Service {
	return &Service{
		configs:  opts.Configs,
		settings: opts.Settings,
		profiles: opts.Profiles,
		logger:   opts.Logger.WithComponent("ConfigStore"),
		now:      time.Now,
	}
}

// NewID builds a unique config ID from the request parameters plus a
// timestamp, so repeated subreddit/sort pairs still get distinct IDs.
func (s *Service) NewID(cfg domain.FeedConfig) string {
	purpose := "feed"
	if cfg.IsSearch() {
		purpose = "search"
	}
	timeframe := string(cfg.Timeframe)
	if timeframe == "" {
		timeframe = "none"
	}
	return fmt.Sprintf("%s-%s-%s-%s-%d",
		cfg.Subreddit, cfg.SortType, timeframe, purpose, s.now().UnixMilli())
}

// List returns the stored configs in order, seeding defaults on first run
// and discarding persisted data that predates the current schema (entries
// carrying keywords but no ID). The legacy check is a deliberate data-loss
// tradeoff: reinitializing beats field-by-field migration.
func (s *Service) List(ctx context.Context) ([]domain.FeedConfig, error) {
	configs, err := s.configs.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing feed configs")
	}

	if len(configs) == 0 || isLegacyShape(configs) {
		if len(configs) > 0 {
			s.logger.Warn("Discarding feed configs with a legacy schema, reseeding defaults")
		}
		return s.ResetToDefaults(ctx)
	}

	return configs, nil
}

func isLegacyShape(configs []domain.FeedConfig) bool {
	for _, cfg := range configs {
		if cfg.ID != "" {
			return false
		}
	}
	return true
}

// Add validates and persists a new config, assigning its ID.
func (s *Service) Add(ctx context.Context, cfg domain.FeedConfig) (domain.FeedConfig, error) {
	if err := s.validate(cfg); err != nil {
		return domain.FeedConfig{}, err
	}

	existing, err := s.configs.List(ctx)
	if err != nil {
		return domain.FeedConfig{}, errors.Wrap(err, "listing feed configs")
	}

	cfg.ID = s.NewID(cfg)
	cfg.Position = len(existing)
	if err := s.configs.Create(ctx, cfg); err != nil {
		return domain.FeedConfig{}, errors.Wrap(err, "creating feed config")
	}
	return cfg, nil
}

func (s *Service) Update(ctx context.Context, cfg domain.FeedConfig) error {
	if cfg.ID == "" {
		return errors.ErrInvalidInput
	}
	if err := s.validate(cfg); err != nil {
		return err
	}
	if err := s.configs.Update(ctx, cfg); err != nil {
		if errors.Is(err, feedconfig.ErrNotFound) {
			return errors.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.configs.Delete(ctx, id); err != nil {
		if errors.Is(err, feedconfig.ErrNotFound) {
			return errors.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) validate(cfg domain.FeedConfig) error {
	if cfg.Subreddit == "" || cfg.SortType == "" {
		return errors.ErrInvalidInput
	}
	if cfg.Keywords != "" {
		if err := query.Validate(cfg.Keywords); err != nil {
			return errors.Wrap(err, "invalid keyword query")
		}
	}
	return nil
}

// ResetToDefaults replaces the whole list with the fixed default set.
func (s *Service) ResetToDefaults(ctx context.Context) ([]domain.FeedConfig, error) {
	defaults := DefaultConfigs(s.now())
	if err := s.configs.ReplaceAll(ctx, defaults); err != nil {
		return nil, errors.Wrap(err, "resetting feed configs")
	}
	s.logger.Info("Feed configs reset to defaults", "count", len(defaults))
	return defaults, nil
}

// NsfwMode returns the global over-18 setting; SFW when unset.
func (s *Service) NsfwMode(ctx context.Context) domain.NsfwMode {
	value, err := s.settings.Get(ctx, setting.KeyNsfwMode)
	if err != nil {
		if !errors.Is(err, setting.ErrNotFound) {
			s.logger.Error("Failed to read nsfw setting, assuming sfw", "error", err)
		}
		return domain.NsfwModeSfw
	}
	if domain.NsfwMode(value) == domain.NsfwModeNsfw {
		return domain.NsfwModeNsfw
	}
	return domain.NsfwModeSfw
}

func (s *Service) SetNsfwMode(ctx context.Context, mode domain.NsfwMode) error {
	if mode != domain.NsfwModeSfw && mode != domain.NsfwModeNsfw {
		return errors.ErrInvalidInput
	}
	return s.settings.Set(ctx, setting.KeyNsfwMode, string(mode))
}

// CreateProfile snapshots the current configuration under a new name.
func (s *Service) CreateProfile(ctx context.Context, name, description string) (*domain.Profile, error) {
	if name == "" {
		return nil, errors.ErrInvalidInput
	}

	configs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	prof := domain.Profile{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		LastUsed:    now,
		Configuration: domain.ProfileConfiguration{
			FeedConfigs: configs,
			NsfwMode:    s.NsfwMode(ctx),
		},
	}
	if err := s.profiles.Create(ctx, prof); err != nil {
		if errors.Is(err, profile.ErrAlreadyExists) {
			return nil, errors.ErrAlreadyExists
		}
		return nil, errors.Wrap(err, "creating profile")
	}
	return &prof, nil
}

func (s *Service) ListProfiles(ctx context.Context) ([]*domain.Profile, error) {
	return s.profiles.List(ctx)
}

func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	current, _ := s.settings.Get(ctx, setting.KeyCurrentProfile)
	if current == id {
		if err := s.settings.Delete(ctx, setting.KeyCurrentProfile); err != nil {
			return err
		}
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return errors.ErrNotFound
		}
		return err
	}
	return nil
}

// SwitchProfile loads a profile's configuration bundle, replacing the live
// feed configs and NSFW setting, and marks it as the single current profile.
func (s *Service) SwitchProfile(ctx context.Context, id string) (*domain.Profile, error) {
	prof, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}

	configs := prof.Configuration.FeedConfigs
	if isLegacyShape(configs) {
		// Profiles saved before IDs were introduced get defaults instead.
		s.logger.Warn("Profile carries legacy feed configs, loading defaults", "profile", prof.Name)
		configs = DefaultConfigs(s.now())
	}

	if err := s.configs.ReplaceAll(ctx, configs); err != nil {
		return nil, errors.Wrap(err, "loading profile configs")
	}
	if err := s.SetNsfwMode(ctx, prof.Configuration.NsfwMode); err != nil {
		if !errors.Is(err, errors.ErrInvalidInput) {
			return nil, err
		}
		// Profiles without a stored mode stay SFW.
	}
	if err := s.settings.Set(ctx, setting.KeyCurrentProfile, prof.ID); err != nil {
		return nil, err
	}

	prof.LastUsed = s.now()
	if err := s.profiles.Update(ctx, *prof); err != nil {
		s.logger.Error("Failed to stamp profile last_used", "profile", prof.Name, "error", err)
	}
	return prof, nil
}

// CurrentProfileID returns the active profile's ID, or "" when none is set.
func (s *Service) CurrentProfileID(ctx context.Context) string {
	id, err := s.settings.Get(ctx, setting.KeyCurrentProfile)
	if err != nil {
		return ""
	}
	return id
}
