package configstore

import (
	"context"
	"testing"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/repositories/profile"
	"github.com/davidnys/redgrid/internal/repositories/setting"
	"github.com/davidnys/redgrid/pkg/errors"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfigRepo struct {
	configs []domain.FeedConfig
}

func (f *fakeConfigRepo) Create(_ context.Context, cfg domain.FeedConfig) error {
	f.configs = append(f.configs, cfg)
	return nil
}

func (f *fakeConfigRepo) Update(_ context.Context, cfg domain.FeedConfig) error {
	for i := range f.configs {
		if f.configs[i].ID == cfg.ID {
			f.configs[i] = cfg
			return nil
		}
	}
	return errors.ErrNotFound
}

func (f *fakeConfigRepo) Delete(_ context.Context, id string) error {
	for i := range f.configs {
		if f.configs[i].ID == id {
			f.configs = append(f.configs[:i], f.configs[i+1:]...)
			return nil
		}
	}
	return errors.ErrNotFound
}

func (f *fakeConfigRepo) List(_ context.Context) ([]domain.FeedConfig, error) {
	out := make([]domain.FeedConfig, len(f.configs))
	copy(out, f.configs)
	return out, nil
}

func (f *fakeConfigRepo) ReplaceAll(_ context.Context, cfgs []domain.FeedConfig) error {
	f.configs = append([]domain.FeedConfig(nil), cfgs...)
	return nil
}

type fakeSettingRepo struct {
	values map[string]string
}

func (f *fakeSettingRepo) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", setting.ErrNotFound
}

func (f *fakeSettingRepo) Set(_ context.Context, key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func (f *fakeSettingRepo) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

type fakeProfileRepo struct {
	profiles map[string]domain.Profile
}

func (f *fakeProfileRepo) Create(_ context.Context, p domain.Profile) error {
	if f.profiles == nil {
		f.profiles = map[string]domain.Profile{}
	}
	if _, ok := f.profiles[p.ID]; ok {
		return profile.ErrAlreadyExists
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return &p, nil
	}
	return nil, profile.ErrNotFound
}

func (f *fakeProfileRepo) List(_ context.Context) ([]*domain.Profile, error) {
	var out []*domain.Profile
	for id := range f.profiles {
		p := f.profiles[id]
		out = append(out, &p)
	}
	return out, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, p domain.Profile) error {
	if _, ok := f.profiles[p.ID]; !ok {
		return profile.ErrNotFound
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfileRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.profiles[id]; !ok {
		return profile.ErrNotFound
	}
	delete(f.profiles, id)
	return nil
}

func newTestService() (*Service, *fakeConfigRepo, *fakeSettingRepo, *fakeProfileRepo) {
	configs := &fakeConfigRepo{}
	settings := &fakeSettingRepo{}
	profiles := &fakeProfileRepo{}
	svc := New(Opts{
		Configs:  configs,
		Settings: settings,
		Profiles: profiles,
		Logger:   logger.New(logger.Opts{Env: "development"}),
	})
	return svc, configs, settings, profiles
}

func TestListSeedsDefaultsOnFirstRun(t *testing.T) {
	svc, _, _, _ := newTestService()

	configs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 8)

	ids := map[string]bool{}
	topWeek := 0
	for _, cfg := range configs {
		assert.NotEmpty(t, cfg.ID)
		assert.False(t, ids[cfg.ID], "duplicate id %s", cfg.ID)
		ids[cfg.ID] = true
		if cfg.SortType == domain.SortTop {
			assert.Equal(t, domain.TimeframeWeek, cfg.Timeframe)
			topWeek++
		}
	}
	assert.Equal(t, 1, topWeek)
}

func TestListDiscardsLegacyShape(t *testing.T) {
	svc, configs, _, _ := newTestService()
	// Entries with keywords but no ID are the pre-ID schema.
	configs.configs = []domain.FeedConfig{
		{Subreddit: "pics", SortType: domain.SortHot, Keywords: "cats"},
		{Subreddit: "aww", SortType: domain.SortHot, Keywords: "dogs"},
	}

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 8)
	for _, cfg := range listed {
		assert.NotEmpty(t, cfg.ID)
	}
}

func TestAddAssignsCompositeID(t *testing.T) {
	svc, _, _, _ := newTestService()
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	added, err := svc.Add(context.Background(), domain.FeedConfig{
		Subreddit: "pics",
		SortType:  domain.SortTop,
		Timeframe: domain.TimeframeWeek,
	})
	require.NoError(t, err)
	assert.Equal(t, "pics-top-week-feed-1700000000000", added.ID)

	search, err := svc.Add(context.Background(), domain.FeedConfig{
		Subreddit: "aww",
		SortType:  domain.SortRelevance,
		Keywords:  "cats OR dogs",
	})
	require.NoError(t, err)
	assert.Equal(t, "aww-relevance-none-search-1700000000000", search.ID)
	assert.Equal(t, 1, search.Position)
}

func TestAddRejectsInvalidKeywordQuery(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Add(context.Background(), domain.FeedConfig{
		Subreddit: "pics",
		SortType:  domain.SortRelevance,
		Keywords:  "cats AND",
	})
	require.Error(t, err)
}

func TestNsfwModeRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	assert.Equal(t, domain.NsfwModeSfw, svc.NsfwMode(ctx))
	require.NoError(t, svc.SetNsfwMode(ctx, domain.NsfwModeNsfw))
	assert.Equal(t, domain.NsfwModeNsfw, svc.NsfwMode(ctx))
	require.Error(t, svc.SetNsfwMode(ctx, domain.NsfwMode("spicy")))
}

func TestProfileSwitchReplacesConfiguration(t *testing.T) {
	svc, configRepo, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.List(ctx) // seed defaults
	require.NoError(t, err)
	require.NoError(t, svc.SetNsfwMode(ctx, domain.NsfwModeNsfw))

	prof, err := svc.CreateProfile(ctx, "spicy", "weekend browsing")
	require.NoError(t, err)
	assert.Equal(t, domain.NsfwModeNsfw, prof.Configuration.NsfwMode)

	// Mutate live state, then switch back.
	require.NoError(t, svc.SetNsfwMode(ctx, domain.NsfwModeSfw))
	require.NoError(t, configRepo.ReplaceAll(ctx, []domain.FeedConfig{
		{ID: "x", Subreddit: "golang", SortType: domain.SortNew},
	}))

	switched, err := svc.SwitchProfile(ctx, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, prof.ID, switched.ID)
	assert.Equal(t, prof.ID, svc.CurrentProfileID(ctx))
	assert.Equal(t, domain.NsfwModeNsfw, svc.NsfwMode(ctx))

	restored, err := configRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, restored, 8)
}

func TestDeleteCurrentProfileClearsPointer(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	prof, err := svc.CreateProfile(ctx, "default", "")
	require.NoError(t, err)
	_, err = svc.SwitchProfile(ctx, prof.ID)
	require.NoError(t, err)
	require.Equal(t, prof.ID, svc.CurrentProfileID(ctx))

	require.NoError(t, svc.DeleteProfile(ctx, prof.ID))
	assert.Empty(t, svc.CurrentProfileID(ctx))
}
