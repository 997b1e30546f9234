package poller

import (
	"context"
	"testing"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/orchestrator"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	posts []domain.Post
	err   error
	calls int
}

func (f *fakeOrchestrator) FetchAll(context.Context) ([]domain.Post, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

type fakeCache struct {
	posts    []domain.Post
	storedAt time.Time
	live     bool

	stored  []domain.Post
	cleared bool
}

func (f *fakeCache) Load(context.Context) ([]domain.Post, time.Time, bool) {
	if !f.live {
		return nil, time.Time{}, false
	}
	return f.posts, f.storedAt, true
}

func (f *fakeCache) Stale(context.Context) ([]domain.Post, bool) {
	return f.posts, len(f.posts) > 0
}

func (f *fakeCache) Store(_ context.Context, posts []domain.Post) {
	f.stored = posts
}

func (f *fakeCache) Clear(context.Context) error {
	f.cleared = true
	return nil
}

func newTestPoller(orch Orchestrator, cache Cache) *Poller {
	return &Poller{
		orchestrator: orch,
		cache:        cache,
		logger:       logger.New(logger.Opts{Env: "development"}),
		interval:     30 * time.Second,
		now:          time.Now,
		polling:      true,
		alive:        true,
	}
}

func posts(ids ...string) []domain.Post {
	out := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Post{ID: id})
	}
	return out
}

func TestBootstrapCacheMissFetchesInBackground(t *testing.T) {
	orch := &fakeOrchestrator{posts: posts("a", "b")}
	cache := &fakeCache{}
	p := newTestPoller(orch, cache)

	p.bootstrap(context.Background())

	require.Eventually(t, func() bool {
		snap := p.Snapshot()
		return len(snap.Posts) == 2 && !snap.Loading
	}, time.Second, 10*time.Millisecond)

	snap := p.Snapshot()
	assert.False(t, snap.FromCache)
	assert.Equal(t, posts("a", "b"), cache.stored, "successful round must be persisted")
}

func TestBootstrapCacheHitServesImmediately(t *testing.T) {
	storedAt := time.Now().Add(-time.Minute)
	cache := &fakeCache{posts: posts("cached"), storedAt: storedAt, live: true}
	orch := &fakeOrchestrator{posts: posts("fresh")}
	p := newTestPoller(orch, cache)

	p.bootstrap(context.Background())

	// Cached posts are visible before the background refresh lands.
	snap := p.Snapshot()
	assert.Equal(t, "cached", snap.Posts[0].ID)
	assert.True(t, snap.FromCache)
	assert.Equal(t, storedAt, snap.LastUpdated)

	require.Eventually(t, func() bool {
		return p.Snapshot().Posts[0].ID == "fresh"
	}, time.Second, 10*time.Millisecond, "background refresh must replace cached posts")
}

func TestRefreshFailureFallsBackToStaleCache(t *testing.T) {
	cache := &fakeCache{posts: posts("stale")}
	orch := &fakeOrchestrator{err: orchestrator.ErrAllFeedsFailed}
	p := newTestPoller(orch, cache)

	before := time.Now()
	p.refresh(context.Background(), true)

	snap := p.Snapshot()
	assert.Equal(t, "stale", snap.Posts[0].ID)
	assert.True(t, snap.FromCache)
	assert.NotEmpty(t, snap.LastError)
	assert.False(t, snap.LastUpdated.Before(before), "fallback stamps the display time as now")
}

func TestRefreshFailureKeepsLastGoodPosts(t *testing.T) {
	orch := &fakeOrchestrator{posts: posts("good")}
	p := newTestPoller(orch, &fakeCache{})
	p.refresh(context.Background(), false)

	orch.err = orchestrator.ErrAllFeedsFailed
	p.refresh(context.Background(), false)

	snap := p.Snapshot()
	assert.Equal(t, "good", snap.Posts[0].ID)
	assert.NotEmpty(t, snap.LastError)
}

func TestPauseSignalsBothMustClear(t *testing.T) {
	p := newTestPoller(&fakeOrchestrator{}, &fakeCache{})

	assert.True(t, p.shouldPoll())

	p.SetPaused(true)
	p.SetBusy(true)
	assert.False(t, p.shouldPoll())

	p.SetPaused(false)
	assert.False(t, p.shouldPoll(), "transient busy flag still suspends")

	p.SetBusy(false)
	assert.True(t, p.shouldPoll())
}

func TestStopPollingSuspendsInterval(t *testing.T) {
	p := newTestPoller(&fakeOrchestrator{}, &fakeCache{})

	p.StopPolling()
	assert.False(t, p.shouldPoll())
	p.StartPolling()
	assert.True(t, p.shouldPoll())
}

func TestManualRefreshRunsWhilePaused(t *testing.T) {
	orch := &fakeOrchestrator{posts: posts("a")}
	p := newTestPoller(orch, &fakeCache{})
	p.SetPaused(true)

	p.Refresh(context.Background())

	assert.Equal(t, 1, orch.calls)
	assert.Len(t, p.Snapshot().Posts, 1)
}

func TestRefreshBumpsRevision(t *testing.T) {
	orch := &fakeOrchestrator{posts: posts("a")}
	p := newTestPoller(orch, &fakeCache{})

	before := p.Snapshot().Revision
	p.refresh(context.Background(), false)
	assert.Greater(t, p.Snapshot().Revision, before)
}

func TestNoStateUpdatesAfterShutdown(t *testing.T) {
	orch := &fakeOrchestrator{posts: posts("a")}
	p := newTestPoller(orch, &fakeCache{})

	p.mu.Lock()
	p.alive = false
	p.mu.Unlock()

	p.refresh(context.Background(), true)
	assert.Empty(t, p.Snapshot().Posts)
	assert.Equal(t, 0, orch.calls)
}

func TestClearCache(t *testing.T) {
	cache := &fakeCache{}
	p := newTestPoller(&fakeOrchestrator{}, cache)

	require.NoError(t, p.ClearCache(context.Background()))
	assert.True(t, cache.cleared)
}
