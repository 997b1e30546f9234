// Package poller owns the client-visible post list: it loads from cache at
// startup, refreshes on an interval, persists successful rounds, and falls
// back to cached contents when a refresh fails.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/pkg/config"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/fx"
)

// tickInterval re-stamps the revision so connected clients re-render
// relative times without a refetch.
const tickInterval = time.Minute

// Orchestrator runs one full fetch round across every configured feed.
type Orchestrator interface {
	FetchAll(ctx context.Context) ([]domain.Post, error)
}

// Cache is the durable post cache the poller reads at startup and writes
// after every successful round.
type Cache interface {
	Load(ctx context.Context) ([]domain.Post, time.Time, bool)
	Stale(ctx context.Context) ([]domain.Post, bool)
	Store(ctx context.Context, posts []domain.Post)
	Clear(ctx context.Context) error
}

// Snapshot is the poller state handed to the presentation layer.
type Snapshot struct {
	Posts       []domain.Post `json:"posts"`
	Loading     bool          `json:"loading"`
	Refreshing  bool          `json:"refreshing"`
	Polling     bool          `json:"polling"`
	Paused      bool          `json:"paused"`
	FromCache   bool          `json:"fromCache"`
	LastUpdated time.Time     `json:"lastUpdated"`
	LastError   string        `json:"lastError,omitempty"`
	Revision    uint64        `json:"revision"`
}

type Poller struct {
	orchestrator Orchestrator
	cache        Cache
	logger       logger.Logger
	interval     time.Duration
	now          func() time.Time

	scheduler gocron.Scheduler

	mu          sync.Mutex
	posts       []domain.Post
	loading     bool
	refreshing  bool
	polling     bool
	paused      bool
	busy        bool
	fromCache   bool
	lastUpdated time.Time
	lastErr     error
	revision    uint64
	alive       bool
}

type Opts struct {
	fx.In

	Orchestrator Orchestrator
	Cache        Cache
	Logger       logger.Logger
	Config       *config.Config
}

func New(opts Opts) *Poller {
	return &Poller{
		orchestrator: opts.Orchestrator,
		cache:        opts.Cache,
		logger:       opts.Logger.WithComponent("Poller"),
		interval:     opts.Config.Fetcher.RefreshInterval,
		now:          time.Now,
		polling:      true,
		alive:        true,
	}
}

// Start bootstraps the post list and schedules the refresh and tick jobs,
// which run until ctx is cancelled. On a cache miss the first fetch runs in
// the background with the loading flag raised so clients see a loading
// state rather than an empty ready list.
func (p *Poller) Start(ctx context.Context) error {
	p.bootstrap(ctx)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create poller scheduler: %w", err)
	}
	p.scheduler = scheduler

	_, err = scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			if !p.shouldPoll() {
				p.logger.Debug("Polling suspended, skipping interval refresh")
				return
			}
			p.refresh(ctx, false)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule refresh job: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(tickInterval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			p.mu.Lock()
			p.revision++
			p.mu.Unlock()
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule tick job: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		p.logger.Info("Stopping poller scheduler")
		p.mu.Lock()
		p.alive = false
		p.mu.Unlock()
		if err := scheduler.Shutdown(); err != nil {
			p.logger.Error("Failed to shut down poller scheduler", "error", err)
		}
	}()

	return nil
}

// bootstrap serves cached posts immediately when a live entry exists and
// refreshes in the background; a cache miss raises the loading flag and
// fetches in the background.
func (p *Poller) bootstrap(ctx context.Context) {
	posts, storedAt, ok := p.cache.Load(ctx)
	if ok {
		p.mu.Lock()
		p.posts = posts
		p.lastUpdated = storedAt
		p.fromCache = true
		p.mu.Unlock()
		p.logger.Info("Serving cached posts, refreshing in background", "count", len(posts))
		go p.refresh(ctx, false)
		return
	}

	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()
	go p.refresh(ctx, true)
}

func (p *Poller) shouldPoll() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polling && !p.paused && !p.busy
}

// refresh runs one orchestrator round. Only one refresh runs at a time;
// overlapping calls return immediately.
func (p *Poller) refresh(ctx context.Context, showLoading bool) {
	p.mu.Lock()
	if p.refreshing || !p.alive {
		p.mu.Unlock()
		return
	}
	p.refreshing = true
	if showLoading {
		p.loading = true
	}
	p.mu.Unlock()

	posts, err := p.orchestrator.FetchAll(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshing = false
	p.loading = false
	if !p.alive {
		return
	}

	if err != nil {
		p.lastErr = err
		p.logger.Error("Refresh failed", "error", err)
		p.fallback(ctx)
		return
	}

	p.posts = posts
	p.lastUpdated = p.now()
	p.lastErr = nil
	p.fromCache = false
	p.revision++
	p.cache.Store(ctx, posts)
}

// fallback keeps the last good in-memory posts, or digs expired contents out
// of the cache. The display timestamp is stamped "now" to signal
// cache-fallback mode. Callers hold p.mu.
func (p *Poller) fallback(ctx context.Context) {
	if len(p.posts) > 0 {
		return
	}
	if stale, ok := p.cache.Stale(ctx); ok {
		p.posts = stale
		p.fromCache = true
		p.lastUpdated = p.now()
		p.revision++
		p.logger.Warn("Serving stale cached posts after failed refresh", "count", len(stale))
	}
}

// Refresh is the manual trigger: it bypasses pause and shows the loading
// indicator.
func (p *Poller) Refresh(ctx context.Context) {
	p.refresh(ctx, true)
}

func (p *Poller) StartPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polling = true
}

func (p *Poller) StopPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polling = false
}

// SetPaused toggles the explicit user pause.
func (p *Poller) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = paused
}

// SetBusy toggles the transient activity pause (scrolling). Both it and the
// explicit pause must clear before interval refreshes resume.
func (p *Poller) SetBusy(busy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy = busy
}

// ClearCache drops the durable cache entry; the in-memory list stays until
// the next refresh.
func (p *Poller) ClearCache(ctx context.Context) error {
	return p.cache.Clear(ctx)
}

// Snapshot returns a copy of the current poller state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Posts:       p.posts,
		Loading:     p.loading,
		Refreshing:  p.refreshing,
		Polling:     p.polling,
		Paused:      p.paused || p.busy,
		FromCache:   p.fromCache,
		LastUpdated: p.lastUpdated,
		Revision:    p.revision,
	}
	if p.lastErr != nil {
		snap.LastError = p.lastErr.Error()
	}
	return snap
}
