package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/davidnys/redgrid/internal/cache"
	"github.com/davidnys/redgrid/internal/configstore"
	"github.com/davidnys/redgrid/internal/migrations"
	"github.com/davidnys/redgrid/internal/orchestrator"
	"github.com/davidnys/redgrid/internal/poller"
	"github.com/davidnys/redgrid/internal/ratelimit"
	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/davidnys/redgrid/internal/reddit/redditimpl"
	repositories "github.com/davidnys/redgrid/internal/repositories/fx"
	"github.com/davidnys/redgrid/internal/server"
	"github.com/davidnys/redgrid/pkg/config"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/davidnys/redgrid/pkg/pgx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
	),
	fx.Provide(
		fx.Annotate(
			redditimpl.NewAuthManager,
			fx.As(new(reddit.TokenSource)),
		),
		fx.Annotate(
			redditimpl.New,
			fx.As(new(reddit.Client)),
		),
		configstore.New,
		func(s *configstore.Service) orchestrator.ConfigSource { return s },
		cache.New,
		func(c *cache.Service) poller.Cache { return c },
		orchestrator.New,
		func(s *orchestrator.Service) poller.Orchestrator { return s },
		poller.New,
		newRefreshLimiter,
		server.New,
	),
	repositories.Module,
	fx.Invoke(migrate),
	fx.Invoke(run),
)

// newRefreshLimiter bounds the manual refresh endpoint: one refresh every
// ten seconds per caller, with a burst of three.
func newRefreshLimiter() ratelimit.Limiter {
	return ratelimit.NewInMemoryLimiter(1, 10*time.Second, 3)
}

func migrate(c *config.Config) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetBaseFS(migrations.FS)

	db, err := sql.Open("postgres", c.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.Up(db, ".")
}

func run(lc fx.Lifecycle, log logger.Logger, p *poller.Poller, srv *server.Server) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := p.Start(ctx); err != nil {
				cancel()
				return err
			}

			go func() {
				if err := srv.Run(ctx); err != nil {
					log.Error("HTTP server error", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
