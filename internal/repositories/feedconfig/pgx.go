package feedconfig

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/repositories"
	"github.com/davidnys/redgrid/pkg/logger"

	sq "github.com/Masterminds/squirrel"
)

type Pgx struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPgx(pool *pgxpool.Pool, logger logger.Logger) *Pgx {
	return &Pgx{
		pool:   pool,
		logger: logger.WithComponent("FeedConfigRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

func (p *Pgx) Create(ctx context.Context, cfg domain.FeedConfig) error {
	query, args, err := repositories.SqBuilder.
		Insert("feed_configs").
		Columns("id", "subreddit", "sort_type", "timeframe", "keywords", "position").
		Values(cfg.ID, cfg.Subreddit, string(cfg.SortType), nullable(string(cfg.Timeframe)), nullable(cfg.Keywords), cfg.Position).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	_, err = p.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (p *Pgx) Update(ctx context.Context, cfg domain.FeedConfig) error {
	query, args, err := repositories.SqBuilder.
		Update("feed_configs").
		Set("subreddit", cfg.Subreddit).
		Set("sort_type", string(cfg.SortType)).
		Set("timeframe", nullable(string(cfg.Timeframe))).
		Set("keywords", nullable(cfg.Keywords)).
		Set("position", cfg.Position).
		Where(sq.Eq{"id": cfg.ID}).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Pgx) Delete(ctx context.Context, id string) error {
	query, args, err := repositories.SqBuilder.
		Delete("feed_configs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	result, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Pgx) List(ctx context.Context) ([]domain.FeedConfig, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "subreddit", "sort_type", "timeframe", "keywords", "position").
		From("feed_configs").
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.FeedConfig
	for rows.Next() {
		var cfg domain.FeedConfig
		var timeframe, keywords *string
		if err := rows.Scan(&cfg.ID, &cfg.Subreddit, &cfg.SortType, &timeframe, &keywords, &cfg.Position); err != nil {
			return nil, err
		}
		if timeframe != nil {
			cfg.Timeframe = domain.Timeframe(*timeframe)
		}
		if keywords != nil {
			cfg.Keywords = *keywords
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return configs, nil
}

func (p *Pgx) ReplaceAll(ctx context.Context, cfgs []domain.FeedConfig) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM feed_configs"); err != nil {
		return err
	}

	for i, cfg := range cfgs {
		query, args, err := repositories.SqBuilder.
			Insert("feed_configs").
			Columns("id", "subreddit", "sort_type", "timeframe", "keywords", "position").
			Values(cfg.ID, cfg.Subreddit, string(cfg.SortType), nullable(string(cfg.Timeframe)), nullable(cfg.Keywords), i).
			ToSql()
		if err != nil {
			return repositories.ErrBadQuery
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
