package postcache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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
		logger: logger.WithComponent("PostCacheRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

func (p *Pgx) Get(ctx context.Context, key string) (*Entry, error) {
	query, args, err := repositories.SqBuilder.
		Select("posts", "expires_at", "updated_at").
		From("post_cache").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	var raw []byte
	var entry Entry
	err = p.pool.QueryRow(ctx, query, args...).Scan(&raw, &entry.ExpiresAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(raw, &entry.Posts); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (p *Pgx) Set(ctx context.Context, key string, entry Entry) error {
	raw, err := json.Marshal(entry.Posts)
	if err != nil {
		return err
	}

	// Squirrel has no upsert support; plain SQL keeps it readable.
	_, err = p.pool.Exec(ctx, `
		INSERT INTO post_cache (key, posts, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET posts = EXCLUDED.posts,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`, key, raw, entry.ExpiresAt, entry.UpdatedAt)
	return err
}

func (p *Pgx) Delete(ctx context.Context, key string) error {
	query, args, err := repositories.SqBuilder.
		Delete("post_cache").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return repositories.ErrBadQuery
	}

	_, err = p.pool.Exec(ctx, query, args...)
	return err
}
