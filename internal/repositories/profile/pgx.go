package profile

import (
	"context"
	"encoding/json"
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
		logger: logger.WithComponent("ProfileRepo"),
	}
}

var _ Repository = (*Pgx)(nil)

func (p *Pgx) Create(ctx context.Context, prof domain.Profile) error {
	raw, err := json.Marshal(prof.Configuration)
	if err != nil {
		return err
	}

	query, args, err := repositories.SqBuilder.
		Insert("profiles").
		Columns("id", "name", "description", "created_at", "last_used", "configuration").
		Values(prof.ID, prof.Name, prof.Description, prof.CreatedAt, prof.LastUsed, raw).
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

func (p *Pgx) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "name", "description", "created_at", "last_used", "configuration").
		From("profiles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	prof, err := scanProfile(p.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return prof, nil
}

func (p *Pgx) List(ctx context.Context) ([]*domain.Profile, error) {
	query, args, err := repositories.SqBuilder.
		Select("id", "name", "description", "created_at", "last_used", "configuration").
		From("profiles").
		OrderBy("last_used DESC").
		ToSql()
	if err != nil {
		return nil, repositories.ErrBadQuery
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		prof, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, prof)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

func (p *Pgx) Update(ctx context.Context, prof domain.Profile) error {
	raw, err := json.Marshal(prof.Configuration)
	if err != nil {
		return err
	}

	query, args, err := repositories.SqBuilder.
		Update("profiles").
		Set("name", prof.Name).
		Set("description", prof.Description).
		Set("last_used", prof.LastUsed).
		Set("configuration", raw).
		Where(sq.Eq{"id": prof.ID}).
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
		Delete("profiles").
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

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var prof domain.Profile
	var raw []byte
	if err := row.Scan(&prof.ID, &prof.Name, &prof.Description, &prof.CreatedAt, &prof.LastUsed, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &prof.Configuration); err != nil {
		return nil, err
	}
	return &prof, nil
}
