package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightdelivered/statementlens/internal/jobs"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	bank           TEXT NOT NULL DEFAULT '',
	format_id      TEXT NOT NULL DEFAULT '',
	product_type   TEXT NOT NULL DEFAULT '',
	currency       TEXT NOT NULL DEFAULT '',
	account        TEXT NOT NULL DEFAULT '',
	movement_count INTEGER NOT NULL DEFAULT 0,
	date_from      TEXT NOT NULL DEFAULT '',
	date_to        TEXT NOT NULL DEFAULT '',
	input_path     TEXT NOT NULL DEFAULT '',
	preview_path   TEXT NOT NULL DEFAULT '',
	output_path    TEXT NOT NULL DEFAULT '',
	error_message  TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	version        BIGINT NOT NULL
);`

// Postgres stores jobs in PostgreSQL through a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at url and creates the jobs table.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}
	return NewPostgres(pool), nil
}

// NewPostgres wraps an existing pool. The schema must already exist.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Create(ctx context.Context, job *jobs.Job) error {
	job.Version = 1
	_, err := p.pool.Exec(ctx, `INSERT INTO jobs (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		job.ID, string(job.Status), job.Bank, job.FormatID, job.ProductType, job.Currency, job.Account,
		job.MovementCount, job.DateFrom, job.DateTo, job.InputPath, job.PreviewPath, job.OutputPath,
		job.ErrorMessage, job.CreatedAt, job.UpdatedAt, job.Version)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*jobs.Job, error) {
	return getPostgres(ctx, p.pool, id)
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPostgres(ctx context.Context, q pgQuerier, id string) (*jobs.Job, error) {
	row := q.QueryRow(ctx, `SELECT `+columns+` FROM jobs WHERE id = $1`, id)
	job, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", id, err)
	}
	return job, nil
}

func (p *Postgres) Update(ctx context.Context, job *jobs.Job) (*jobs.Job, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE jobs SET
		status = $1, bank = $2, format_id = $3, product_type = $4, currency = $5, account = $6,
		movement_count = $7, date_from = $8, date_to = $9, input_path = $10, preview_path = $11,
		output_path = $12, error_message = $13, updated_at = $14, version = version + 1
		WHERE id = $15 AND version = $16`,
		string(job.Status), job.Bank, job.FormatID, job.ProductType, job.Currency, job.Account,
		job.MovementCount, job.DateFrom, job.DateTo, job.InputPath, job.PreviewPath,
		job.OutputPath, job.ErrorMessage, job.UpdatedAt,
		job.ID, job.Version)
	if err != nil {
		return nil, fmt.Errorf("updating job %s: %w", job.ID, err)
	}

	stored, err := getPostgres(ctx, tx, job.ID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrVersionConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing job %s: %w", job.ID, err)
	}
	return stored, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanPostgres(row scanner) (*jobs.Job, error) {
	var (
		j      jobs.Job
		status string
	)
	err := row.Scan(&j.ID, &status, &j.Bank, &j.FormatID, &j.ProductType, &j.Currency, &j.Account,
		&j.MovementCount, &j.DateFrom, &j.DateTo, &j.InputPath, &j.PreviewPath, &j.OutputPath,
		&j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt, &j.Version)
	if err != nil {
		return nil, err
	}
	j.Status = jobs.Status(status)
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return &j, nil
}
