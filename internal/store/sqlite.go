package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/insightdelivered/statementlens/internal/jobs"
)

const sqliteSchema = `
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
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	version        INTEGER NOT NULL
);`

// SQLite stores jobs in a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// one writer at a time avoids SQLITE_BUSY under concurrent updates
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating jobs table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// sqliteDSN builds a file: URI so that '?' and '#' in path stay part of the
// file name instead of starting the query or fragment.
func sqliteDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(abs),
		RawQuery: url.Values{
			"_busy_timeout": {"5000"},
			"_journal_mode": {"WAL"},
		}.Encode(),
	}
	return u.String(), nil
}

func (s *SQLite) Create(ctx context.Context, job *jobs.Job) error {
	job.Version = 1
	_, err := s.db.ExecContext(ctx, `INSERT INTO jobs (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Status), job.Bank, job.FormatID, job.ProductType, job.Currency, job.Account,
		job.MovementCount, job.DateFrom, job.DateTo, job.InputPath, job.PreviewPath, job.OutputPath,
		job.ErrorMessage, formatTime(job.CreatedAt), formatTime(job.UpdatedAt), job.Version)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*jobs.Job, error) {
	return getSQLite(ctx, s.db, id)
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSQLite(ctx context.Context, q sqlQuerier, id string) (*jobs.Job, error) {
	row := q.QueryRowContext(ctx, `SELECT `+columns+` FROM jobs WHERE id = ?`, id)
	job, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job %s: %w", id, err)
	}
	return job, nil
}

func (s *SQLite) Update(ctx context.Context, job *jobs.Job) (*jobs.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE jobs SET
		status = ?, bank = ?, format_id = ?, product_type = ?, currency = ?, account = ?,
		movement_count = ?, date_from = ?, date_to = ?, input_path = ?, preview_path = ?,
		output_path = ?, error_message = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(job.Status), job.Bank, job.FormatID, job.ProductType, job.Currency, job.Account,
		job.MovementCount, job.DateFrom, job.DateTo, job.InputPath, job.PreviewPath,
		job.OutputPath, job.ErrorMessage, formatTime(job.UpdatedAt),
		job.ID, job.Version)
	if err != nil {
		return nil, fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating job %s: %w", job.ID, err)
	}

	stored, err := getSQLite(ctx, tx, job.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrVersionConflict
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing job %s: %w", job.ID, err)
	}
	return stored, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func scanSQLite(row scanner) (*jobs.Job, error) {
	var (
		j                jobs.Job
		status           string
		created, updated string
	)
	err := row.Scan(&j.ID, &status, &j.Bank, &j.FormatID, &j.ProductType, &j.Currency, &j.Account,
		&j.MovementCount, &j.DateFrom, &j.DateTo, &j.InputPath, &j.PreviewPath, &j.OutputPath,
		&j.ErrorMessage, &created, &updated, &j.Version)
	if err != nil {
		return nil, err
	}
	j.Status = jobs.Status(status)
	if j.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &j, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
