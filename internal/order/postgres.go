package order

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"
)

//go:embed schema.sql
var schema string

// PostgresQueue keeps confirmation jobs in printful_confirm_jobs. Leasing uses
// FOR UPDATE SKIP LOCKED, so several workers can share the table without
// handing the same job out twice.
type PostgresQueue struct {
	db *sql.DB
}

// NewPostgresQueue creates a queue on an open database handle.
func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db}
}

var _ Queue = (*PostgresQueue)(nil)

// Migrate creates the table when missing.
func (q *PostgresQueue) Migrate(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("order: migrate: %w", err)
	}
	return nil
}

const jobColumns = `remote_order_id, attempt, not_before, last_error, created_at, updated_at`

func (q *PostgresQueue) Enqueue(ctx context.Context, job Job) error {
	query := `
		INSERT INTO printful_confirm_jobs (remote_order_id, attempt, not_before, last_error)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (remote_order_id) DO UPDATE SET
			attempt = EXCLUDED.attempt,
			not_before = EXCLUDED.not_before,
			last_error = EXCLUDED.last_error,
			updated_at = now();
	`
	if _, err := q.db.ExecContext(ctx, query, job.RemoteOrderID, job.Attempt, job.NotBefore, job.LastError); err != nil {
		return fmt.Errorf("order: enqueue %d: %w", job.RemoteOrderID, err)
	}
	return nil
}

func (q *PostgresQueue) Lease(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error) {
	query := `
		WITH due AS (
			SELECT remote_order_id FROM printful_confirm_jobs
			WHERE not_before <= $1
			ORDER BY not_before
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE printful_confirm_jobs j SET not_before = $3, updated_at = now()
		FROM due WHERE j.remote_order_id = due.remote_order_id
		RETURNING j.remote_order_id, j.attempt, j.not_before, j.last_error, j.created_at, j.updated_at;
	`
	rows, err := q.db.QueryContext(ctx, query, now, limit, now.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("order: lease: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (q *PostgresQueue) Complete(ctx context.Context, remoteOrderID int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM printful_confirm_jobs WHERE remote_order_id = $1`, remoteOrderID); err != nil {
		return fmt.Errorf("order: complete %d: %w", remoteOrderID, err)
	}
	return nil
}

func (q *PostgresQueue) Get(ctx context.Context, remoteOrderID int64) (*Job, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM printful_confirm_jobs WHERE remote_order_id = $1`, remoteOrderID)
	var j Job
	err := row.Scan(&j.RemoteOrderID, &j.Attempt, &j.NotBefore, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order: get %d: %w", remoteOrderID, err)
	}
	return &j, nil
}

func (q *PostgresQueue) List(ctx context.Context) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM printful_confirm_jobs ORDER BY not_before`)
	if err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]Job, error) {
	jobs := make([]Job, 0)
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.RemoteOrderID, &j.Attempt, &j.NotBefore, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("order: scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: rows: %w", err)
	}
	return jobs, nil
}
