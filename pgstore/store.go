package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/taskpool"
)

const (
	defaultJobsTable    = "jobs"
	defaultArchiveTable = "jobs_archive"
)

// ErrNoTransaction is returned when ClaimNext is called outside WithTx.
// A claim must hold its row lock until the job is resolved; outside a
// transaction the lock would be released at the end of the statement.
var ErrNoTransaction = errors.New("pgstore: no transaction in context")

// Store implements taskpool.Store on a pgx connection pool. The pool is
// shared across all workers; pgx guarantees it is safe for the concurrent
// transactions the worker pool opens.
type Store struct {
	pool *pgxpool.Pool

	claimSQL      string
	archiveSQL    string
	deleteSQL     string
	rescheduleSQL string
	enqueueSQL    string
	purgeSQL      string
}

// Option configures the store.
type Option func(*config)

type config struct {
	jobsTable    string
	archiveTable string
}

// WithJobsTable overrides the live jobs table name. Defaults to "jobs".
func WithJobsTable(name string) Option {
	return func(c *config) {
		if name != "" {
			c.jobsTable = name
		}
	}
}

// WithArchiveTable overrides the archive table name. Defaults to "jobs_archive".
func WithArchiveTable(name string) Option {
	return func(c *config) {
		if name != "" {
			c.archiveTable = name
		}
	}
}

// New creates a store over the given connection pool. Table identifiers are
// sanitized once here so the hot-path queries are plain prepared statements.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	cfg := &config{
		jobsTable:    defaultJobsTable,
		archiveTable: defaultArchiveTable,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jobs := pgx.Identifier{cfg.jobsTable}.Sanitize()
	archive := pgx.Identifier{cfg.archiveTable}.Sanitize()

	return &Store{
		pool: pool,

		// SKIP LOCKED keeps competing claimants from blocking on a busy
		// row; the inner select orders by due time, and the update returns
		// the post-increment attempt count the handler will observe.
		claimSQL: fmt.Sprintf(`
			UPDATE %[1]s SET attempts = attempts + 1
			WHERE id = (
				SELECT id FROM %[1]s
				WHERE queue = $1 AND run_at <= now()
				ORDER BY run_at
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			)
			RETURNING id, queue, job_type, payload, attempts`, jobs),

		archiveSQL: fmt.Sprintf(`
			INSERT INTO %s (id, queue, job_type, payload, attempts, status, created_at, finished_at)
			SELECT id, queue, job_type, payload, attempts, $2, created_at, $3
			FROM %s WHERE id = $1`, archive, jobs),

		deleteSQL: fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, jobs),

		rescheduleSQL: fmt.Sprintf(`UPDATE %s SET run_at = $2 WHERE id = $1`, jobs),

		enqueueSQL: fmt.Sprintf(`
			INSERT INTO %s (id, queue, job_type, payload, run_at)
			VALUES ($1, $2, $3, $4, $5)`, jobs),

		purgeSQL: fmt.Sprintf(`DELETE FROM %s WHERE finished_at < $1`, archive),
	}
}

type txKey struct{}

// TxFromContext returns the transaction opened by WithTx, if any. Task
// handlers use it to write atomically with the job's resolution.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// WithTx executes fn within one transaction carried in fn's context.
// If fn returns an error, the transaction is rolled back.
// If fn panics, the transaction is rolled back and the panic is re-raised.
// If fn succeeds, the transaction is committed. fn's error is returned
// unwrapped so callers can inspect it with errors.Is.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}
	return nil
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn returns the context's transaction when present, the pool otherwise.
func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.pool
}

// ClaimNext locks and returns the next due job for queue, incrementing its
// attempts counter. Returns nil when no due job exists. Must be called
// inside WithTx so the row lock survives until the job is resolved.
func (s *Store) ClaimNext(ctx context.Context, queue string) (*taskpool.Job, error) {
	tx, ok := TxFromContext(ctx)
	if !ok {
		return nil, ErrNoTransaction
	}

	var job taskpool.Job
	err := tx.QueryRow(ctx, s.claimSQL, queue).
		Scan(&job.ID, &job.Queue, &job.Type, &job.Payload, &job.Attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pgstore: claim next job: %w", err)
	}
	return &job, nil
}

// Archive copies the job's row into the archive table with its terminal
// status. The live row is removed separately by Delete.
func (s *Store) Archive(ctx context.Context, id uuid.UUID, status taskpool.ArchiveStatus, finishedAt time.Time) error {
	tag, err := s.conn(ctx).Exec(ctx, s.archiveSQL, id, string(status), finishedAt)
	if err != nil {
		return fmt.Errorf("pgstore: archive job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pgstore: archive job %s: live row not found", id)
	}
	return nil
}

// Delete removes the live row of a job.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.conn(ctx).Exec(ctx, s.deleteSQL, id); err != nil {
		return fmt.Errorf("pgstore: delete job %s: %w", id, err)
	}
	return nil
}

// Reschedule makes the job claimable again no earlier than retryAt.
func (s *Store) Reschedule(ctx context.Context, id uuid.UUID, retryAt time.Time) error {
	if _, err := s.conn(ctx).Exec(ctx, s.rescheduleSQL, id, retryAt); err != nil {
		return fmt.Errorf("pgstore: reschedule job %s: %w", id, err)
	}
	return nil
}

// Enqueue inserts a new job that becomes claimable at runAt. Joins the
// context's transaction when called from a handler, so produced jobs become
// visible only if the producing job resolves.
func (s *Store) Enqueue(ctx context.Context, queue, jobType, payload string, runAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := s.conn(ctx).Exec(ctx, s.enqueueSQL, id, queue, jobType, payload, runAt); err != nil {
		return uuid.Nil, fmt.Errorf("pgstore: enqueue job: %w", err)
	}
	return id, nil
}

// PurgeArchived deletes archive rows finished before the cutoff and returns
// how many were removed. Pair with a scheduled task to bound archive growth.
func (s *Store) PurgeArchived(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.conn(ctx).Exec(ctx, s.purgeSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pgstore: purge archive: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies database connectivity. Used by taskpool.Healthcheck.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
