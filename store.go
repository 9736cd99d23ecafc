package taskpool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ArchiveStatus is the terminal outcome recorded for a finished job.
type ArchiveStatus string

const (
	StatusSuccess ArchiveStatus = "success"
	StatusFailure ArchiveStatus = "failure"
)

// Job is a snapshot of one claimed row. It is read fresh from the store at
// each claim and never cached across cycles. Attempts is the post-increment
// attempt count, i.e. it includes the execution about to happen.
type Job struct {
	ID       uuid.UUID
	Queue    string
	Type     string
	Payload  string
	Attempts int
}

// Store is the durable job table the pool drains. Implementations must
// guarantee that no two concurrent claimants ever receive the same row
// (pgstore does this with FOR UPDATE SKIP LOCKED) and that ClaimNext
// returns the incremented attempt count before the handler runs.
//
// All claim and finalize calls happen inside a transaction opened by WithTx;
// the transaction handle rides in the context passed to fn, so task handlers
// can perform additional writes atomically with the job's resolution. The
// underlying connection resource is supplied by the caller and must support
// as many simultaneous transactions as the pool has workers.
type Store interface {
	// WithTx runs fn inside one transaction, committing on nil return and
	// rolling back on any error.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// ClaimNext locks and returns the next due job for queue, or nil when
	// no due job exists. Must be called within WithTx.
	ClaimNext(ctx context.Context, queue string) (*Job, error)

	// Archive writes the terminal record for a job before its live row is
	// deleted.
	Archive(ctx context.Context, id uuid.UUID, status ArchiveStatus, finishedAt time.Time) error

	// Delete removes the live row of an archived job.
	Delete(ctx context.Context, id uuid.UUID) error

	// Reschedule makes the job claimable again no earlier than retryAt.
	Reschedule(ctx context.Context, id uuid.UUID, retryAt time.Time) error

	// Enqueue inserts a new job that becomes claimable at runAt. The payload
	// is already encoded by the pool's serializer.
	Enqueue(ctx context.Context, queue, jobType, payload string, runAt time.Time) (uuid.UUID, error)
}
