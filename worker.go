package taskpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/taskpool/retry"
)

// errPassInterrupted ends the current drain pass when a handler was
// cooperatively cancelled. Returning it from the transaction body rolls the
// claim back, so the row stays exactly as it was and any worker can claim
// it again once the lock is released.
var errPassInterrupted = errors.New("taskpool: drain pass interrupted")

// drain runs claim/execute/finalize cycles until the store reports no due
// job for this pool's queue. Handler failures are resolved inside each
// cycle; any error escaping the transactional boundary itself (store or
// connectivity failure) propagates to the caller and is pool-fatal.
func (p *Pool) drain(ctx context.Context) error {
	for {
		claimed, err := p.processOne(ctx)
		if err != nil {
			if errors.Is(err, errPassInterrupted) {
				return nil
			}
			return err
		}
		if !claimed {
			return nil
		}
	}
}

// processOne runs a single claim/execute/finalize cycle inside one store
// transaction. The transaction handle rides in the context handed to the
// handler, so handler writes commit atomically with the job's resolution.
func (p *Pool) processOne(ctx context.Context) (bool, error) {
	var claimed bool
	err := p.store.WithTx(ctx, func(txCtx context.Context) error {
		job, err := p.store.ClaimNext(txCtx, p.cfg.queue)
		if err != nil {
			return fmt.Errorf("taskpool: claim next job: %w", err)
		}
		if job == nil {
			return nil
		}
		claimed = true
		return p.resolve(txCtx, job)
	})
	return claimed, err
}

// resolve executes the claimed job and turns the outcome into exactly one
// of: archive-success, archive-failure, or reschedule-with-backoff.
func (p *Pool) resolve(ctx context.Context, job *Job) error {
	log := p.log.With(
		slog.String("job_id", job.ID.String()),
		slog.String("queue", job.Queue),
		slog.String("task", job.Type),
		slog.Int("attempt", job.Attempts),
	)

	log.DebugContext(ctx, "executing task")

	err := p.execute(ctx, job)
	if err == nil {
		log.DebugContext(ctx, "task completed")
		return p.finalize(ctx, job.ID, StatusSuccess)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The attempt was interrupted externally, not a handler-logic
		// failure. The job stays claimable and the interrupted attempt is
		// not charged against its retry budget.
		log.WarnContext(ctx, "task interrupted, job left claimable", slog.Any("error", err))
		return errPassInterrupted
	}

	log.ErrorContext(ctx, "task failed", slog.Any("error", err))

	if strategy, ok := p.registry.strategy(job.Type); ok {
		if policy, retryable := strategy(job, err); retryable {
			if decision := retry.Plan(policy, job.Attempts, p.cfg.clock()); decision.RetriesLeft > 0 {
				log.InfoContext(ctx, "job rescheduled",
					slog.Time("retry_at", decision.RetryAt),
					slog.Int("retries_left", decision.RetriesLeft),
				)
				if err := p.store.Reschedule(ctx, job.ID, decision.RetryAt); err != nil {
					return fmt.Errorf("taskpool: reschedule job: %w", err)
				}
				return nil
			}
		}
	}

	log.WarnContext(ctx, "job retries exhausted, archiving as failed")
	return p.finalize(ctx, job.ID, StatusFailure)
}

// execute dispatches the job to its registered handler with the merged
// execution context. An unregistered type is a handler failure like any
// other and resolves through the retry path.
func (p *Pool) execute(ctx context.Context, job *Job) error {
	executor, ok := p.registry.get(job.Type)
	if !ok || executor == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTask, job.Type)
	}

	hctx := withJob(ctx, job)
	if p.cfg.contextFunc != nil {
		hctx = p.cfg.contextFunc(hctx)
	}

	return executor.Execute(hctx, p.cfg.serializer, job.Payload)
}

// finalize archives the job's terminal outcome and removes the live row.
func (p *Pool) finalize(ctx context.Context, id uuid.UUID, status ArchiveStatus) error {
	if err := p.store.Archive(ctx, id, status, p.cfg.clock()); err != nil {
		return fmt.Errorf("taskpool: archive job: %w", err)
	}
	if err := p.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("taskpool: delete job: %w", err)
	}
	return nil
}
