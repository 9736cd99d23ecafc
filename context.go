package taskpool

import (
	"context"
	"log/slog"
)

type jobCtxKey struct{}

// withJob attaches the claimed job snapshot to the handler's context.
func withJob(ctx context.Context, job *Job) context.Context {
	return context.WithValue(ctx, jobCtxKey{}, job)
}

// JobFromContext returns the job currently being executed, if the context
// originates from a drain pass. Handlers can use it to read the attempt
// count or job ID without threading them through payloads.
func JobFromContext(ctx context.Context) (*Job, bool) {
	job, ok := ctx.Value(jobCtxKey{}).(*Job)
	return job, ok
}

// JobIDExtractor extracts the executing job's ID as a slog attribute.
// Compatible with logger.ContextExtractor for context-aware logging.
func JobIDExtractor(ctx context.Context) (slog.Attr, bool) {
	job, ok := JobFromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String("job_id", job.ID.String()), true
}

// QueueExtractor extracts the executing job's queue as a slog attribute.
// Compatible with logger.ContextExtractor for context-aware logging.
func QueueExtractor(ctx context.Context) (slog.Attr, bool) {
	job, ok := JobFromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return slog.String("queue", job.Queue), true
}
