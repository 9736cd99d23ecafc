// Package taskpool processes background jobs from a relational job table
// used as both queue and durable log.
//
// A Pool owns a fixed set of workers. Each worker wakes on a periodic tick
// and runs one drain pass: it repeatedly claims the next due job for its
// queue inside a store transaction, executes the registered handler, and
// resolves the outcome into exactly one of archive-success,
// archive-failure, or reschedule-with-backoff. The store guarantees that no
// two workers ever claim the same row (pgstore uses FOR UPDATE SKIP
// LOCKED), so pools scale horizontally across processes without
// coordination.
//
// # Features
//
//   - Type-safe task registration with structural typing (no interface imports needed)
//   - Per-task retry policies with clamped backoff schedules
//   - Scheduled/periodic tasks with cron expressions
//   - Transactional execution: handler writes commit atomically with the job's resolution
//   - Durable attempt accounting and a permanent archive of every outcome
//   - Staggered worker startup to avoid thundering-herd claim queries
//   - Graceful, bounded shutdown with an optional process exit hook
//
// # Task Definition
//
// Tasks are structs with Name() and Handle() methods. No interface import
// is required - the package uses structural typing:
//
//	type SendEmail struct {
//	    mailer mail.Mailer
//	}
//
//	func (t *SendEmail) Name() string { return "send-email" }
//
//	func (t *SendEmail) Handle(ctx context.Context, p SendEmailPayload) error {
//	    return t.mailer.Send(ctx, p.To, p.Subject, p.Body)
//	}
//
//	// Optional: retried up to 3 times with growing backoff.
//	func (t *SendEmail) Retry() retry.Policy {
//	    return retry.Policy{
//	        Retries: 3,
//	        Delays:  []time.Duration{time.Second, 10 * time.Second, time.Minute},
//	    }
//	}
//
//	type SendEmailPayload struct {
//	    To      string `json:"to"`
//	    Subject string `json:"subject"`
//	    Body    string `json:"body"`
//	}
//
// # Running a Pool
//
//	store := pgstore.New(pgpool)
//
//	pool, err := taskpool.New(store,
//	    taskpool.WithTask(&SendEmail{mailer: mailer}),
//	    taskpool.WithQueue("emails"),
//	    taskpool.WithWorkers(4),
//	    taskpool.WithLogger(slog.Default()),
//	    taskpool.WithExitHook(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pool.Start(ctx) // blocks briefly while workers stagger up
//	defer pool.Stop()
//
// Start and Stop are idempotent guarded transitions: starting a running
// pool or stopping an idle one is a no-op returning false. A worker that
// hits a store failure shuts the whole pool down instead of retrying
// against an unhealthy database.
//
// # Transactional Handlers
//
// Each job executes inside the same transaction that claimed it. Handlers
// running against pgstore can pull the transaction from the context to make
// their own writes atomic with the job's resolution:
//
//	func (t *Provision) Handle(ctx context.Context, p ProvisionPayload) error {
//	    tx, _ := pgstore.TxFromContext(ctx)
//	    _, err := tx.Exec(ctx, "INSERT INTO audit_log ...", p.AccountID)
//	    return err
//	}
//
// If the handler returns an error the transaction commits with the job
// rescheduled or archived as failed; if the store itself fails, the
// transaction rolls back and the job is claimed again later.
package taskpool
