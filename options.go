package taskpool

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/taskpool/retry"
)

// config holds worker pool configuration.
type config struct {
	registry        *taskRegistry
	policies        map[string]retry.Policy
	schedules       []scheduleConfig
	queue           string
	poolID          string
	serializer      Serializer
	logger          *slog.Logger
	contextFunc     func(context.Context) context.Context
	onShutdown      func()
	clock           func() time.Time
	pollInterval    time.Duration
	shutdownTimeout time.Duration
	workers         int
	exitHook        bool
}

// newConfig creates a config with defaults.
func newConfig() *config {
	return &config{
		registry:        newTaskRegistry(),
		policies:        make(map[string]retry.Policy),
		queue:           defaultQueue,
		serializer:      JSONSerializer{},
		clock:           func() time.Time { return time.Now().UTC() },
		pollInterval:    defaultPollInterval,
		shutdownTimeout: defaultShutdownTimeout,
		workers:         defaultWorkers,
	}
}

// Option configures the worker pool.
type Option func(*config)

// WithTask registers a task handler using structural typing.
// The task must implement Name() and Handle(ctx, P) methods.
// The payload type P is inferred from the Handle method signature.
//
// A task may additionally implement Retry() retry.Policy to configure a
// constant retry policy for all of its failures; use WithRetryStrategy for
// error-dependent policies.
//
// Example:
//
//	type SendEmail struct {
//	    mailer mail.Mailer
//	}
//
//	func (t *SendEmail) Name() string { return "send-email" }
//	func (t *SendEmail) Handle(ctx context.Context, p SendEmailPayload) error {
//	    return t.mailer.Send(ctx, p.To, p.Subject)
//	}
//	func (t *SendEmail) Retry() retry.Policy {
//	    return retry.Policy{Retries: 3, Delays: []time.Duration{time.Second, 10 * time.Second}}
//	}
//
//	taskpool.WithTask(tasks.NewSendEmail(mailer))
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), newTaskWrapper[P](task))
		if r, ok := any(task).(interface{ Retry() retry.Policy }); ok {
			c.policies[task.Name()] = r.Retry()
		}
	}
}

// WithScheduledTask registers a periodic task using structural typing.
// The task must implement Name(), Schedule(), and Handle(ctx) methods.
// Schedule() should return a cron expression (5 fields: min hour day month weekday).
// At each cron fire the pool enqueues one job of this type with an empty
// payload, so scheduled work flows through the same claim/execute cycle as
// every other job.
//
// Example:
//
//	type PurgeArchive struct {
//	    store *pgstore.Store
//	}
//
//	func (t *PurgeArchive) Name() string     { return "purge_archive" }
//	func (t *PurgeArchive) Schedule() string { return "0 3 * * *" } // Daily at 03:00
//	func (t *PurgeArchive) Handle(ctx context.Context) error {
//	    _, err := t.store.PurgeArchived(ctx, time.Now().AddDate(0, -1, 0))
//	    return err
//	}
//
//	taskpool.WithScheduledTask(tasks.NewPurgeArchive(store))
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), &scheduledTaskExecutor{handler: task.Handle})
		c.schedules = append(c.schedules, scheduleConfig{
			name:     task.Name(),
			schedule: task.Schedule(),
		})
	}
}

// WithRetryPolicy sets a constant retry policy for the named task.
// The policy is validated when the pool is created; an invalid policy is a
// configuration defect and fails New.
func WithRetryPolicy(name string, policy retry.Policy) Option {
	return func(c *config) {
		c.policies[name] = policy
	}
}

// WithRetryStrategy sets an error-dependent retry strategy for the named
// task. The strategy must return valid policies; it is consulted once per
// failed attempt.
//
// Example:
//
//	taskpool.WithRetryStrategy("charge_card", func(job *taskpool.Job, err error) (retry.Policy, bool) {
//	    if errors.Is(err, payments.ErrCardDeclined) {
//	        return retry.Policy{}, false // terminal, do not retry
//	    }
//	    return retry.Policy{Retries: 5, Delays: backoff}, true
//	})
func WithRetryStrategy(name string, strategy RetryStrategy) Option {
	return func(c *config) {
		if strategy != nil {
			c.registry.registerStrategy(name, strategy)
		}
	}
}

// WithQueue sets the queue this pool polls. Defaults to "default".
// A queue is an independent partition of the jobs table; run one pool per
// queue to isolate workloads.
func WithQueue(name string) Option {
	return func(c *config) {
		if name != "" {
			c.queue = name
		}
	}
}

// WithSerializer sets the payload codec. Defaults to JSONSerializer.
func WithSerializer(s Serializer) Option {
	return func(c *config) {
		if s != nil {
			c.serializer = s
		}
	}
}

// WithLogger sets the logger for pool and job lifecycle events.
// If not set, a noop logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPoolID sets the pool identifier attached to every log record for
// correlation. Defaults to a random UUID.
func WithPoolID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.poolID = id
		}
	}
}

// WithContextFunc installs a context decorator applied to every handler
// invocation. Use it to merge application-scoped values (tenant, trace
// fields) into each job's execution context.
func WithContextFunc(fn func(context.Context) context.Context) Option {
	return func(c *config) {
		if fn != nil {
			c.contextFunc = fn
		}
	}
}

// WithPollInterval sets how often each idle worker checks for due jobs.
// Defaults to 100ms. A busy worker drains continuously and only returns to
// this cadence once its queue is empty.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithWorkers sets the number of concurrent workers. Defaults to 1.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for in-flight jobs before
// abandoning them. Defaults to 10s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithExitHook installs a SIGINT/SIGTERM handler that stops the pool when
// the process terminates. Off by default; enable it for standalone worker
// binaries that have no other shutdown coordination.
func WithExitHook() Option {
	return func(c *config) {
		c.exitHook = true
	}
}

// WithOnShutdown registers a callback invoked after the pool has stopped
// and all workers have exited or been abandoned.
func WithOnShutdown(fn func()) Option {
	return func(c *config) {
		c.onShutdown = fn
	}
}

// WithClock overrides the pool clock used for archive timestamps and retry
// scheduling. Defaults to wall-clock UTC. Inject a fixed clock in tests for
// deterministic retry_at assertions.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}
