package taskpool

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/taskpool/pkg/logger"
	"github.com/dmitrymomot/taskpool/retry"
)

const (
	defaultQueue           = "default"
	defaultPollInterval    = 100 * time.Millisecond
	defaultWorkers         = 1
	defaultShutdownTimeout = 10 * time.Second

	// Jitter bounds for staggered worker startup. Staggering desynchronizes
	// the workers' claim queries so N workers starting together don't hit
	// the store with N simultaneous claims on every tick.
	minStartJitter = 100 * time.Millisecond
	maxStartJitter = 900 * time.Millisecond
)

// Pool drains a job queue with a fixed set of workers. Each worker is driven
// by a periodic tick; each tick runs one full drain pass that keeps claiming
// jobs until the queue is empty. The pool is either idle or running; Start
// and Stop are the only transitions and are safe to call concurrently from
// different goroutines. A stopped pool can be started again.
type Pool struct {
	store    Store
	registry *taskRegistry
	cfg      *config
	log      *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	done    chan struct{}
	sigCh   chan os.Signal
}

// New creates a worker pool over the given store. Configuration problems
// (nil store, invalid retry policies, malformed cron schedules) surface
// here rather than at runtime.
func New(store Store, opts ...Option) (*Pool, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}
	if cfg.poolID == "" {
		cfg.poolID = uuid.NewString()
	}

	for name, policy := range cfg.policies {
		if err := policy.Validate(); err != nil {
			return nil, fmt.Errorf("taskpool: task %q: %w", name, err)
		}
		// An explicit strategy for the task wins over its constant policy.
		if _, ok := cfg.registry.strategy(name); ok {
			continue
		}
		cfg.registry.registerStrategy(name, constantStrategy(policy))
	}

	for i := range cfg.schedules {
		parsed, err := parseCronSchedule(cfg.schedules[i].schedule)
		if err != nil {
			return nil, fmt.Errorf("taskpool: invalid cron schedule %q for task %q: %w",
				cfg.schedules[i].schedule, cfg.schedules[i].name, err)
		}
		cfg.schedules[i].parsed = parsed
	}

	return &Pool{
		store:    store,
		registry: cfg.registry,
		cfg:      cfg,
		log:      cfg.logger.With(slog.String("worker_pool", cfg.poolID)),
	}, nil
}

// constantStrategy adapts a fixed policy to the RetryStrategy shape.
func constantStrategy(policy retry.Policy) RetryStrategy {
	return func(*Job, error) (retry.Policy, bool) {
		return policy, true
	}
}

// Start transitions the pool from idle to running and reports whether the
// transition happened; starting a running pool is a no-op returning false.
//
// Start launches the workers one at a time with a randomized jitter of
// [100ms, min(900ms, poll interval)) between them and blocks the caller for
// the cumulative delay, so treat it as a slow one-time setup call, not a
// fast API. ctx is the parent of all worker contexts: cancelling it stops
// the pool.
func (p *Pool) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	p.cancel = cancel
	p.group = group
	p.done = make(chan struct{})

	if p.cfg.exitHook {
		p.sigCh = make(chan os.Signal, 1)
		signal.Notify(p.sigCh, os.Interrupt, syscall.SIGTERM)
		go func(ch chan os.Signal) {
			if _, ok := <-ch; ok {
				p.Stop()
			}
		}(p.sigCh)
	}

	for i := range p.cfg.workers {
		if i > 0 {
			time.Sleep(startJitter(p.cfg.pollInterval))
		}
		slot := i + 1
		group.Go(func() error {
			return p.runWorker(groupCtx, slot)
		})
	}

	for _, sched := range p.cfg.schedules {
		group.Go(func() error {
			return p.runSchedule(groupCtx, sched)
		})
	}

	go p.supervise(group, p.done)

	p.running = true
	p.log.Info("worker pool started",
		slog.String("queue", p.cfg.queue),
		slog.Int("workers", p.cfg.workers),
		slog.Duration("poll_interval", p.cfg.pollInterval),
		slog.Int("tasks", len(p.registry.names())),
	)
	return true
}

// Stop transitions the pool from running to idle and reports whether the
// transition happened; stopping an idle pool is a no-op returning false.
//
// Workers stop accepting new ticks immediately; Stop then waits for
// in-flight drain passes up to the shutdown timeout, after which they are
// abandoned. The on-shutdown callback runs last.
func (p *Pool) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return false
	}
	p.running = false

	if p.sigCh != nil {
		// Stopping delivery during process termination cannot fail in Go;
		// closing the channel releases the hook goroutine without a Stop call.
		signal.Stop(p.sigCh)
		close(p.sigCh)
		p.sigCh = nil
	}

	p.cancel()

	select {
	case <-p.done:
	case <-time.After(p.cfg.shutdownTimeout):
		p.log.Warn("shutdown timeout elapsed, abandoning in-flight work",
			slog.Duration("timeout", p.cfg.shutdownTimeout),
		)
	}

	if p.cfg.onShutdown != nil {
		p.cfg.onShutdown()
	}

	p.log.Info("worker pool stopped")
	return true
}

// Running reports whether the pool currently owns an active scheduler.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// supervise waits for all workers to exit and completes the lifecycle: a
// fatal drain-pass error cancels the sibling workers through the group
// context and the pool shuts itself down instead of retrying against an
// unhealthy store. The failing worker never blocks on this.
func (p *Pool) supervise(group *errgroup.Group, done chan struct{}) {
	err := group.Wait()
	close(done)
	if err != nil {
		p.log.Error("worker pool stopping after fatal error", slog.Any("error", err))
	}
	p.Stop()
}

// runWorker is one worker's tick loop: one drain pass per tick until the
// context is cancelled. A drain-pass error is returned into the group and
// ends this worker immediately.
func (p *Pool) runWorker(ctx context.Context, slot int) error {
	log := p.log.With(slog.Int("worker", slot))

	ticker := time.NewTicker(p.cfg.pollInterval)
	defer ticker.Stop()

	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping")
			return nil
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				if ctx.Err() != nil {
					// Cancellation raced the drain pass during shutdown.
					return nil
				}
				log.Error("drain pass failed", slog.Any("error", err))
				return err
			}
		}
	}
}

// startJitter picks the delay between launching successive workers. When
// the poll interval leaves no room above the floor, the floor wins.
func startJitter(pollInterval time.Duration) time.Duration {
	upper := min(maxStartJitter, pollInterval)
	if upper <= minStartJitter {
		return minStartJitter
	}
	return minStartJitter + rand.N(upper-minStartJitter)
}
