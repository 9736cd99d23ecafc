package taskpool

import (
	"context"
	"fmt"
	"time"
)

// enqueueConfig holds options for enqueueing a job.
type enqueueConfig struct {
	runAt *time.Time
	queue string
	delay time.Duration
}

// EnqueueOption configures job enqueueing.
type EnqueueOption func(*enqueueConfig)

// InQueue enqueues the job into a named queue instead of the pool's own.
// Useful when one process produces work for pools polling other queues.
//
// Example:
//
//	pool.Enqueue(ctx, "send-email", payload, taskpool.InQueue("emails"))
func InQueue(name string) EnqueueOption {
	return func(c *enqueueConfig) {
		if name != "" {
			c.queue = name
		}
	}
}

// ScheduledAt makes the job claimable no earlier than t.
//
// Example:
//
//	pool.Enqueue(ctx, "send-reminder", payload, taskpool.ScheduledAt(tomorrow))
func ScheduledAt(t time.Time) EnqueueOption {
	return func(c *enqueueConfig) {
		c.runAt = &t
	}
}

// ScheduledIn makes the job claimable after the given delay, measured on
// the pool clock.
//
// Example:
//
//	pool.Enqueue(ctx, "send-reminder", payload, taskpool.ScheduledIn(24*time.Hour))
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) {
		c.delay = d
	}
}

// Enqueue inserts a job for a registered task. The payload is encoded with
// the pool's serializer; by default the job is claimable immediately in the
// pool's queue.
func (p *Pool) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	if _, ok := p.registry.get(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}

	var encoded string
	if payload != nil {
		var err error
		encoded, err = p.cfg.serializer.Encode(payload)
		if err != nil {
			return fmt.Errorf("taskpool: encode payload: %w", err)
		}
	}

	cfg := &enqueueConfig{queue: p.cfg.queue}
	for _, opt := range opts {
		opt(cfg)
	}

	runAt := p.cfg.clock()
	if cfg.runAt != nil {
		runAt = *cfg.runAt
	} else if cfg.delay > 0 {
		runAt = runAt.Add(cfg.delay)
	}

	if _, err := p.store.Enqueue(ctx, cfg.queue, name, encoded, runAt); err != nil {
		return fmt.Errorf("taskpool: enqueue: %w", err)
	}
	return nil
}
