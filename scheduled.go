package taskpool

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleConfig holds one periodic task's cron schedule. parsed is filled
// in by New after validation.
type scheduleConfig struct {
	parsed   cron.Schedule
	name     string
	schedule string
}

// parseCronSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func parseCronSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// runSchedule enqueues one job of the scheduled task's type at every cron
// fire. The job then flows through the normal claim/execute cycle, so a
// scheduled task shares retry and archive semantics with enqueued work.
// Like a drain pass, an enqueue failure is treated as a store failure and
// shuts the pool down.
func (p *Pool) runSchedule(ctx context.Context, sched scheduleConfig) error {
	log := p.log.With(
		slog.String("task", sched.name),
		slog.String("schedule", sched.schedule),
	)

	log.Debug("schedule started")

	for {
		next := sched.parsed.Next(p.cfg.clock())

		// Wait measured on the pool clock so an injected clock shifts the
		// schedule along with the rest of the pool.
		timer := time.NewTimer(next.Sub(p.cfg.clock()))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Debug("schedule stopping")
			return nil
		case <-timer.C:
		}

		if _, err := p.store.Enqueue(ctx, p.cfg.queue, sched.name, "", p.cfg.clock()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("enqueue scheduled task failed", slog.Any("error", err))
			return err
		}

		log.DebugContext(ctx, "scheduled task enqueued", slog.Time("fired_at", next))
	}
}
