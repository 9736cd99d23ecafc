package taskpool

import (
	"context"
	"errors"
)

// ErrHealthcheckFailed is returned when the worker pool health check fails.
var ErrHealthcheckFailed = errors.New("taskpool: healthcheck failed")

var (
	errPoolNil        = errors.New("pool is nil")
	errPoolNotRunning = errors.New("pool not running")
)

// Healthcheck returns a health check function for the worker pool.
// The check verifies that the pool is running and, when the store can be
// pinged, that the backing database is reachable.
//
// Example:
//
//	http.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
//	    if err := taskpool.Healthcheck(pool)(r.Context()); err != nil {
//	        http.Error(w, err.Error(), http.StatusServiceUnavailable)
//	        return
//	    }
//	    w.WriteHeader(http.StatusOK)
//	})
func Healthcheck(p *Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if p == nil {
			return errors.Join(ErrHealthcheckFailed, errPoolNil)
		}

		if !p.Running() {
			return errors.Join(ErrHealthcheckFailed, errPoolNotRunning)
		}

		if pinger, ok := p.store.(interface{ Ping(context.Context) error }); ok {
			if err := pinger.Ping(ctx); err != nil {
				return errors.Join(ErrHealthcheckFailed, err)
			}
		}

		return nil
	}
}
