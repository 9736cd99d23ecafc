// Package retry computes retry schedules for failed background jobs.
//
// A Policy describes how many times a job may be retried and with which
// backoff delays. Plan turns a policy, the number of attempts already made,
// and the current time into a Decision: either "retry at this instant" or
// "retries exhausted". Plan is a pure function with no dependencies, which
// keeps backoff math trivially testable with a fixed clock.
package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy is returned by Policy.Validate for policies with negative
// retry counts or negative delays. An invalid policy is a configuration
// defect; validate at registration time rather than on the hot path.
var ErrInvalidPolicy = errors.New("retry: invalid policy")

// Policy is the per-task retry configuration. Retries is the maximum number
// of retries after the first attempt. Delays is an ordered backoff schedule
// indexed by attempt number; when a job has made more attempts than there
// are delays, the last delay is reused. An empty or nil Delays means retry
// immediately. Policies are immutable once registered.
type Policy struct {
	Retries int
	Delays  []time.Duration
}

// Validate reports whether the policy is well formed.
func (p Policy) Validate() error {
	if p.Retries < 0 {
		return fmt.Errorf("%w: negative retries %d", ErrInvalidPolicy, p.Retries)
	}
	for i, d := range p.Delays {
		if d < 0 {
			return fmt.Errorf("%w: negative delay %s at index %d", ErrInvalidPolicy, d, i)
		}
	}
	return nil
}

// Decision is the outcome of planning one failed attempt. RetryAt is set
// iff RetriesLeft > 0; a zero RetryAt means the job's retries are exhausted
// and it should be archived as failed. A Decision is consumed immediately,
// only its effect (a reschedule timestamp or a terminal archive) persists.
type Decision struct {
	RetriesLeft int
	RetryAt     time.Time
}

// Plan computes the retry decision for a job that has just failed its
// attempts-th execution. now is the pool clock's current time.
//
// The delay for attempt n is Delays[n-1], clamped to the last element when
// the schedule is shorter than the retry budget, so callers need not
// enumerate an unbounded delay list. Calling Plan with an invalid policy or
// attempts < 1 is a programming error; validate policies up front.
func Plan(p Policy, attempts int, now time.Time) Decision {
	if p.Retries == 0 {
		return Decision{}
	}

	left := p.Retries + 1 - attempts
	if left <= 0 {
		return Decision{}
	}

	var delay time.Duration
	if len(p.Delays) > 0 {
		idx := attempts - 1
		if idx >= len(p.Delays) {
			idx = len(p.Delays) - 1
		}
		delay = p.Delays[idx]
	}

	return Decision{
		RetriesLeft: left,
		RetryAt:     now.Add(delay),
	}
}
