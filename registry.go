package taskpool

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/taskpool/retry"
)

// RetryStrategy supplies the retry policy for a job given the error its
// handler raised. Returning false means no retry is configured for this
// failure and the job is archived as failed immediately.
type RetryStrategy func(job *Job, err error) (retry.Policy, bool)

// taskExecutor is the internal interface for type-erased task execution.
// This allows storing tasks with different payload types in a single registry.
type taskExecutor interface {
	Execute(ctx context.Context, codec Serializer, payload string) error
}

// taskRegistry stores registered task executors and retry strategies by name.
type taskRegistry struct {
	executors  map[string]taskExecutor
	strategies map[string]RetryStrategy
	mu         sync.RWMutex
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{
		executors:  make(map[string]taskExecutor),
		strategies: make(map[string]RetryStrategy),
	}
}

func (r *taskRegistry) register(name string, executor taskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = executor
}

func (r *taskRegistry) registerStrategy(name string, strategy RetryStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[name] = strategy
}

// get retrieves a task executor by name.
func (r *taskRegistry) get(name string) (taskExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[name]
	return executor, ok
}

// strategy retrieves the retry strategy registered for a task name.
func (r *taskRegistry) strategy(name string) (RetryStrategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	strategy, ok := r.strategies[name]
	return strategy, ok
}

// names returns all registered task names.
func (r *taskRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Collect(maps.Keys(r.executors))
}

// taskWrapper wraps a typed task handler for type-erased storage.
// It decodes stored payloads through the pool's serializer and calls the
// typed handler.
type taskWrapper[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}] struct {
	task T
}

func newTaskWrapper[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) *taskWrapper[P, T] {
	return &taskWrapper[P, T]{task: task}
}

// Execute decodes the payload and calls the typed handler.
func (w *taskWrapper[P, T]) Execute(ctx context.Context, codec Serializer, payload string) error {
	var p P
	if payload != "" {
		if err := codec.Decode(payload, &p); err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
	}
	return w.task.Handle(ctx, p)
}

// scheduledTaskExecutor adapts a payload-less scheduled handler to the
// executor interface.
type scheduledTaskExecutor struct {
	handler func(context.Context) error
}

func (e *scheduledTaskExecutor) Execute(ctx context.Context, _ Serializer, _ string) error {
	return e.handler(ctx)
}
