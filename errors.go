package taskpool

import "errors"

// Pool errors. All of these surface at construction or enqueue time;
// handler failures never escape the drain pass as errors.
var (
	// ErrStoreRequired is returned when attempting to create a pool
	// without providing a job store.
	ErrStoreRequired = errors.New("taskpool: store is required")

	// ErrUnknownTask is returned when enqueueing or executing a task
	// that has not been registered.
	ErrUnknownTask = errors.New("taskpool: unknown task")

	// ErrInvalidPayload is returned when a stored payload cannot be
	// decoded into the task's expected type.
	ErrInvalidPayload = errors.New("taskpool: invalid payload")
)
