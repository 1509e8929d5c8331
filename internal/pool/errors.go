package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolShutdown is returned by Schedule once Shutdown or Close has begun.
	ErrPoolShutdown = errors.New("pool is shut down")

	// ErrNilTask is returned by Schedule for a nil task.
	ErrNilTask = errors.New("task is nil")

	// ErrInvalidConfig is returned by New when an option is out of range.
	ErrInvalidConfig = errors.New("invalid pool config")
)

func errInvalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// TaskError records a task that returned an error or panicked.
//
// The worker that ran the task survives; the error is surfaced by the next
// BlockUntilIdle or Shutdown call.
type TaskError struct {
	// Slot is the index of the worker that ran the task.
	Slot int
	// Err is the error returned by the task, or an error describing the panic.
	Err error
	// Panic holds the recovered value when the task panicked.
	Panic any
	// Stack is the goroutine stack captured at the panic, if any.
	Stack []byte
}

func (e *TaskError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("worker %d: task panicked: %v", e.Slot, e.Panic)
	}
	return fmt.Sprintf("worker %d: task failed: %v", e.Slot, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
