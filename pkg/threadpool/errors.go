package threadpool

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkerCount is returned by New when the configured worker
	// count is zero or negative.
	ErrInvalidWorkerCount = errors.New("threadpool: worker count must be positive")

	// ErrNilJob is returned by Execute for a nil job.
	ErrNilJob = errors.New("threadpool: nil job")

	// ErrPoolClosed is returned by Execute once Close has begun.
	ErrPoolClosed = errors.New("threadpool: pool is closed")

	// ErrSpawn is returned by New when a worker could not be started. The
	// workers that did start have already been terminated and joined.
	ErrSpawn = errors.New("threadpool: spawn worker")
)

// PanicError reports a job panic. The panic killed the worker that ran the
// job; Close surfaces one PanicError per dead worker.
type PanicError struct {
	// Worker is the name of the worker the job died on.
	Worker string

	// Value is the value the job panicked with.
	Value interface{}

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("threadpool: worker %s: job panicked: %v", e.Worker, e.Value)
}
