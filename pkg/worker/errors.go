package worker

import "errors"

// Pool errors. They are returned unwrapped so callers can compare with errors.Is.
var (
	ErrPoolNotStarted     = errors.New("worker pool not started")
	ErrPoolStopped        = errors.New("worker pool stopped")
	ErrPoolAlreadyStarted = errors.New("worker pool already started")
	// ErrQueueFull is only returned by pools created with a positive queue size.
	ErrQueueFull    = errors.New("worker pool queue full")
	ErrNilProcessor = errors.New("processor function cannot be nil")
	ErrStopTimeout  = errors.New("timeout waiting for workers to stop")
)
