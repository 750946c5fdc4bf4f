package dispatch

import "errors"

var (
	// ErrClosed indicates a submission after Close.
	ErrClosed = errors.New("dispatch: dispatcher closed")

	// ErrUnknownClass indicates a class with no queue.
	ErrUnknownClass = errors.New("dispatch: unknown device class")
)
