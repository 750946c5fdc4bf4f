package task

import "errors"

var (
	// ErrTaskNotFound indicates the task id does not exist.
	ErrTaskNotFound = errors.New("task: not found")

	// ErrTaskExists indicates a task with the same id already exists.
	ErrTaskExists = errors.New("task: already exists")

	// ErrInvalidTransition indicates a status move outside the allowed
	// lifecycle.
	ErrInvalidTransition = errors.New("task: invalid status transition")

	// ErrInvalidTask indicates a task failed validation before insert.
	ErrInvalidTask = errors.New("task: invalid task")
)
