package flow

import "errors"

var (
	// ErrBusy indicates a start request while a flow is active.
	// Rejected, never queued.
	ErrBusy = errors.New("flow: station busy")

	// ErrUnknownStation indicates a station id with no machine.
	ErrUnknownStation = errors.New("flow: unknown station")

	// ErrNotFound indicates no occupant at the requested floor/slot.
	ErrNotFound = errors.New("flow: no tray at location")

	// ErrNoOpenTask indicates a confirm/dispose with no task parked at
	// the workstation.
	ErrNoOpenTask = errors.New("flow: no task at workstation")

	// ErrProtocol indicates a malformed inbound payload. Logged and
	// surfaced raw; never drives a control decision.
	ErrProtocol = errors.New("flow: protocol error")

	// ErrInvalidLiftAction indicates a manual lift command with an
	// unknown action, or a moveTo without a floor.
	ErrInvalidLiftAction = errors.New("flow: invalid lift action")

	// ErrClosed indicates an operation on a stopped supervisor.
	ErrClosed = errors.New("flow: supervisor closed")
)
