package flow

import "github.com/greenrack/greenrack-core/internal/task"

// Effect is a side effect requested by a transition. The machine never
// performs effects itself; the supervisor applies them, which keeps
// the transition function pure and directly testable.
type Effect interface {
	isEffect()
}

// TrayAction is a tray gripper command.
type TrayAction string

const (
	TrayPickup TrayAction = "pickup_tray"
	TrayPlace  TrayAction = "place_tray"
)

// AGVDest is a shuttle destination.
type AGVDest string

const (
	AGVToLift AGVDest = "lift"
	AGVToSlot AGVDest = "slot"
	AGVToHome AGVDest = "home"
)

// CmdTrayAction requests a tray gripper command.
type CmdTrayAction struct {
	Action TrayAction

	// Settle delays the submission by the settle window, absorbing
	// sensor bounce after the preceding mechanical acknowledgment.
	Settle bool
}

func (CmdTrayAction) isEffect() {}

// CmdAGVGoto requests a shuttle movement command.
type CmdAGVGoto struct {
	Dest   AGVDest
	Settle bool
}

func (CmdAGVGoto) isEffect() {}

// CmdLiftMoveTo requests a lift movement command.
type CmdLiftMoveTo struct {
	Floor  int
	Settle bool
}

func (CmdLiftMoveTo) isEffect() {}

// PersistArrival requests the inventory write for the slot visit:
// insert the tray row (inbound) or flip it to outbound (outbound).
// A failed write aborts the flow rather than risking duplicate
// physical actuation on a stale assumption.
type PersistArrival struct{}

func (PersistArrival) isEffect() {}

// TaskTransition requests a task status move.
type TaskTransition struct {
	From   task.Status
	To     task.Status
	Detail string
}

func (TaskTransition) isEffect() {}

// ResetStation requests the station return to idle with its job state
// cleared. The task may remain open (outbound hand-off).
type ResetStation struct{}

func (ResetStation) isEffect() {}
