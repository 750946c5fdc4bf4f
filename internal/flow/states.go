package flow

// State is the flow position of one station's job.
//
// idle is the only resting state; every sequence runs from idle back
// to idle via explicit completion, explicit error, or administrative
// confirmation. A station in any other state rejects new work.
type State string

const (
	StateIdle State = "idle"

	// StateStart is the outbound entry point: the AGV leaves empty to
	// fetch a tray from storage.
	StateStart State = "start"

	// Inbound entry: the tray gripper lifts the new tray off the
	// workstation conveyor before the AGV moves anywhere.
	StateInboundStartLiftTray   State = "inbound_start_lift_tray"
	StateInboundWaitForTrayLift State = "inbound_wait_for_tray_lift"

	// Travel toward the target slot.
	StateWaitAGVAtLift State = "wait_agv_at_lift"
	StateLiftMovingUp  State = "lift_moving_up"
	StateWaitAGVAtSlot State = "wait_agv_at_slot"

	// The place (inbound) or pickup (outbound) at the slot.
	StateWaitTrayActionDone State = "wait_tray_action_done"

	// Return leg toward home.
	StateWaitAGVReturnToLift State = "wait_agv_return_to_lift"
	StateLiftMovingDown      State = "lift_moving_down"
	StateWaitAGVHome         State = "wait_agv_home"

	// Outbound hand-off: the tray is placed onto the workstation and
	// awaits the gripper's acknowledgment.
	StateOutboundWaitForFinalPlace State = "outbound_wait_for_final_place"

	StateDone State = "done"
)

// String returns the wire name of the state.
func (s State) String() string {
	return string(s)
}

// IsIdle reports whether the station can accept a new job.
func (s State) IsIdle() bool {
	return s == StateIdle
}

// waitsForTrayAction reports whether the state consumes a tray-action
// acknowledgment.
func (s State) waitsForTrayAction() bool {
	switch s {
	case StateInboundWaitForTrayLift, StateWaitTrayActionDone, StateOutboundWaitForFinalPlace:
		return true
	}
	return false
}

// JobType distinguishes the two transfer directions.
type JobType string

const (
	JobNone     JobType = "none"
	JobInbound  JobType = "inbound"
	JobOutbound JobType = "outbound"
)
