package flow

import (
	"fmt"

	"github.com/greenrack/greenrack-core/internal/dispatch"
)

// LiftAction is a manual lift command issued by an operator, outside
// any flow.
type LiftAction string

const (
	LiftMoveTo    LiftAction = "moveTo"
	LiftJogUp     LiftAction = "jogUp"
	LiftJogDown   LiftAction = "jogDown"
	LiftStop      LiftAction = "stop"
	LiftEmergency LiftAction = "emergency"
)

// IsValid reports whether the action is a known lift command.
func (a LiftAction) IsValid() bool {
	switch a {
	case LiftMoveTo, LiftJogUp, LiftJogDown, LiftStop, LiftEmergency:
		return true
	}
	return false
}

// interrupts reports whether the action may be issued while a flow is
// active. Halting the hardware must never wait for the machine.
func (a LiftAction) interrupts() bool {
	return a == LiftStop || a == LiftEmergency
}

// LiftCommand issues a manual lift command for a station's lift.
//
// moveTo, jogUp and jogDown are rejected with ErrBusy while a flow is
// active, since they would fight the machine over the same axis. stop
// and emergency pass in any state; the interruption is broadcast so
// observers can see an operator cut in, and a flow left waiting for a
// lift acknowledgment after an emergency is resolved by the operator
// through dispose.
func (s *Supervisor) LiftCommand(stationID int, action LiftAction, floor int) error {
	if !action.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLiftAction, action)
	}
	if action == LiftMoveTo && floor < 1 {
		return fmt.Errorf("%w: moveTo requires a floor", ErrInvalidLiftAction)
	}

	st, err := s.station(stationID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.state.IsIdle() && !action.interrupts() {
		return fmt.Errorf("%w: station %d in state %s", ErrBusy, stationID, st.state)
	}

	payload := map[string]interface{}{"action": string(action)}
	if action == LiftMoveTo {
		payload["floor"] = floor
	}
	s.submit(dispatch.ClassLift, s.topics.LiftCommand(stationID), payload, false)

	s.broadcast("lift_manual_command", map[string]interface{}{
		"station_id": stationID,
		"action":     action,
		"flow_state": st.state,
	})
	s.log.Info("manual lift command",
		"station", stationID, "action", string(action), "state", string(st.state))
	return nil
}
