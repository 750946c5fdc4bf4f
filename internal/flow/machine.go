package flow

import "github.com/greenrack/greenrack-core/internal/task"

// Job is the machine's view of the active transfer: direction and
// target. The supervisor holds the rest (tray id, metadata, cached
// statuses) outside the transition function.
type Job struct {
	Type        JobType
	TargetFloor int
	TargetSlot  int
}

// Machine is the pure transition logic for one station.
// It holds only fixed wiring facts; all job state comes in through
// Transition's arguments and goes out through its results.
type Machine struct {
	// HomeFloor is the workstation floor. When a job targets it the
	// lift is skipped entirely and the AGV runs direct.
	HomeFloor int
}

// liftUsed reports whether the job needs the lift. The lift is a
// scarce shared resource; jobs on the home floor never engage it.
func (m Machine) liftUsed(job Job) bool {
	return job.TargetFloor != m.HomeFloor
}

// Transition advances the flow by one event: (state, event) -> (state,
// effects). It performs no I/O and mutates nothing.
//
// The AGV fault check runs before any state handling: a faulted AGV
// aborts the flow from every non-idle state, discarding in-flight
// progress. No other event is ever interpreted in more than one state,
// so unexpected events fall through unchanged.
func (m Machine) Transition(state State, job Job, ev Event) (State, []Effect) {
	if agv, ok := ev.(AGVStatusEvent); ok && agv.IsError() && state != StateIdle {
		return StateIdle, abortEffects("agv reported error")
	}

	switch state {
	case StateInboundWaitForTrayLift:
		if _, ok := ev.(TrayActionDoneEvent); ok {
			return m.departHome(job, true)
		}

	case StateWaitAGVAtLift:
		if agv, ok := ev.(AGVStatusEvent); ok && agv.Location == AGVLocationAtLift {
			return StateLiftMovingUp, []Effect{
				CmdLiftMoveTo{Floor: job.TargetFloor, Settle: true},
			}
		}

	case StateLiftMovingUp:
		if lift, ok := ev.(LiftStatusEvent); ok && !lift.Moving && lift.Floor == job.TargetFloor {
			return StateWaitAGVAtSlot, []Effect{
				CmdAGVGoto{Dest: AGVToSlot, Settle: true},
			}
		}

	case StateWaitAGVAtSlot:
		if agv, ok := ev.(AGVStatusEvent); ok && agv.Location == AGVLocationAtSlot {
			action := TrayPlace
			if job.Type == JobOutbound {
				action = TrayPickup
			}
			return StateWaitTrayActionDone, []Effect{
				CmdTrayAction{Action: action, Settle: true},
			}
		}

	case StateWaitTrayActionDone:
		if _, ok := ev.(TrayActionDoneEvent); ok {
			effects := []Effect{PersistArrival{}}
			if m.liftUsed(job) {
				return StateWaitAGVReturnToLift, append(effects,
					CmdAGVGoto{Dest: AGVToLift, Settle: true})
			}
			return StateWaitAGVHome, append(effects,
				CmdAGVGoto{Dest: AGVToHome, Settle: true})
		}

	case StateWaitAGVReturnToLift:
		if agv, ok := ev.(AGVStatusEvent); ok && agv.Location == AGVLocationAtLift {
			return StateLiftMovingDown, []Effect{
				CmdLiftMoveTo{Floor: m.HomeFloor, Settle: true},
			}
		}

	case StateLiftMovingDown:
		if lift, ok := ev.(LiftStatusEvent); ok && !lift.Moving && lift.Floor == m.HomeFloor {
			return StateWaitAGVHome, []Effect{
				CmdAGVGoto{Dest: AGVToHome, Settle: true},
			}
		}

	case StateWaitAGVHome:
		if agv, ok := ev.(AGVStatusEvent); ok && agv.Location == AGVLocationHome {
			if job.Type == JobOutbound {
				// Hand the tray off onto the workstation conveyor.
				return StateOutboundWaitForFinalPlace, []Effect{
					CmdTrayAction{Action: TrayPlace, Settle: true},
				}
			}
			// Inbound flow is complete.
			return StateIdle, []Effect{
				TaskTransition{From: task.StatusWorking, To: task.StatusSuccess},
				ResetStation{},
			}
		}

	case StateOutboundWaitForFinalPlace:
		if _, ok := ev.(TrayActionDoneEvent); ok {
			// Physical work done; the task stays open at the
			// workstation until the operator confirms or disposes.
			return StateIdle, []Effect{
				TaskTransition{From: task.StatusWorking, To: task.StatusAtWorkstation},
				ResetStation{},
			}
		}
	}

	return state, nil
}

// StartInbound computes the entry transition for an inbound job.
// The tray gripper lifts the tray off the workstation first; the AGV
// moves only after the gripper acknowledges.
func (m Machine) StartInbound() (State, []Effect) {
	return StateInboundWaitForTrayLift, []Effect{
		TaskTransition{From: task.StatusPending, To: task.StatusWorking},
		CmdTrayAction{Action: TrayPickup},
	}
}

// StartOutbound computes the entry transition for an outbound job: the
// AGV departs empty toward the slot, via the lift when needed.
func (m Machine) StartOutbound(job Job) (State, []Effect) {
	state, effects := m.departHome(job, false)
	return state, append([]Effect{
		TaskTransition{From: task.StatusPending, To: task.StatusWorking},
	}, effects...)
}

// departHome sends the AGV from home toward the target slot, engaging
// the lift only when the target floor differs from home.
func (m Machine) departHome(job Job, settle bool) (State, []Effect) {
	if m.liftUsed(job) {
		return StateWaitAGVAtLift, []Effect{CmdAGVGoto{Dest: AGVToLift, Settle: settle}}
	}
	return StateWaitAGVAtSlot, []Effect{CmdAGVGoto{Dest: AGVToSlot, Settle: settle}}
}

// abortEffects is the unconditional fault path: mark the task failed
// and reset. The working->error transition also covers tasks still
// pending via the repository's lifecycle rules.
func abortEffects(detail string) []Effect {
	return []Effect{
		TaskTransition{From: task.StatusWorking, To: task.StatusError, Detail: detail},
		ResetStation{},
	}
}
