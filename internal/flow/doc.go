// Package flow coordinates each station's lift, AGV and tray gripper
// into one consistent job at a time.
//
// The heart is a pure transition function: (state, event) -> (state,
// effects). The Supervisor owns one machine per station, feeds it
// typed events parsed from device status topics, and applies the
// resulting effects: paced command submissions through the dispatcher,
// task and tray inventory writes, and broadcasts.
//
// Hard rules the machines live by:
//
//   - One active job per station. A start on a busy station is
//     rejected, never queued.
//   - An AGV fault aborts the flow from any state, before any other
//     handling. No retries anywhere; recovery is a fresh start call.
//   - Settle delays are scheduled deferred submissions, never sleeps.
//   - The lift is engaged only when the target floor differs from the
//     station's home floor.
//   - An outbound job parks its task at the workstation and frees the
//     station; logical closure waits for operator confirm/dispose.
//
// There is no timeout on wait states. A station stuck waiting for an
// event that never arrives is recovered by an operator, not by a
// timer.
package flow
