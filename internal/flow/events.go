package flow

import (
	"encoding/json"
	"fmt"
)

// Event is a typed inbound occurrence for one station's machine.
// Events are produced by the topic router from raw MQTT payloads and
// consumed in arrival order.
type Event interface {
	isEvent()
}

// LiftStatusEvent is a lift controller status report.
type LiftStatusEvent struct {
	// Floor is the lift's current floor.
	Floor int `json:"floor"`

	// Moving is true while the lift travels between floors.
	Moving bool `json:"moving"`

	// Emergency and Recovery flag fault conditions on the lift.
	Emergency bool `json:"emergency"`
	Recovery  bool `json:"recovery"`

	// Step is the raw encoder position, informational only.
	Step int `json:"step"`
}

func (LiftStatusEvent) isEvent() {}

// AGV status and location values as the vehicles report them.
const (
	AGVStatusIdle   = "idle"
	AGVStatusMoving = "moving"
	AGVStatusError  = "error"

	AGVLocationHome   = "home"
	AGVLocationAtLift = "at_lift"
	AGVLocationAtSlot = "at_slot"
)

// AGVStatusEvent is a shuttle vehicle status report.
type AGVStatusEvent struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

func (AGVStatusEvent) isEvent() {}

// IsError reports an AGV hardware fault. Every machine checks this
// before any state handling; a faulted AGV aborts the flow
// unconditionally.
func (e AGVStatusEvent) IsError() bool {
	return e.Status == AGVStatusError
}

// TrayActionDoneEvent is the tray mechanism's acknowledgment signal.
// The payload carries no content; arrival is the information.
type TrayActionDoneEvent struct{}

func (TrayActionDoneEvent) isEvent() {}

// ParseLiftStatus decodes a lift status payload.
func ParseLiftStatus(payload []byte) (LiftStatusEvent, error) {
	var ev LiftStatusEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return LiftStatusEvent{}, fmt.Errorf("%w: lift status: %w", ErrProtocol, err)
	}
	return ev, nil
}

// ParseAGVStatus decodes an AGV status payload.
func ParseAGVStatus(payload []byte) (AGVStatusEvent, error) {
	var ev AGVStatusEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return AGVStatusEvent{}, fmt.Errorf("%w: agv status: %w", ErrProtocol, err)
	}
	if ev.Status == "" {
		return AGVStatusEvent{}, fmt.Errorf("%w: agv status missing status field", ErrProtocol)
	}
	return ev, nil
}
