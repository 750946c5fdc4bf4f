package task

import "time"

// Status is the lifecycle state of a transfer task.
type Status string

// Task lifecycle states.
//
// Inbound tasks walk pending -> working -> success (or error).
// Outbound tasks stop at at_workstation while the operator handles the
// tray, then finish with success (confirm) or error (dispose).
const (
	StatusPending       Status = "pending"
	StatusWorking       Status = "working"
	StatusSuccess       Status = "success"
	StatusError         Status = "error"
	StatusAtWorkstation Status = "at_workstation"
)

// IsValid returns true for a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusWorking, StatusSuccess, StatusError, StatusAtWorkstation:
		return true
	}
	return false
}

// IsTerminal returns true once a task can no longer change status.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Direction indicates which way a task moves a tray.
type Direction string

const (
	// DirectionInbound moves a tray from the workstation into a slot.
	DirectionInbound Direction = "inbound"

	// DirectionOutbound retrieves a tray from a slot to the workstation.
	DirectionOutbound Direction = "outbound"
)

// IsValid returns true for a known direction value.
func (d Direction) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Task is a transfer order: move one tray between the operator
// workstation and a warehouse slot, carried out by one station's flow.
type Task struct {
	// ID is a UUID assigned at creation.
	ID string `json:"id"`

	// StationID is the station executing the transfer.
	StationID int `json:"station_id"`

	Direction Direction `json:"direction"`
	Status    Status    `json:"status"`

	// TrayID links the task to a tray inventory row. Empty for inbound
	// tasks until the tray row is created on completion.
	TrayID string `json:"tray_id,omitempty"`

	// TargetFloor and TargetSlot name the warehouse location the tray
	// moves to (inbound) or from (outbound).
	TargetFloor int `json:"target_floor"`
	TargetSlot  int `json:"target_slot"`

	// WorkOrderID and PlantingPlanID tie the task back to the upstream
	// production planning system. Informational only.
	WorkOrderID    string `json:"work_order_id,omitempty"`
	PlantingPlanID string `json:"planting_plan_id,omitempty"`

	// Detail carries a human-readable note, set on error transitions.
	Detail string `json:"detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// validTransitions maps each status to the statuses it may move to.
var validTransitions = map[Status][]Status{
	StatusPending:       {StatusWorking, StatusError},
	StatusWorking:       {StatusSuccess, StatusError, StatusAtWorkstation},
	StatusAtWorkstation: {StatusSuccess, StatusError},
}

// CanTransition reports whether from -> to is a legal status move.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
