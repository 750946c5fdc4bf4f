package tray

import "errors"

var (
	// ErrTrayNotFound indicates the tray id does not exist.
	ErrTrayNotFound = errors.New("tray: not found")

	// ErrSlotOccupied indicates a stored tray already sits in the slot.
	ErrSlotOccupied = errors.New("tray: slot occupied")

	// ErrSlotEmpty indicates no stored tray sits in the slot.
	ErrSlotEmpty = errors.New("tray: slot empty")

	// ErrInvalidLocation indicates a floor or slot outside the warehouse.
	ErrInvalidLocation = errors.New("tray: invalid location")

	// ErrNoEmptySlots indicates the warehouse cannot fit the request.
	ErrNoEmptySlots = errors.New("tray: not enough empty slots")
)
