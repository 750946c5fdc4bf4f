package tray

import "time"

// Status is the inventory state of a tray.
type Status string

const (
	// StatusStored means the tray occupies its floor/slot.
	StatusStored Status = "stored"

	// StatusOutbound means the tray has been picked for retrieval and
	// no longer blocks its slot.
	StatusOutbound Status = "outbound"

	// StatusRemoved means the tray left the warehouse.
	StatusRemoved Status = "removed"
)

// IsValid returns true for a known status value.
func (s Status) IsValid() bool {
	return s == StatusStored || s == StatusOutbound || s == StatusRemoved
}

// Tray is one physical growing tray and its warehouse location.
// A tray only counts toward slot occupancy while stored.
type Tray struct {
	// ID is a UUID assigned when the tray enters the warehouse.
	ID string `json:"id"`

	Status Status `json:"status"`

	// Floor and Slot locate the tray while stored. For outbound and
	// removed trays they record the last stored location.
	Floor int `json:"floor"`
	Slot  int `json:"slot"`

	// StationID is the station that stored the tray.
	StationID int `json:"station_id"`

	// Plant metadata from the upstream planting plan.
	Species  string     `json:"species,omitempty"`
	Quantity int        `json:"quantity,omitempty"`
	BatchID  string     `json:"batch_id,omitempty"`
	SeededAt *time.Time `json:"seeded_at,omitempty"`
	Notes    string     `json:"notes,omitempty"`

	// Irrigation bookkeeping, updated by the water subsystem.
	WaterLevel  float64    `json:"water_level"`
	LastWatered *time.Time `json:"last_watered,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
