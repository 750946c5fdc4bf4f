package lighting

import (
	"encoding/json"
	"fmt"

	"github.com/greenrack/greenrack-core/internal/dispatch"
)

// Direction is the dimming direction.
type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
)

// IsValid returns true for a known direction.
func (d Direction) IsValid() bool {
	return d == DirUp || d == DirDown
}

// envelope is the JSON command the serial bridging device consumes.
// Distance carries the hex-encoded register write frame; the bridge
// retransmits those bytes on the physical bus untouched.
type envelope struct {
	Key      string `json:"key"`
	Command  string `json:"command"`
	Layer    int    `json:"layer"`
	Dir      string `json:"dir"`
	Distance string `json:"distance"`
}

// Submitter is the slice of the dispatcher the controller needs.
type Submitter interface {
	Submit(class dispatch.Class, cmd dispatch.Command) error
}

// Controller drives the addressable lighting/fan modules.
//
// It resolves targets through the address table, frames register
// writes, and submits the enveloped command to the dispatcher's
// lighting queue. Stateless: brightness lives in the modules.
type Controller struct {
	table      *AddressTable
	dispatcher Submitter

	topic string
	key   string
}

// NewController creates a lighting controller.
// topic and key come from the lighting config section.
func NewController(table *AddressTable, dispatcher Submitter, topic, key string) *Controller {
	return &Controller{
		table:      table,
		dispatcher: dispatcher,
		topic:      topic,
		key:        key,
	}
}

// Dim adjusts a floor's light or fan by amount in the given direction.
//
// The register write frame carries the amount; layer and dir travel in
// the envelope for the bridge's channel selection.
func (c *Controller) Dim(floor int, deviceType DeviceType, dir Direction, amount uint16) error {
	if !dir.IsValid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidCommand, dir)
	}

	addr, err := c.table.Lookup(floor, deviceType)
	if err != nil {
		return err
	}

	frame := WriteRegister(addr.SlaveAddr, addr.Register, amount)
	payload, err := json.Marshal(envelope{
		Key:      c.key,
		Command:  "DIM",
		Layer:    addr.Layer,
		Dir:      string(dir),
		Distance: frame.Hex(),
	})
	if err != nil {
		return fmt.Errorf("encoding dim command: %w", err)
	}

	return c.dispatcher.Submit(dispatch.ClassLighting, dispatch.Command{
		Topic:   c.topic,
		Payload: payload,
		QoS:     1,
	})
}
