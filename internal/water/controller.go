package water

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/greenrack/greenrack-core/internal/dispatch"
	"github.com/greenrack/greenrack-core/internal/infrastructure/mqtt"
	"github.com/greenrack/greenrack-core/internal/tray"
)

// Command names understood by the station water controllers.
const (
	CmdValveOpen    = "valve_open"
	CmdValveClose   = "valve_close"
	CmdPumpStart    = "pump_start"
	CmdPumpStop     = "pump_stop"
	CmdNutrientDose = "nutrient_dose"
)

var (
	// ErrInvalidDose indicates a dose outside the accepted range.
	ErrInvalidDose = errors.New("water: invalid dose")

	// ErrInvalidDuration indicates a non-positive pump duration.
	ErrInvalidDuration = errors.New("water: invalid duration")
)

// Submitter is the dispatcher surface the controller drives.
type Submitter interface {
	Submit(class dispatch.Class, cmd dispatch.Command) error
}

// Controller issues point commands to the per-station irrigation
// hardware. Commands are fire and forget; the water system has no
// flow machine and never blocks a transfer.
type Controller struct {
	dispatcher Submitter
	trays      tray.Repository
	topics     mqtt.Topics
}

// New creates a water controller. trays may be nil when irrigation
// events should not be recorded against the inventory.
func New(dispatcher Submitter, trays tray.Repository) *Controller {
	return &Controller{dispatcher: dispatcher, trays: trays}
}

// OpenValve opens a station's irrigation valve.
func (c *Controller) OpenValve(stationID int) error {
	return c.send(stationID, map[string]interface{}{"command": CmdValveOpen})
}

// CloseValve closes a station's irrigation valve.
func (c *Controller) CloseValve(stationID int) error {
	return c.send(stationID, map[string]interface{}{"command": CmdValveClose})
}

// RunPump runs a station's pump for the given duration.
func (c *Controller) RunPump(stationID int, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}
	return c.send(stationID, map[string]interface{}{
		"command":     CmdPumpStart,
		"duration_ms": d.Milliseconds(),
	})
}

// StopPump stops a station's pump immediately.
func (c *Controller) StopPump(stationID int) error {
	return c.send(stationID, map[string]interface{}{"command": CmdPumpStop})
}

// Dose injects ml milliliters of nutrient solution at a station.
func (c *Controller) Dose(stationID int, ml float64) error {
	if ml <= 0 || ml > 5000 {
		return fmt.Errorf("%w: %.1f ml", ErrInvalidDose, ml)
	}
	return c.send(stationID, map[string]interface{}{
		"command": CmdNutrientDose,
		"ml":      ml,
	})
}

// RecordWatering notes an irrigation event against a stored tray. Best
// effort bookkeeping; a missing repository makes it a no-op.
func (c *Controller) RecordWatering(ctx context.Context, trayID string, level float64) error {
	if c.trays == nil {
		return nil
	}
	return c.trays.UpdateWater(ctx, trayID, level, time.Now().UTC())
}

func (c *Controller) send(stationID int, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding water command: %w", err)
	}
	return c.dispatcher.Submit(dispatch.ClassWater, dispatch.Command{
		Topic:   c.topics.WaterCommand(stationID),
		Payload: data,
		QoS:     1,
	})
}
