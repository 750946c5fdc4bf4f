package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greenrack/greenrack-core/internal/flow"
	"github.com/greenrack/greenrack-core/internal/tray"
)

// handleListStations returns the live flow view of every station.
func (s *Server) handleListStations(w http.ResponseWriter, _ *http.Request) {
	stations := s.flow.StatusAll()
	writeJSON(w, http.StatusOK, map[string]any{"stations": stations, "count": len(stations)})
}

// handleGetStation returns the live flow view of one station.
func (s *Server) handleGetStation(w http.ResponseWriter, r *http.Request) {
	stationID, ok := stationParam(w, r)
	if !ok {
		return
	}

	status, err := s.flow.Status(stationID)
	if err != nil {
		if errors.Is(err, flow.ErrUnknownStation) {
			writeNotFound(w, "station not found")
			return
		}
		writeInternalError(w, "failed to get station")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// startInboundRequest is the body for POST /stations/{id}/inbound.
type startInboundRequest struct {
	Floor          int        `json:"floor"`
	Slot           int        `json:"slot"`
	Species        string     `json:"species"`
	Quantity       int        `json:"quantity"`
	BatchID        string     `json:"batch_id"`
	SeededAt       *time.Time `json:"seeded_at"`
	Notes          string     `json:"notes"`
	WorkOrderID    string     `json:"work_order_id"`
	PlantingPlanID string     `json:"planting_plan_id"`
}

// handleStartInbound starts moving a new tray from the workstation
// into storage. Returns 202 with the created task id; the transfer
// completes asynchronously and progress arrives over the WebSocket.
func (s *Server) handleStartInbound(w http.ResponseWriter, r *http.Request) {
	stationID, ok := stationParam(w, r)
	if !ok {
		return
	}

	var req startInboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !s.validLocation(req.Floor, req.Slot) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "floor or slot out of range")
		return
	}

	taskID, err := s.flow.StartInbound(r.Context(), stationID, req.Floor, req.Slot, flow.Metadata{
		Species:        req.Species,
		Quantity:       req.Quantity,
		BatchID:        req.BatchID,
		SeededAt:       req.SeededAt,
		Notes:          req.Notes,
		WorkOrderID:    req.WorkOrderID,
		PlantingPlanID: req.PlantingPlanID,
	})
	if err != nil {
		s.writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"task_id": taskID})
}

// startOutboundRequest is the body for POST /stations/{id}/outbound.
type startOutboundRequest struct {
	Floor int `json:"floor"`
	Slot  int `json:"slot"`
}

// handleStartOutbound starts retrieving a stored tray to the
// workstation.
func (s *Server) handleStartOutbound(w http.ResponseWriter, r *http.Request) {
	stationID, ok := stationParam(w, r)
	if !ok {
		return
	}

	var req startOutboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !s.validLocation(req.Floor, req.Slot) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "floor or slot out of range")
		return
	}

	taskID, err := s.flow.StartOutbound(r.Context(), stationID, req.Floor, req.Slot)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"task_id": taskID})
}

// handleConfirm resolves the station's parked workstation task: the
// operator took the tray.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	stationID, ok := stationParam(w, r)
	if !ok {
		return
	}

	if err := s.flow.Confirm(r.Context(), stationID); err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "confirmed"})
}

// handleDispose resolves the station's parked workstation task as
// rejected.
func (s *Server) handleDispose(w http.ResponseWriter, r *http.Request) {
	stationID, ok := stationParam(w, r)
	if !ok {
		return
	}

	if err := s.flow.Dispose(r.Context(), stationID); err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "disposed"})
}

// liftRequest is the body for POST /stations/{id}/lift.
type liftRequest struct {
	Action string `json:"action"`
	Floor  int    `json:"floor,omitempty"`
}

// handleLiftCommand issues a manual lift command. Movement actions are
// rejected while the station is running a flow; stop and emergency
// always pass through.
func (s *Server) handleLiftCommand(w http.ResponseWriter, r *http.Request) {
	stationID, ok := stationParam(w, r)
	if !ok {
		return
	}

	var req liftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	action := flow.LiftAction(req.Action)
	if action == flow.LiftMoveTo && (req.Floor < 1 || req.Floor > s.warehouse.Floors) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "floor out of range")
		return
	}

	if err := s.flow.LiftCommand(stationID, action, req.Floor); err != nil {
		s.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

// writeFlowError maps supervisor errors onto HTTP responses.
func (s *Server) writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrBusy):
		writeConflict(w, "station busy")
	case errors.Is(err, flow.ErrUnknownStation):
		writeNotFound(w, "station not found")
	case errors.Is(err, flow.ErrNotFound):
		writeNotFound(w, "no tray at location")
	case errors.Is(err, flow.ErrNoOpenTask):
		writeNotFound(w, "no task at workstation")
	case errors.Is(err, tray.ErrSlotOccupied):
		writeConflict(w, "slot occupied")
	case errors.Is(err, flow.ErrInvalidLiftAction):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid lift action")
	case errors.Is(err, flow.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "flow supervisor stopped")
	default:
		s.logger.Error("flow request failed", "error", err)
		writeInternalError(w, "flow request failed")
	}
}

// stationParam parses the {id} route parameter.
func stationParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeBadRequest(w, "invalid station id")
		return 0, false
	}
	return id, true
}

// validLocation checks a floor/slot pair against the configured rack
// geometry.
func (s *Server) validLocation(floor, slot int) bool {
	return floor >= 1 && floor <= s.warehouse.Floors &&
		slot >= 1 && slot <= s.warehouse.Slots
}
