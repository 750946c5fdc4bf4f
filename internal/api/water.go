package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/greenrack/greenrack-core/internal/water"
)

// waterRequest is the body for POST /stations/{id}/water.
type waterRequest struct {
	Command    string  `json:"command"`
	DurationMS int64   `json:"duration_ms,omitempty"`
	ML         float64 `json:"ml,omitempty"`
}

// handleWaterCommand issues an irrigation point command at a station.
func (s *Server) handleWaterCommand(w http.ResponseWriter, r *http.Request) {
	if s.water == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "water system not configured")
		return
	}

	stationID, ok := stationParam(w, r)
	if !ok {
		return
	}

	var req waterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	switch req.Command {
	case water.CmdValveOpen:
		err = s.water.OpenValve(stationID)
	case water.CmdValveClose:
		err = s.water.CloseValve(stationID)
	case water.CmdPumpStart:
		err = s.water.RunPump(stationID, time.Duration(req.DurationMS)*time.Millisecond)
	case water.CmdPumpStop:
		err = s.water.StopPump(stationID)
	case water.CmdNutrientDose:
		err = s.water.Dose(stationID, req.ML)
	default:
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "unknown water command")
		return
	}

	if err != nil {
		if errors.Is(err, water.ErrInvalidDose) || errors.Is(err, water.ErrInvalidDuration) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		s.logger.Error("water command failed", "station", stationID, "error", err)
		writeInternalError(w, "water command failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}
