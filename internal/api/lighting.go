package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/greenrack/greenrack-core/internal/lighting"
)

// dimRequest is the body for POST /lighting/dim.
type dimRequest struct {
	Floor  int    `json:"floor"`
	Type   string `json:"type"`
	Dir    string `json:"dir"`
	Amount uint16 `json:"amount"`
}

// handleLightingDim adjusts a floor's light or fan intensity on the
// lighting bus.
func (s *Server) handleLightingDim(w http.ResponseWriter, r *http.Request) {
	if s.lighting == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "lighting bus not configured")
		return
	}

	var req dimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dir := lighting.Direction(req.Dir)
	if !dir.IsValid() {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "dir must be up or down")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "amount must be positive")
		return
	}

	err := s.lighting.Dim(req.Floor, lighting.DeviceType(req.Type), dir, req.Amount)
	if err != nil {
		if errors.Is(err, lighting.ErrAddressUnknown) {
			writeNotFound(w, "no device at floor for type")
			return
		}
		s.logger.Error("lighting dim failed", "error", err)
		writeInternalError(w, "lighting command failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}
