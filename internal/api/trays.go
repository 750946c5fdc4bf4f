package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/greenrack/greenrack-core/internal/tray"
)

// handleListTrays returns the tray inventory.
//
// Query parameters:
//   - stored: "true" returns only trays currently occupying a slot
func (s *Server) handleListTrays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("stored") == "true" {
		trays, err := s.trays.ListStored(ctx)
		if err != nil {
			writeInternalError(w, "failed to list trays")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"trays": trays, "count": len(trays)})
		return
	}

	trays, err := s.trays.List(ctx)
	if err != nil {
		writeInternalError(w, "failed to list trays")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trays": trays, "count": len(trays)})
}

// handleGetTray returns a single tray by ID.
func (s *Server) handleGetTray(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.trays.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tray.ErrTrayNotFound) {
			writeNotFound(w, "tray not found")
			return
		}
		writeInternalError(w, "failed to get tray")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleSuggestSlots returns empty slot suggestions near a floor.
//
// Query parameters:
//   - floor: the requesting floor (excluded from results)
//   - needed: how many slots to suggest (default 1)
func (s *Server) handleSuggestSlots(w http.ResponseWriter, r *http.Request) {
	floor, err := strconv.Atoi(r.URL.Query().Get("floor"))
	if err != nil || floor < 1 || floor > s.warehouse.Floors {
		writeBadRequest(w, "invalid floor")
		return
	}
	needed := 1
	if n := r.URL.Query().Get("needed"); n != "" {
		needed, err = strconv.Atoi(n)
		if err != nil || needed < 1 {
			writeBadRequest(w, "invalid needed count")
			return
		}
	}

	grid, err := s.buildGrid(r)
	if err != nil {
		writeInternalError(w, "failed to load inventory")
		return
	}

	slots, err := grid.FindEmptySlots(floor, needed)
	if err != nil && !errors.Is(err, tray.ErrNoEmptySlots) {
		writeInternalError(w, "failed to find slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slots":     slots,
		"count":     len(slots),
		"exhausted": errors.Is(err, tray.ErrNoEmptySlots),
	})
}

// handleBlocking returns the trays that sit between the lift aisle and
// a target slot and must move before it can be reached.
func (s *Server) handleBlocking(w http.ResponseWriter, r *http.Request) {
	floor, ferr := strconv.Atoi(r.URL.Query().Get("floor"))
	slot, serr := strconv.Atoi(r.URL.Query().Get("slot"))
	if ferr != nil || serr != nil || !s.validLocation(floor, slot) {
		writeBadRequest(w, "invalid floor or slot")
		return
	}

	grid, err := s.buildGrid(r)
	if err != nil {
		writeInternalError(w, "failed to load inventory")
		return
	}

	blocking := grid.Blocking(floor, slot)
	writeJSON(w, http.StatusOK, map[string]any{
		"blocking": blocking,
		"count":    len(blocking),
	})
}

// buildGrid assembles the occupancy grid from the stored inventory.
func (s *Server) buildGrid(r *http.Request) (*tray.Grid, error) {
	stored, err := s.trays.ListStored(r.Context())
	if err != nil {
		return nil, err
	}
	return tray.BuildGrid(s.warehouse.Floors, s.warehouse.Slots, stored), nil
}
