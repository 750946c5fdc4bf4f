package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/greenrack/greenrack-core/internal/task"
)

// handleListTasks returns tasks, with optional query filters.
//
// Query parameters:
//   - station_id: filter by station
//   - active: "true" returns only non-terminal tasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if stationStr := r.URL.Query().Get("station_id"); stationStr != "" {
		stationID, err := strconv.Atoi(stationStr)
		if err != nil || stationID < 1 {
			writeBadRequest(w, "invalid station_id")
			return
		}
		tasks, err := s.tasks.ListByStation(ctx, stationID)
		if err != nil {
			writeInternalError(w, "failed to list tasks")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
		return
	}

	if r.URL.Query().Get("active") == "true" {
		tasks, err := s.tasks.ListActive(ctx)
		if err != nil {
			writeInternalError(w, "failed to list tasks")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
		return
	}

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		writeInternalError(w, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

// handleGetTask returns a single task by ID.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, task.ErrTaskNotFound) {
			writeNotFound(w, "task not found")
			return
		}
		writeInternalError(w, "failed to get task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
