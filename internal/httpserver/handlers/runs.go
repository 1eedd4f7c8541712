package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/store"
)

const maxRunsLimit = 200

type runsResponse struct {
	Runs []domain.RunRecord `json:"runs"`
}

// GetRun returns one run record by ID.
func GetRun(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := d.History.Get(r.Context(), id)
		if errors.Is(err, domain.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			d.Logger.Error("failed to read run", logger.String("run_id", id), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// ListRuns returns recent runs, optionally for one target.
func ListRuns(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := store.DefaultRecentLimit
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxRunsLimit)
		}

		runs, err := d.History.Recent(r.Context(), q.Get("target"), limit)
		if err != nil {
			d.Logger.Error("failed to list runs", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		writeJSON(w, http.StatusOK, runsResponse{Runs: runs})
	}
}
