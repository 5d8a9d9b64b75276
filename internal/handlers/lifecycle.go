package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/services"
)

// handleGetResults ranks the songs. With ?sort= or ?dir= the ranking is
// reordered for display.
func (h *Handlers) handleGetResults(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Results.CalculateResults(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	column := r.URL.Query().Get("sort")
	direction := r.URL.Query().Get("dir")
	if column != "" || direction != "" {
		if err := services.SortResults(rs.Results, column, direction, rs.Users); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	respondOK(w, ResultsResponse{ResultSet: rs, Sort: column, Direction: direction})
}

// handleGetStats returns per-member statistics of a published constitution
func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetStats(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, stats)
}

// handleGetStatus reports the state and which transitions are open
func (h *Handlers) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Constitution.GetConstitution(r.Context(), caller(r), id); err != nil {
		h.respondError(w, r, err)
		return
	}

	progress, err := h.Lifecycle.GetProgress(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, progress)
}

// handleSetLock locks or unlocks the song list
func (h *Handlers) handleSetLock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	c, err := h.Lifecycle.ChangeLockStatus(r.Context(), caller(r), chi.URLParam(r, "id"), req.Locked)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, c)
}

// handleSetResultsStatus publishes or hides the results
func (h *Handlers) handleSetResultsStatus(w http.ResponseWriter, r *http.Request) {
	var req ResultsStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	c, err := h.Lifecycle.ChangeResultsStatus(r.Context(), caller(r), chi.URLParam(r, "id"), req.Showing)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, c)
}

// handleFinish archives the constitution. A record written with cleanup
// still pending is reported as 202 Accepted.
func (h *Handlers) handleFinish(w http.ResponseWriter, r *http.Request) {
	result, err := h.Lifecycle.FinishConstitution(r.Context(), caller(r), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.Header().Set("Location", result.Location)
		respondOK(w, FinishResponse{FinishResult: result})
	case errors.Is(err, errors.ErrPartialArchive) && result != nil:
		w.Header().Set("Location", result.Location)
		respondJSON(w, http.StatusAccepted, FinishResponse{
			FinishResult: result,
			Status:       &models.Status{Error: true, Message: "Constitution archived, cleanup will be retried"},
		})
	default:
		h.respondError(w, r, err)
	}
}

// handleDeleteConstitution deletes a constitution without archiving it
func (h *Handlers) handleDeleteConstitution(w http.ResponseWriter, r *http.Request) {
	if err := h.Lifecycle.DeleteConstitution(r.Context(), caller(r), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondDeleted(w)
}

// handleListHistory returns every archived constitution
func (h *Handlers) handleListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.History.ListHistory(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, records)
}

// handleGetHistory returns one archived constitution
func (h *Handlers) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	record, err := h.History.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, record)
}
