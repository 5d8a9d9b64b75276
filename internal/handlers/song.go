package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matbactivity/songconstitution/internal/services"
)

// handleAddSong submits a song of the caller
func (h *Handlers) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var input services.SongInput
	if err := decodeJSON(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	song, err := h.Song.AddSong(r.Context(), caller(r), id, input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, "/api/constitutions/"+id, song)
}

// handleDeleteSong removes a song of the caller
func (h *Handlers) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	songID, err := parseIntParam(r, "songID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Song.DeleteSong(r.Context(), caller(r), chi.URLParam(r, "id"), songID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondDeleted(w)
}
