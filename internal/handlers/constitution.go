package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matbactivity/songconstitution/internal/services"
)

// handleListConstitutions returns the constitutions visible to the caller
func (h *Handlers) handleListConstitutions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Constitution.ListConstitutions(r.Context(), caller(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, list)
}

// handleCreateConstitution creates a constitution owned by the caller
func (h *Handlers) handleCreateConstitution(w http.ResponseWriter, r *http.Request) {
	var input services.ConstitutionInput
	if err := decodeJSON(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}

	c, err := h.Constitution.CreateConstitution(r.Context(), caller(r), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, "/api/constitutions/"+c.ID, c)
}

// handleGetConstitution returns a constitution with its songs
func (h *Handlers) handleGetConstitution(w http.ResponseWriter, r *http.Request) {
	c, err := h.Constitution.GetConstitution(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, c)
}

// handleJoinConstitution adds the caller to the members
func (h *Handlers) handleJoinConstitution(w http.ResponseWriter, r *http.Request) {
	c, err := h.Constitution.JoinConstitution(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, c)
}

// handleJoinLink is the target of invite QR codes: it joins and redirects
// to the constitution
func (h *Handlers) handleJoinLink(w http.ResponseWriter, r *http.Request) {
	c, err := h.Constitution.JoinConstitution(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/api/constitutions/"+c.ID, http.StatusSeeOther)
}

// handleGetPlaylist returns the playlist link of a constitution
func (h *Handlers) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	url, err := h.Constitution.Playlist(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, PlaylistResponse{URL: url})
}

// handleSetPlaylist stores the YouTube playlist id of a constitution
func (h *Handlers) handleSetPlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	c, err := h.Constitution.SetPlaylist(r.Context(), caller(r), chi.URLParam(r, "id"), req.PlaylistID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, c)
}

// handleInviteQR serves the invite QR code as a PNG
func (h *Handlers) handleInviteQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Invite.InviteQRCode(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// handleGetSettings returns every stored setting
func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.AllSettings(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, settings)
}
