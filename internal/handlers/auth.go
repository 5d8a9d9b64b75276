package handlers

import (
	"net/http"

	"github.com/matbactivity/songconstitution/internal/auth"
	"github.com/matbactivity/songconstitution/internal/services"
)

// handleLogin checks the shared password, resolves the display name to a
// user and opens a session. The token is set as a cookie and returned for
// bearer use.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if !h.Auth.CheckPassword(req.Password) {
		h.respondError(w, r, Unauthorized("Invalid password"))
		return
	}

	user, err := h.User.Login(r.Context(), services.LoginInput{DisplayName: req.DisplayName})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	token := h.Auth.CreateSession(*user)
	auth.SetSessionCookie(w, token)
	respondOK(w, LoginResponse{User: *user, Token: token})
}

// handleLogout clears the session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		h.Auth.Logout(token)
	}

	auth.ClearSessionCookie(w)
	respondSuccess(w, "Logged out")
}

// handleMe returns the session user
func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	respondOK(w, caller(r))
}
