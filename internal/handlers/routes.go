package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matbactivity/songconstitution/internal/auth"
	"github.com/matbactivity/songconstitution/internal/models"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// caller returns the session user. Routes using it sit behind RequireUserAPI.
func caller(r *http.Request) models.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Auth routes (public)
		r.Post("/api/login", h.handleLogin)
		r.Post("/api/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireUserAPI)

			r.Get("/api/me", h.handleMe)
			r.Get("/join/{id}", h.handleJoinLink)

			r.Get("/api/settings", h.handleGetSettings)

			r.Route("/api/constitutions", func(r chi.Router) {
				r.Get("/", h.handleListConstitutions)
				r.Post("/", h.handleCreateConstitution)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetConstitution)
					r.Delete("/", h.handleDeleteConstitution)
					r.Post("/join", h.handleJoinConstitution)
					r.Get("/playlist", h.handleGetPlaylist)
					r.Put("/playlist", h.handleSetPlaylist)
					r.Get("/invite.png", h.handleInviteQR)

					// Songs
					r.Post("/songs", h.handleAddSong)
					r.Delete("/songs/{songID}", h.handleDeleteSong)

					// Votes
					r.Get("/votes", h.handleListVotes)
					r.With(h.limitVotes).Post("/votes", h.handleSubmitVote)

					// Results & lifecycle
					r.Get("/results", h.handleGetResults)
					r.Get("/stats", h.handleGetStats)
					r.Get("/status", h.handleGetStatus)
					r.Post("/lock", h.handleSetLock)
					r.Post("/results-status", h.handleSetResultsStatus)
					r.Post("/finish", h.handleFinish)
				})
			})

			// History
			r.Get("/api/history", h.handleListHistory)
			r.Get("/api/history/{id}", h.handleGetHistory)
		})
	})

	return r
}

// handleHealth reports liveness and whether the store answers
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.Log.Warn("Health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondOK(w, map[string]string{"status": "ok"})
}
