package handlers

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/matbactivity/songconstitution/internal/services"
)

// userLimiter keeps one token bucket per session user
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// newUserLimiter returns nil when perSecond is not positive
func newUserLimiter(perSecond float64, burst int) *userLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *userLimiter) allow(uid string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[uid]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[uid] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// limitVotes rejects vote submissions above the configured rate with 429
func (h *Handlers) limitVotes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.voteLimiter != nil && !h.voteLimiter.allow(caller(r).UID) {
			w.Header().Set("Retry-After", "1")
			h.respondError(w, r, ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleSubmitVote records or replaces the caller's grade on a song
func (h *Handlers) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var input services.VoteInput
	if err := decodeJSON(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Voting.SubmitVote(r.Context(), caller(r), chi.URLParam(r, "id"), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

// handleListVotes returns the votes visible to the caller
func (h *Handlers) handleListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := h.Voting.ListVotes(r.Context(), caller(r), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, votes)
}
