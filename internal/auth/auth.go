package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/matbactivity/songconstitution/internal/models"
)

const (
	CookieName    = "songconstitution_session"
	SessionExpiry = 7 * 24 * time.Hour
)

// Music-themed words for password generation
var passwordWords = []string{
	"chorus", "verse", "bridge", "tempo", "vinyl",
	"encore", "refrain", "ballad", "riff", "melody",
	"anthem", "cadence", "groove", "lyric", "octave",
	"sonata", "rhythm", "harmony", "crescendo",
}

type contextKey struct{}

type session struct {
	user   models.User
	expiry time.Time
}

// Auth issues sessions to users who know the shared password
type Auth struct {
	password string
	sessions map[string]session
	mu       sync.RWMutex
	now      func() time.Time
}

// New creates a new Auth instance. An empty password lets anyone log in.
func New(password string) *Auth {
	return &Auth{
		password: password,
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		idx := randomInt(len(passwordWords))
		words[i] = passwordWords[idx]
	}
	return strings.Join(words, "-")
}

// CheckPassword reports whether password matches the shared password
func (a *Auth) CheckPassword(password string) bool {
	if a.password == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
}

// CreateSession starts a session for user and returns its token
func (a *Auth) CreateSession(user models.User) string {
	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = session{user: user, expiry: a.now().Add(SessionExpiry)}
	a.mu.Unlock()
	return token
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession returns the user of a live session
func (a *Auth) ValidateSession(token string) (models.User, bool) {
	a.mu.RLock()
	s, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return models.User{}, false
	}

	if a.now().After(s.expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return models.User{}, false
	}

	return s.user, true
}

// PurgeExpired drops every expired session and returns how many were removed
func (a *Auth) PurgeExpired() int {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for token, s := range a.sessions {
		if now.After(s.expiry) {
			delete(a.sessions, token)
			n++
		}
	}
	return n
}

// TokenFromRequest returns the session token of a request, read from the
// session cookie or an Authorization bearer header
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) (models.User, bool) {
	token := TokenFromRequest(r)
	if token == "" {
		return models.User{}, false
	}
	return a.ValidateSession(token)
}

// RequireUserAPI middleware for API endpoints (returns 401). The session
// user is available to handlers through UserFromContext.
func (a *Auth) RequireUserAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := a.GetSessionFromRequest(r); ok {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please log in"}`))
	})
}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the user stored by RequireUserAPI
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(contextKey{}).(models.User)
	return user, ok
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// randomInt returns a random int in [0, max)
func randomInt(max int) int {
	bytes := make([]byte, 1)
	rand.Read(bytes)
	return int(bytes[0]) % max
}
