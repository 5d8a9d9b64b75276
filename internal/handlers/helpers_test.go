package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/matbactivity/songconstitution/internal/auth"
	"github.com/matbactivity/songconstitution/internal/handlers"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/metrics"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/internal/services"
	"github.com/matbactivity/songconstitution/internal/testutil"
	"github.com/matbactivity/songconstitution/pkg/youtube"
)

const testPassword = "verse-chorus-bridge"

type testAPI struct {
	t        *testing.T
	repo     repository.FullRepository
	auth     *auth.Auth
	settings *services.SettingsService
	metrics  *metrics.Metrics
	router   chi.Router
}

func newTestAPI(t *testing.T, repo repository.FullRepository, opts handlers.Options) *testAPI {
	t.Helper()

	log := logger.NewWithOptions(logger.Options{Output: io.Discard})
	settings := services.NewSettingsService(log, repo)
	results := services.NewResultsService(log, repo)
	a := auth.New(testPassword)
	m := metrics.New()

	h := handlers.New(handlers.Services{
		User:         services.NewUserService(log, repo),
		Constitution: services.NewConstitutionService(log, repo),
		Song:         services.NewSongService(log, repo, youtube.NewMockClient()),
		Voting:       services.NewVotingService(log, repo, settings),
		Results:      results,
		Lifecycle:    services.NewLifecycleService(log, repo, results),
		Stats:        services.NewStatsService(log, repo),
		History:      services.NewHistoryService(log, repo),
		Settings:     settings,
		Invite:       services.NewInviteService(log, repo, settings),
	}, a, nil, m, log, opts)

	return &testAPI{t: t, repo: repo, auth: a, settings: settings, metrics: m, router: h.Router()}
}

// do sends a request with an optional bearer token and JSON body
func (api *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	api.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			api.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

// session creates a user in the store and returns a session token for it
func (api *testAPI) session(uid string) string {
	api.t.Helper()

	user := models.User{UID: uid, DisplayName: "User " + uid}
	if _, err := api.repo.GetUser(context.Background(), uid); err != nil {
		testutil.SeedUsers(api.t, api.repo, uid)
	}
	return api.auth.CreateSession(user)
}

// store saves c after creating its members
func (api *testAPI) store(c *models.Constitution) {
	api.t.Helper()

	for _, uid := range c.Users {
		api.session(uid)
	}
	if err := api.repo.CreateConstitution(context.Background(), c); err != nil {
		api.t.Fatalf("CreateConstitution failed: %v", err)
	}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(target); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) handlers.APIError {
	t.Helper()
	expectStatus(t, rr, status)
	var apiErr handlers.APIError
	decode(t, rr, &apiErr)
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, apiErr.Code, apiErr.Message)
	}
	return apiErr
}

func members() []string {
	return []string{"a", "b", "c", "d"}
}

// openFull returns an open 4x1 constitution with every song submitted
func openFull(id string) *models.Constitution {
	c := testutil.NewConstitution(id, 4, 1, members()...)
	testutil.FillSongs(c)
	return c
}

func score(v float64) *float64 {
	return &v
}
