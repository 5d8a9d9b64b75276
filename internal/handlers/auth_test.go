package handlers_test

import (
	"net/http"
	"testing"

	"github.com/matbactivity/songconstitution/internal/auth"
	"github.com/matbactivity/songconstitution/internal/handlers"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/testutil"
)

func TestLogin(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{})

	rr := api.do(http.MethodPost, "/api/login", "", handlers.LoginRequest{DisplayName: "  Alice ", Password: testPassword})
	expectStatus(t, rr, http.StatusOK)

	var resp handlers.LoginResponse
	decode(t, rr, &resp)
	if resp.User.DisplayName != "Alice" || resp.User.UID == "" || resp.Token == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	var cookieSet bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName && c.Value == resp.Token {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Error("expected session cookie")
	}

	rr = api.do(http.MethodGet, "/api/me", resp.Token, nil)
	expectStatus(t, rr, http.StatusOK)
	var me models.User
	decode(t, rr, &me)
	if me != resp.User {
		t.Errorf("expected %+v, got %+v", resp.User, me)
	}

	// same name, other case: same user
	rr = api.do(http.MethodPost, "/api/login", "", handlers.LoginRequest{DisplayName: "alice", Password: testPassword})
	expectStatus(t, rr, http.StatusOK)
	var again handlers.LoginResponse
	decode(t, rr, &again)
	if again.User.UID != resp.User.UID {
		t.Errorf("expected uid %s, got %s", resp.User.UID, again.User.UID)
	}
}

func TestLogin_Rejected(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{})

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"wrong password", handlers.LoginRequest{DisplayName: "Alice", Password: "nope"}, http.StatusUnauthorized, handlers.ErrCodeUnauthorized},
		{"blank name", handlers.LoginRequest{DisplayName: "  ", Password: testPassword}, http.StatusBadRequest, handlers.ErrCodeValidation},
		{"empty body", nil, http.StatusBadRequest, handlers.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(http.MethodPost, "/api/login", "", tt.body)
			expectError(t, rr, tt.status, tt.code)
		})
	}
}

func TestLogout(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{})
	token := api.session("a")

	expectStatus(t, api.do(http.MethodGet, "/api/me", token, nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodPost, "/api/logout", token, nil), http.StatusOK)
	expectStatus(t, api.do(http.MethodGet, "/api/me", token, nil), http.StatusUnauthorized)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/constitutions"},
		{http.MethodPost, "/api/constitutions"},
		{http.MethodPost, "/api/constitutions/c1/votes"},
		{http.MethodPost, "/api/constitutions/c1/finish"},
		{http.MethodGet, "/api/history"},
		{http.MethodGet, "/join/c1"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			expectError(t, api.do(p.method, p.path, "", nil), http.StatusUnauthorized, handlers.ErrCodeUnauthorized)
		})
	}
}
