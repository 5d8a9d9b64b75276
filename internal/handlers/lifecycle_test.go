package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/matbactivity/songconstitution/internal/handlers"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/internal/repository/mock"
	"github.com/matbactivity/songconstitution/internal/services"
	"github.com/matbactivity/songconstitution/internal/testutil"
)

// TestConstitutionLifecycle drives one constitution from creation to the
// history through the API only
func TestConstitutionLifecycle(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{})

	names := []string{"Alice", "Bob", "Carol", "Dave"}
	titles := []string{"Yesterday", "Bohemian Rhapsody", "Hotel California", "Smells Like Teen Spirit"}
	tokens := make([]string, len(names))
	uids := make([]string, len(names))
	for i, name := range names {
		rr := api.do(http.MethodPost, "/api/login", "", handlers.LoginRequest{DisplayName: name, Password: testPassword})
		expectStatus(t, rr, http.StatusOK)
		var resp handlers.LoginResponse
		decode(t, rr, &resp)
		tokens[i], uids[i] = resp.Token, resp.User.UID
	}
	owner := tokens[0]

	rr := api.do(http.MethodPost, "/api/constitutions", owner, map[string]interface{}{
		"season":                   1,
		"round":                    3,
		"name":                     "Spring",
		"number_of_songs_per_user": 1,
		"number_max_of_user":       4,
	})
	expectStatus(t, rr, http.StatusCreated)
	var c models.Constitution
	decode(t, rr, &c)
	base := "/api/constitutions/" + c.ID

	for i, token := range tokens {
		if i > 0 {
			expectStatus(t, api.do(http.MethodPost, base+"/join", token, nil), http.StatusOK)
		}
		song := map[string]string{
			"short_title": titles[i],
			"author":      "Artist " + names[i],
			"url":         fmt.Sprintf("https://example.com/song/%d", i),
		}
		expectStatus(t, api.do(http.MethodPost, base+"/songs", token, song), http.StatusCreated)
	}

	// results are not available while songs are being submitted
	expectError(t, api.do(http.MethodGet, base+"/results", owner, nil), http.StatusBadRequest, handlers.ErrCodeValidation)

	expectError(t, api.do(http.MethodPost, base+"/lock", tokens[1], handlers.LockRequest{Locked: true}), http.StatusForbidden, handlers.ErrCodeForbidden)
	rr = api.do(http.MethodPost, base+"/lock", owner, handlers.LockRequest{Locked: true})
	expectStatus(t, rr, http.StatusOK)
	decode(t, rr, &c)
	if !c.IsLocked {
		t.Fatal("expected song list locked")
	}

	// publishing needs every vote
	apiErr := expectError(t, api.do(http.MethodPost, base+"/results-status", owner, handlers.ResultsStatusRequest{Showing: true}), http.StatusConflict, handlers.ErrCodeInvalidTransition)
	if apiErr.Kind != "invalid_transition" {
		t.Errorf("expected invalid_transition, got %s", apiErr.Kind)
	}

	// Alice's song gets 10 from everybody, the rest get 4
	for i, token := range tokens {
		for _, song := range c.Songs {
			if song.Patron == uids[i] {
				continue
			}
			grade := 4.0
			if song.Patron == uids[0] {
				grade = 10
			}
			body := services.VoteInput{SongID: song.ID, Score: score(grade)}
			expectStatus(t, api.do(http.MethodPost, base+"/votes", token, body), http.StatusOK)
		}
	}

	own := services.VoteInput{SongID: c.Songs[0].ID, Score: score(5)}
	expectError(t, api.do(http.MethodPost, base+"/votes", owner, own), http.StatusForbidden, handlers.ErrCodeForbidden)

	rr = api.do(http.MethodGet, base+"/status", owner, nil)
	expectStatus(t, rr, http.StatusOK)
	var progress services.Progress
	decode(t, rr, &progress)
	if progress.Votes != 12 || progress.RequiredVotes != 12 || !progress.CanPublish {
		t.Errorf("unexpected progress: %+v", progress)
	}

	expectStatus(t, api.do(http.MethodPost, base+"/results-status", owner, handlers.ResultsStatusRequest{Showing: true}), http.StatusOK)

	rr = api.do(http.MethodGet, base+"/results", tokens[2], nil)
	expectStatus(t, rr, http.StatusOK)
	var results handlers.ResultsResponse
	decode(t, rr, &results)
	if len(results.Results) != 4 || results.Results[0].Title != "Yesterday" || results.Results[0].Score != 10 {
		t.Fatalf("unexpected ranking: %+v", results.Results)
	}
	if results.WinnerUserID != uids[0] {
		t.Errorf("expected winner %s, got %s", uids[0], results.WinnerUserID)
	}

	rr = api.do(http.MethodGet, base+"/results?sort=user&dir=desc", tokens[2], nil)
	expectStatus(t, rr, http.StatusOK)
	results = handlers.ResultsResponse{}
	decode(t, rr, &results)
	var order []string
	for _, r := range results.Results {
		order = append(order, r.UserID)
	}
	want := []string{uids[3], uids[2], uids[1], uids[0]}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, order)
	}

	expectError(t, api.do(http.MethodGet, base+"/results?sort=bogus", owner, nil), http.StatusBadRequest, handlers.ErrCodeValidation)

	rr = api.do(http.MethodGet, base+"/stats", tokens[1], nil)
	expectStatus(t, rr, http.StatusOK)
	var stats []services.UserStats
	decode(t, rr, &stats)
	if len(stats) != 4 {
		t.Errorf("expected stats for 4 members, got %d", len(stats))
	}

	expectError(t, api.do(http.MethodPost, base+"/finish", tokens[1], nil), http.StatusForbidden, handlers.ErrCodeForbidden)

	rr = api.do(http.MethodPost, base+"/finish", owner, nil)
	expectStatus(t, rr, http.StatusOK)
	var finished handlers.FinishResponse
	decode(t, rr, &finished)
	location := rr.Header().Get("Location")
	if location == "" || location != finished.Location || finished.CleanupPending {
		t.Fatalf("unexpected finish response %+v (location %q)", finished.FinishResult, location)
	}

	rr = api.do(http.MethodGet, location, tokens[3], nil)
	expectStatus(t, rr, http.StatusOK)
	var record models.HistoryRecord
	decode(t, rr, &record)
	if record.WinnerSongTitle != "Yesterday" || record.WinnerID != uids[0] || len(record.SongsTitle) != 4 {
		t.Errorf("unexpected history record: %+v", record)
	}

	rr = api.do(http.MethodGet, "/api/history", tokens[3], nil)
	expectStatus(t, rr, http.StatusOK)
	var history []models.HistoryRecord
	decode(t, rr, &history)
	if len(history) != 1 {
		t.Errorf("expected 1 history record, got %d", len(history))
	}

	expectError(t, api.do(http.MethodGet, base, owner, nil), http.StatusNotFound, handlers.ErrCodeNotFound)
	expectError(t, api.do(http.MethodGet, "/api/history/missing", owner, nil), http.StatusNotFound, handlers.ErrCodeNotFound)
}

func TestFinish_PartialArchive(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.ArchiveError = fmt.Errorf("%w: 2 votes left", repository.ErrCleanupPending)
	api := newTestAPI(t, repo, handlers.Options{})

	c := openFull("c1")
	c.IsLocked = true
	c.IsShowingResult = true
	api.store(c)

	rr := api.do(http.MethodPost, "/api/constitutions/c1/finish", api.session("a"), nil)
	expectStatus(t, rr, http.StatusAccepted)

	var resp handlers.FinishResponse
	decode(t, rr, &resp)
	if !resp.CleanupPending || resp.Status == nil || !resp.Status.Error {
		t.Errorf("expected pending cleanup reported, got %+v", resp)
	}
	if loc := rr.Header().Get("Location"); loc == "" || loc != resp.Location {
		t.Errorf("unexpected location %q", loc)
	}
}

func TestFinish_StoreFailure(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.ArchiveError = fmt.Errorf("disk full")
	api := newTestAPI(t, repo, handlers.Options{})

	c := openFull("c1")
	c.IsLocked = true
	c.IsShowingResult = true
	api.store(c)

	apiErr := expectError(t, api.do(http.MethodPost, "/api/constitutions/c1/finish", api.session("a"), nil), http.StatusInternalServerError, handlers.ErrCodeInternalServer)
	if strings.Contains(apiErr.Message, "disk full") {
		t.Error("expected internal details hidden")
	}
}

func TestResults_NotMember(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{})
	c := openFull("c1")
	c.IsLocked = true
	c.IsShowingResult = true
	c.IsPublic = true
	api.store(c)

	expectError(t, api.do(http.MethodGet, "/api/constitutions/c1/results", api.session("stranger"), nil), http.StatusForbidden, handlers.ErrCodeForbidden)
}

func TestVotes_RateLimited(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{VotesPerSecond: 0.001, VoteBurst: 1})
	c := openFull("c1")
	c.IsLocked = true
	api.store(c)

	vote := services.VoteInput{SongID: 0, Score: score(7)}
	b := api.session("b")
	expectStatus(t, api.do(http.MethodPost, "/api/constitutions/c1/votes", b, vote), http.StatusOK)
	rr := api.do(http.MethodPost, "/api/constitutions/c1/votes", b, vote)
	expectError(t, rr, http.StatusTooManyRequests, handlers.ErrCodeRateLimited)
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// buckets are per user
	expectStatus(t, api.do(http.MethodPost, "/api/constitutions/c1/votes", api.session("c"), vote), http.StatusOK)

	// listing is not limited
	rr = api.do(http.MethodGet, "/api/constitutions/c1/votes", b, nil)
	expectStatus(t, rr, http.StatusOK)
	var votes []models.Vote
	decode(t, rr, &votes)
	if len(votes) != 1 || votes[0].UserID != "b" {
		t.Errorf("expected only b's vote before publishing, got %+v", votes)
	}
}

func TestVotes_ScoreOutOfRange(t *testing.T) {
	api := newTestAPI(t, testutil.NewTestRepository(t), handlers.Options{})
	c := openFull("c1")
	c.IsLocked = true
	api.store(c)

	vote := services.VoteInput{SongID: 0, Score: score(11)}
	apiErr := expectError(t, api.do(http.MethodPost, "/api/constitutions/c1/votes", api.session("b"), vote), http.StatusBadRequest, handlers.ErrCodeValidation)
	if apiErr.Kind != "invalid_input" {
		t.Errorf("expected invalid_input, got %s", apiErr.Kind)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	api := newTestAPI(t, repo, handlers.Options{Ping: repo.Ping})

	expectStatus(t, api.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)

	rr := api.do(http.MethodGet, "/metrics", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `songconstitution_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Errorf("expected request counted, got:\n%s", rr.Body.String())
	}

	failing := newTestAPI(t, repo, handlers.Options{Ping: func(context.Context) error { return fmt.Errorf("down") }})
	expectStatus(t, failing.do(http.MethodGet, "/healthz", "", nil), http.StatusServiceUnavailable)
}
