package services_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/internal/repository/mock"
	"github.com/matbactivity/songconstitution/internal/services"
	"github.com/matbactivity/songconstitution/internal/testutil"
)

func newLifecycle(repo services.LifecycleServiceRepository) *services.LifecycleService {
	return services.NewLifecycleService(testLogger(), repo, services.NewResultsService(testLogger(), repo))
}

func TestGuards_Thresholds(t *testing.T) {
	c := testutil.NewConstitution("c1", 4, 2, fourMembers...)

	if got := c.SongCapacity(); got != 8 {
		t.Errorf("expected lock threshold 8, got %d", got)
	}
	if got := services.RequiredVotes(c); got != 24 {
		t.Errorf("expected publish threshold 24, got %d", got)
	}

	for n, want := range map[int]bool{7: false, 8: true, 9: false} {
		c.Songs = make([]models.Song, n)
		if got := services.CanLockSongList(c); got != want {
			t.Errorf("CanLockSongList with %d songs = %v, want %v", n, got, want)
		}
	}
	for n, want := range map[int]bool{23: false, 24: true, 25: false} {
		if got := services.CanPublishResults(c, n); got != want {
			t.Errorf("CanPublishResults with %d votes = %v, want %v", n, got, want)
		}
	}

	c.IsShowingResult = true
	if services.CanFinishConstitution(c) {
		t.Error("expected finish to need a winner")
	}
	c.WinnerSongID, c.WinnerUserID = 0, "a"
	if !services.CanFinishConstitution(c) {
		t.Error("expected finish allowed with winner and results showing")
	}
}

func TestNextState(t *testing.T) {
	tests := []struct {
		from    models.State
		t       services.Transition
		want    models.State
		wantErr bool
	}{
		{models.StateOpen, services.TransitionLock, models.StateLocked, false},
		{models.StateLocked, services.TransitionUnlock, models.StateOpen, false},
		{models.StateLocked, services.TransitionPublish, models.StateResultsPublished, false},
		{models.StateResultsPublished, services.TransitionHide, models.StateLocked, false},
		{models.StateResultsPublished, services.TransitionFinish, models.StateFinished, false},
		{models.StateOpen, services.TransitionPublish, models.StateOpen, true},
		{models.StateResultsPublished, services.TransitionUnlock, models.StateResultsPublished, true},
		{models.StateLocked, services.TransitionFinish, models.StateLocked, true},
		{models.StateFinished, services.TransitionLock, models.StateFinished, true},
		{models.StateOpen, services.Transition("explode"), models.StateOpen, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%s", tt.from, tt.t), func(t *testing.T) {
			got, err := services.NextState(tt.from, tt.t)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidTransition) {
					t.Fatalf("expected InvalidTransition, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLifecycleService_ChangeLockStatus(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	c := testutil.NewConstitution("c1", 4, 2, fourMembers...)
	testutil.FillSongs(c)
	c.Songs = c.Songs[:7]
	storeConstitution(t, repo, c)

	svc := newLifecycle(repo)
	rec := newMockRecorder()
	b := &mockBroadcaster{}
	svc.SetRecorder(rec)
	svc.SetBroadcaster(b)

	_, err := svc.ChangeLockStatus(ctx, user("a"), "c1", true)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("expected lock with 7 songs rejected, got %v", err)
	}
	if rec.transitions["lock/rejected"] != 1 {
		t.Errorf("expected rejected transition recorded, got %v", rec.transitions)
	}

	song := models.Song{ID: 7, ShortTitle: "Last", Author: "X", URL: "https://example.com/7", Patron: "d"}
	if err := repo.AddSong(ctx, "c1", reload(t, repo, "c1").Version, song); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	if _, err := svc.ChangeLockStatus(ctx, user("b"), "c1", true); !errors.Is(err, errors.ErrForbidden) {
		t.Fatalf("expected Forbidden for non-owner, got %v", err)
	}

	locked, err := svc.ChangeLockStatus(ctx, user("a"), "c1", true)
	if err != nil {
		t.Fatalf("ChangeLockStatus failed: %v", err)
	}
	if models.StateOf(locked) != models.StateLocked {
		t.Errorf("expected locked, got %s", models.StateOf(locked))
	}
	if models.StateOf(reload(t, repo, "c1")) != models.StateLocked {
		t.Error("expected stored state locked")
	}
	if !b.sent(services.EventStateChanged) {
		t.Error("expected state_changed broadcast")
	}

	if _, err := svc.ChangeLockStatus(ctx, user("a"), "c1", true); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("expected locking twice rejected, got %v", err)
	}

	unlocked, err := svc.ChangeLockStatus(ctx, user("a"), "c1", false)
	if err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if models.StateOf(unlocked) != models.StateOpen {
		t.Errorf("expected open, got %s", models.StateOf(unlocked))
	}
}

func TestLifecycleService_ChangeResultsStatus_NeedsEveryVote(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	lockedConstitution(t, repo, "c1")
	castVotes(t, repo, "c1", 23, func(string, models.Song) float64 { return 5 })

	svc := newLifecycle(repo)
	if _, err := svc.ChangeResultsStatus(ctx, user("a"), "c1", true); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("expected publish with 23 votes rejected, got %v", err)
	}

	// the 24th vote
	c := reload(t, repo, "c1")
	if err := repo.SaveVote(ctx, "c1", c.Version, models.Vote{ID: "last", SongID: 5, UserID: "d", Score: 5}); err != nil {
		t.Fatalf("SaveVote failed: %v", err)
	}
	if n, _ := repo.CountVotes(ctx, "c1"); n != 24 {
		t.Fatalf("expected 24 votes, got %d", n)
	}

	published, err := svc.ChangeResultsStatus(ctx, user("a"), "c1", true)
	if err != nil {
		t.Fatalf("ChangeResultsStatus failed: %v", err)
	}
	if models.StateOf(published) != models.StateResultsPublished {
		t.Errorf("expected results_published, got %s", models.StateOf(published))
	}

	hidden, err := svc.ChangeResultsStatus(ctx, user("a"), "c1", false)
	if err != nil {
		t.Fatalf("hide failed: %v", err)
	}
	if models.StateOf(hidden) != models.StateLocked {
		t.Errorf("expected locked after hide, got %s", models.StateOf(hidden))
	}
}

func TestLifecycleService_StaleVersionRejected(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	lockedConstitution(t, realRepo, "c1")
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.UpdateConstitutionError = repository.ErrVersionConflict

	svc := newLifecycle(mockRepo)
	rec := newMockRecorder()
	svc.SetRecorder(rec)

	_, err := svc.ChangeLockStatus(context.Background(), user("a"), "c1", false)
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if rec.transitions["unlock/conflict"] != 1 {
		t.Errorf("expected conflict recorded, got %v", rec.transitions)
	}
	if models.StateOf(reload(t, realRepo, "c1")) != models.StateLocked {
		t.Error("expected stored state unchanged")
	}
}

func TestLifecycleService_GetProgress(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	lockedConstitution(t, repo, "c1")
	castVotes(t, repo, "c1", -1, func(string, models.Song) float64 { return 3 })

	p, err := newLifecycle(repo).GetProgress(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if p.State != models.StateLocked || p.Songs != 8 || p.SongCapacity != 8 {
		t.Errorf("unexpected progress: %+v", p)
	}
	if p.Votes != 24 || p.RequiredVotes != 24 || !p.CanPublish || p.CanLock {
		t.Errorf("unexpected vote progress: %+v", p)
	}
	if p.CanFinish || p.WinnerCached {
		t.Errorf("expected finish closed while locked: %+v", p)
	}
}

func TestLifecycleService_GetProgress_FinishGuard(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	publishedConstitution(t, repo, "c1")
	svc := newLifecycle(repo)

	p, err := svc.GetProgress(ctx, "c1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if !p.CanFinish || p.WinnerCached != services.CanFinishConstitution(reload(t, repo, "c1")) || p.WinnerCached {
		t.Errorf("expected finish open without a cached winner: %+v", p)
	}

	if _, err := services.NewResultsService(testLogger(), repo).CalculateResults(ctx, user("a"), "c1"); err != nil {
		t.Fatalf("CalculateResults failed: %v", err)
	}
	p, _ = svc.GetProgress(ctx, "c1")
	if !p.CanFinish || !p.WinnerCached {
		t.Errorf("expected the finish guard met once the winner is cached: %+v", p)
	}
}

func TestLifecycleService_FinishConstitution(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	publishedConstitution(t, repo, "c1")

	svc := newLifecycle(repo)
	rec := newMockRecorder()
	b := &mockBroadcaster{}
	svc.SetRecorder(rec)
	svc.SetBroadcaster(b)

	if _, err := svc.FinishConstitution(ctx, user("b"), "c1"); !errors.Is(err, errors.ErrForbidden) {
		t.Fatalf("expected Forbidden for non-owner, got %v", err)
	}

	result, err := svc.FinishConstitution(ctx, user("a"), "c1")
	if err != nil {
		t.Fatalf("FinishConstitution failed: %v", err)
	}
	if result.CleanupPending {
		t.Error("expected complete cleanup")
	}
	if result.Location != "/api/history/"+result.Record.ID {
		t.Errorf("unexpected location %q", result.Location)
	}
	if result.Record.WinnerID != "a" || result.Record.WinnerSongTitle != "Song 0" {
		t.Errorf("unexpected winner in record: %+v", result.Record)
	}
	if len(result.Record.SongsTitle) != 8 || len(result.Record.SongsOwner) != 8 {
		t.Errorf("expected 8 archived songs, got %d", len(result.Record.SongsTitle))
	}
	if len(result.Record.Usernames) != 4 {
		t.Errorf("expected 4 usernames, got %v", result.Record.Usernames)
	}

	stored, err := repo.GetHistory(ctx, result.Record.ID)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if stored.ConstitutionID != "c1" {
		t.Errorf("expected history of c1, got %s", stored.ConstitutionID)
	}
	if _, err := repo.GetConstitution(ctx, "c1"); !stderrors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected live constitution removed, got %v", err)
	}
	if rec.archives["ok"] != 1 {
		t.Errorf("expected archive recorded, got %v", rec.archives)
	}
	if !b.sent(services.EventFinished) {
		t.Error("expected finished broadcast")
	}

	if _, err := svc.FinishConstitution(ctx, user("a"), "c1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NotFound after finishing, got %v", err)
	}
}

func TestLifecycleService_FinishConstitution_CachedWinnerSkipsAggregator(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	ctx := context.Background()
	c := publishedConstitution(t, realRepo, "c1")

	songID, winner := 3, "b"
	if err := realRepo.UpdateConstitution(ctx, "c1", c.Version, models.ConstitutionUpdate{
		WinnerSongID: &songID, WinnerUserID: &winner,
	}); err != nil {
		t.Fatalf("UpdateConstitution failed: %v", err)
	}

	mockRepo := mock.NewRepository(realRepo)
	result, err := newLifecycle(mockRepo).FinishConstitution(ctx, user("a"), "c1")
	if err != nil {
		t.Fatalf("FinishConstitution failed: %v", err)
	}
	if mockRepo.Calls("ListVotes") != 0 {
		t.Errorf("expected no vote reads with a cached winner, got %d", mockRepo.Calls("ListVotes"))
	}
	if result.Record.WinnerID != "b" || result.Record.WinnerSongTitle != "Song 3" {
		t.Errorf("expected cached winner archived, got %+v", result.Record)
	}
}

func TestLifecycleService_FinishConstitution_ComputesMissingWinner(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	publishedConstitution(t, realRepo, "c1")
	mockRepo := mock.NewRepository(realRepo)

	result, err := newLifecycle(mockRepo).FinishConstitution(context.Background(), user("a"), "c1")
	if err != nil {
		t.Fatalf("FinishConstitution failed: %v", err)
	}
	if mockRepo.Calls("ListVotes") != 1 {
		t.Errorf("expected one aggregation, got %d vote reads", mockRepo.Calls("ListVotes"))
	}
	if result.Record.WinnerID != "a" {
		t.Errorf("expected computed winner a, got %s", result.Record.WinnerID)
	}
}

func TestLifecycleService_FinishConstitution_RevoteAfterHide(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	publishedConstitution(t, repo, "c1")

	results := services.NewResultsService(testLogger(), repo)
	svc := services.NewLifecycleService(testLogger(), repo, results)
	voting := newVoting(repo)

	rs, err := results.CalculateResults(ctx, user("b"), "c1")
	if err != nil {
		t.Fatalf("CalculateResults failed: %v", err)
	}
	if rs.WinnerSongID != 0 {
		t.Fatalf("expected song 0 cached first, got %d", rs.WinnerSongID)
	}

	if _, err := svc.ChangeResultsStatus(ctx, user("a"), "c1", false); err != nil {
		t.Fatalf("hiding results failed: %v", err)
	}
	for _, voter := range []string{"b", "c", "d"} {
		if _, err := voting.SubmitVote(ctx, user(voter), "c1", services.VoteInput{SongID: 0, Score: score(0)}); err != nil {
			t.Fatalf("re-grading song 0 failed: %v", err)
		}
	}
	for _, voter := range []string{"a", "b", "c"} {
		if _, err := voting.SubmitVote(ctx, user(voter), "c1", services.VoteInput{SongID: 7, Score: score(10)}); err != nil {
			t.Fatalf("re-grading song 7 failed: %v", err)
		}
	}
	if reload(t, repo, "c1").HasWinner() {
		t.Fatal("expected the cached winner dropped once votes changed")
	}

	if _, err := svc.ChangeResultsStatus(ctx, user("a"), "c1", true); err != nil {
		t.Fatalf("publishing again failed: %v", err)
	}
	result, err := svc.FinishConstitution(ctx, user("a"), "c1")
	if err != nil {
		t.Fatalf("FinishConstitution failed: %v", err)
	}
	if result.Record.WinnerSongTitle != "Song 7" || result.Record.WinnerID != "d" {
		t.Errorf("expected the new top song archived, got %q by %s", result.Record.WinnerSongTitle, result.Record.WinnerID)
	}
}

func TestLifecycleService_DeletedSongTakesItsVotes(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	lockedConstitution(t, repo, "c1")
	voting := newVoting(repo)

	for _, voter := range []string{"a", "b", "c"} {
		if _, err := voting.SubmitVote(ctx, user(voter), "c1", services.VoteInput{SongID: 7, Score: score(10)}); err != nil {
			t.Fatalf("SubmitVote failed: %v", err)
		}
	}
	if _, err := newLifecycle(repo).ChangeLockStatus(ctx, user("a"), "c1", false); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	songs := services.NewSongService(testLogger(), repo, nil)
	if err := songs.DeleteSong(ctx, user("d"), "c1", 7); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}
	if count, _ := repo.CountVotes(ctx, "c1"); count != 0 {
		t.Errorf("expected votes of the deleted song removed, got %d", count)
	}

	song, err := songs.AddSong(ctx, user("d"), "c1", services.SongInput{
		ShortTitle: "Brand new", Author: "New Artist", URL: "https://example.com/brand-new",
	})
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if song.ID != 7 {
		t.Fatalf("expected the freed id 7 reused, got %d", song.ID)
	}

	c := reload(t, repo, "c1")
	votes, _ := repo.ListVotes(ctx, "c1")
	users, _ := repo.ListUsers(ctx, c.Users)
	rs, err := services.ComputeResults(c.Songs, votes, users)
	if err != nil {
		t.Fatalf("ComputeResults failed: %v", err)
	}
	for _, r := range rs.Results {
		if r.SongID == 7 && (r.VoteCount != 0 || r.Score != 0) {
			t.Errorf("expected the new song without votes, got %+v", r)
		}
	}
}

func TestLifecycleService_FinishConstitution_NotPublished(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	lockedConstitution(t, repo, "c1")

	_, err := newLifecycle(repo).FinishConstitution(context.Background(), user("a"), "c1")
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
}

func TestLifecycleService_FinishConstitution_PartialArchive(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	publishedConstitution(t, realRepo, "c1")
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.ArchiveError = fmt.Errorf("%w: batch write throttled", repository.ErrCleanupPending)

	svc := newLifecycle(mockRepo)
	rec := newMockRecorder()
	svc.SetRecorder(rec)

	result, err := svc.FinishConstitution(context.Background(), user("a"), "c1")
	if !errors.Is(err, errors.ErrPartialArchive) {
		t.Fatalf("expected PartialArchive, got %v", err)
	}
	if result == nil || !result.CleanupPending {
		t.Fatalf("expected a result flagged cleanup pending, got %+v", result)
	}
	if rec.archives["partial"] != 1 {
		t.Errorf("expected partial archive recorded, got %v", rec.archives)
	}
}

func TestLifecycleService_DeleteConstitution(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	lockedConstitution(t, repo, "c1")
	svc := newLifecycle(repo)
	b := &mockBroadcaster{}
	svc.SetBroadcaster(b)

	if err := svc.DeleteConstitution(ctx, user("c"), "c1"); !errors.Is(err, errors.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if err := svc.DeleteConstitution(ctx, user("a"), "c1"); err != nil {
		t.Fatalf("DeleteConstitution failed: %v", err)
	}
	if _, err := repo.GetConstitution(ctx, "c1"); !stderrors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected constitution gone, got %v", err)
	}
	if !b.sent(services.EventDeleted) {
		t.Error("expected deleted broadcast")
	}
}
