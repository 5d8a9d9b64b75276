package services_test

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"testing"

	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/internal/testutil"
)

func testLogger() logger.Logger {
	return logger.NewWithOptions(logger.Options{Output: io.Discard})
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (m *mockBroadcaster) BroadcastConstitutionEvent(constitutionID, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockBroadcaster) sent(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e == event {
			return true
		}
	}
	return false
}

type mockRecorder struct {
	mu          sync.Mutex
	transitions map[string]int
	archives    map[string]int
	votes       int
	pending     int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{transitions: map[string]int{}, archives: map[string]int{}}
}

func (m *mockRecorder) Transition(transition, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[transition+"/"+outcome]++
}

func (m *mockRecorder) Archive(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[outcome]++
}

func (m *mockRecorder) VoteSubmitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes++
}

func (m *mockRecorder) CleanupPending(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = count
}

// fourMembers are the uids used by most tests; "a" owns the constitution
var fourMembers = []string{"a", "b", "c", "d"}

type fullRepo interface {
	repository.UserRepository
	repository.ConstitutionRepository
	repository.VoteRepository
}

// storeConstitution creates the members of c that do not exist yet and stores c
func storeConstitution(t *testing.T, repo fullRepo, c *models.Constitution) *models.Constitution {
	t.Helper()

	ctx := context.Background()
	for _, uid := range c.Users {
		err := repo.CreateUser(ctx, user(uid))
		if err != nil && !stderrors.Is(err, repository.ErrDuplicate) {
			t.Fatalf("CreateUser(%s) failed: %v", uid, err)
		}
	}
	if err := repo.CreateConstitution(ctx, c); err != nil {
		t.Fatalf("CreateConstitution failed: %v", err)
	}
	return reload(t, repo, c.ID)
}

func reload(t *testing.T, repo repository.ConstitutionRepository, id string) *models.Constitution {
	t.Helper()

	c, err := repo.GetConstitution(context.Background(), id)
	if err != nil {
		t.Fatalf("GetConstitution failed: %v", err)
	}
	return c
}

// lockedConstitution stores a full, locked 4x2 constitution
func lockedConstitution(t *testing.T, repo fullRepo, id string) *models.Constitution {
	t.Helper()

	c := testutil.NewConstitution(id, 4, 2, fourMembers...)
	testutil.FillSongs(c)
	c.IsLocked = true
	return storeConstitution(t, repo, c)
}

// castVotes has every member grade every song of the other members. score
// picks the grade. It returns the number of votes written.
func castVotes(t *testing.T, repo fullRepo, id string, limit int, score func(voter string, song models.Song) float64) int {
	t.Helper()

	ctx := context.Background()
	c := reload(t, repo, id)
	version := c.Version
	n := 0
	for _, voter := range c.Users {
		for _, song := range c.Songs {
			if song.Patron == voter {
				continue
			}
			if limit >= 0 && n == limit {
				return n
			}
			vote := models.Vote{
				ID:             id + "-" + voter + "-" + song.ShortTitle,
				ConstitutionID: id,
				SongID:         song.ID,
				UserID:         voter,
				Score:          score(voter, song),
			}
			if err := repo.SaveVote(ctx, id, version, vote); err != nil {
				t.Fatalf("SaveVote failed: %v", err)
			}
			version++
			n++
		}
	}
	return n
}

// publishedConstitution stores a locked constitution with every vote in and
// results showing. Song 0 gets the best grades.
func publishedConstitution(t *testing.T, repo fullRepo, id string) *models.Constitution {
	t.Helper()

	c := testutil.NewConstitution(id, 4, 2, fourMembers...)
	testutil.FillSongs(c)
	c.IsLocked = true
	c.IsShowingResult = true
	storeConstitution(t, repo, c)
	castVotes(t, repo, id, -1, func(voter string, song models.Song) float64 {
		if song.ID == 0 {
			return 10
		}
		return float64(song.ID % 5)
	})
	return reload(t, repo, id)
}

func user(uid string) models.User {
	return models.User{UID: uid, DisplayName: "User " + uid}
}
