package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedUsers creates users named after their uids ("a" -> "User a")
func SeedUsers(t *testing.T, repo repository.UserRepository, uids ...string) []models.User {
	t.Helper()

	users := make([]models.User, 0, len(uids))
	for _, uid := range uids {
		user := models.User{UID: uid, DisplayName: "User " + uid}
		if err := repo.CreateUser(context.Background(), user); err != nil {
			t.Fatalf("failed to create user %s: %v", uid, err)
		}
		users = append(users, user)
	}
	return users
}

// NewConstitution returns an open constitution owned by the first uid with
// every uid as a member and no winner.
func NewConstitution(id string, maxUsers, songsPerUser int, uids ...string) *models.Constitution {
	owner := ""
	if len(uids) > 0 {
		owner = uids[0]
	}
	return &models.Constitution{
		ID:                   id,
		Season:               1,
		Round:                1,
		Name:                 "Constitution " + id,
		Owner:                owner,
		Users:                uids,
		WinnerSongID:         models.NoWinnerSongID,
		NumberMaxOfUser:      maxUsers,
		NumberOfSongsPerUser: songsPerUser,
	}
}

// FillSongs gives every member songsPerUser songs, numbered from 0
func FillSongs(c *models.Constitution) {
	c.Songs = nil
	id := 0
	for _, uid := range c.Users {
		for i := 0; i < c.NumberOfSongsPerUser; i++ {
			c.Songs = append(c.Songs, models.Song{
				ID:         id,
				ShortTitle: fmt.Sprintf("Song %d", id),
				Author:     "Artist " + uid,
				URL:        fmt.Sprintf("https://www.youtube.com/watch?v=vid%04d", id),
				Platform:   models.PlatformYoutube,
				Patron:     uid,
			})
			id++
		}
	}
}
