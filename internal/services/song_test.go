package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/services"
	"github.com/matbactivity/songconstitution/internal/testutil"
	"github.com/matbactivity/songconstitution/pkg/youtube"
)

func openConstitution(t *testing.T, repo fullRepo) *models.Constitution {
	t.Helper()
	return storeConstitution(t, repo, testutil.NewConstitution("c1", 4, 2, fourMembers...))
}

func TestSongService_AddSong(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	openConstitution(t, repo)
	svc := services.NewSongService(testLogger(), repo, nil)
	b := &mockBroadcaster{}
	svc.SetBroadcaster(b)

	song, err := svc.AddSong(ctx, user("a"), "c1", services.SongInput{
		ShortTitle: "Heroes", Author: "David Bowie", URL: "https://www.youtube.com/watch?v=lXgkuM2NhYI",
	})
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if song.ID != 0 || song.Patron != "a" || song.Platform != models.PlatformYoutube {
		t.Errorf("unexpected song: %+v", song)
	}

	song, err = svc.AddSong(ctx, user("a"), "c1", services.SongInput{
		ShortTitle: "Karma Police", Author: "Radiohead", URL: "https://soundcloud.com/radiohead/karma",
	})
	if err != nil {
		t.Fatalf("second AddSong failed: %v", err)
	}
	if song.ID != 1 || song.Platform != models.PlatformOther {
		t.Errorf("unexpected second song: %+v", song)
	}

	if len(reload(t, repo, "c1").Songs) != 2 {
		t.Error("expected 2 stored songs")
	}
	if !b.sent(services.EventSongsChanged) {
		t.Error("expected songs_changed broadcast")
	}

	_, err = svc.AddSong(ctx, user("a"), "c1", services.SongInput{
		ShortTitle: "Creep", Author: "Radiohead", URL: "https://soundcloud.com/radiohead/creep",
	})
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("expected quota Conflict, got %v", err)
	}
}

func TestSongService_AddSong_Duplicates(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	openConstitution(t, repo)
	svc := services.NewSongService(testLogger(), repo, nil)

	if _, err := svc.AddSong(ctx, user("a"), "c1", services.SongInput{
		ShortTitle: "Heroes", Author: "David Bowie", URL: "https://www.youtube.com/watch?v=lXgkuM2NhYI",
	}); err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}

	tests := []struct {
		name  string
		input services.SongInput
	}{
		{"same video other link", services.SongInput{ShortTitle: "Other", Author: "Someone", URL: "https://youtu.be/lXgkuM2NhYI"}},
		{"near title same author", services.SongInput{ShortTitle: "Heroes!", Author: "david bowie", URL: "https://example.com/heroes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddSong(ctx, user("b"), "c1", tt.input); !errors.Is(err, errors.ErrConflict) {
				t.Errorf("expected Conflict, got %v", err)
			}
		})
	}

	// same title by another artist is a different song
	if _, err := svc.AddSong(ctx, user("b"), "c1", services.SongInput{
		ShortTitle: "Heroes", Author: "Motorhead", URL: "https://example.com/motorhead-heroes",
	}); err != nil {
		t.Errorf("expected cover by other artist accepted, got %v", err)
	}
}

func TestSongService_AddSong_FillsFromYouTube(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	openConstitution(t, repo)
	yt := youtube.NewMockClient(youtube.WithVideo("abc123", "Paranoid Android", "Radiohead"))
	svc := services.NewSongService(testLogger(), repo, yt)

	song, err := svc.AddSong(context.Background(), user("b"), "c1", services.SongInput{URL: "https://youtu.be/abc123"})
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if song.ShortTitle != "Paranoid Android" || song.Author != "Radiohead" {
		t.Errorf("expected metadata from oEmbed, got %+v", song)
	}
	if yt.Lookups() != 1 {
		t.Errorf("expected 1 lookup, got %d", yt.Lookups())
	}
}

func TestSongService_AddSong_LookupFailureNeedsFields(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	openConstitution(t, repo)
	yt := youtube.NewMockClient(youtube.WithLookupError(stderrors.New("offline")))
	svc := services.NewSongService(testLogger(), repo, yt)

	_, err := svc.AddSong(context.Background(), user("b"), "c1", services.SongInput{URL: "https://youtu.be/abc123"})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestSongService_AddSong_Rejections(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	openConstitution(t, repo)
	lockedConstitution(t, repo, "locked")
	svc := services.NewSongService(testLogger(), repo, nil)
	input := services.SongInput{ShortTitle: "T", Author: "A", URL: "https://example.com/t"}

	if _, err := svc.AddSong(ctx, user("stranger"), "c1", input); !errors.Is(err, errors.ErrForbidden) {
		t.Errorf("expected Forbidden for non-member, got %v", err)
	}
	if _, err := svc.AddSong(ctx, user("a"), "locked", input); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("expected InvalidTransition when locked, got %v", err)
	}
	if _, err := svc.AddSong(ctx, user("a"), "c1", services.SongInput{ShortTitle: "T", Author: "A", URL: "not a url"}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected InvalidInput for bad url, got %v", err)
	}
}

func TestSongService_DeleteSong(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	c := testutil.NewConstitution("c1", 4, 2, fourMembers...)
	testutil.FillSongs(c)
	c.Songs = c.Songs[:4]
	storeConstitution(t, repo, c)
	svc := services.NewSongService(testLogger(), repo, nil)

	before := reload(t, repo, "c1")

	if err := svc.DeleteSong(ctx, user("a"), "c1", 42); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if err := svc.DeleteSong(ctx, user("a"), "c1", 2); !errors.Is(err, errors.ErrForbidden) {
		t.Errorf("expected Forbidden for another member's song, got %v", err)
	}

	after := reload(t, repo, "c1")
	if len(after.Songs) != len(before.Songs) || after.Version != before.Version {
		t.Fatalf("expected no mutation, songs %d->%d version %d->%d",
			len(before.Songs), len(after.Songs), before.Version, after.Version)
	}

	if err := svc.DeleteSong(ctx, user("b"), "c1", 2); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}
	after = reload(t, repo, "c1")
	if _, ok := after.SongByID(2); ok || len(after.Songs) != 3 {
		t.Errorf("expected song 2 removed, got %+v", after.Songs)
	}

	// ids are never reused while higher ids remain
	song, err := svc.AddSong(ctx, user("b"), "c1", services.SongInput{ShortTitle: "New", Author: "B", URL: "https://example.com/new"})
	if err != nil {
		t.Fatalf("AddSong failed: %v", err)
	}
	if song.ID != 4 {
		t.Errorf("expected id 4, got %d", song.ID)
	}
}
