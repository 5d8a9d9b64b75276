package services

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/pkg/youtube"
)

// maxTitleDistance is the edit distance under which two titles by the same
// author are treated as the same song
const maxTitleDistance = 2

// SongServiceRepository defines the repository methods needed by SongService
type SongServiceRepository interface {
	repository.ConstitutionRepository
	repository.SongRepository
}

// SongService handles song submissions
type SongService struct {
	notifier
	log     logger.Logger
	repo    SongServiceRepository
	youtube youtube.Client
}

// NewSongService creates a new SongService. yt may be nil, in which case
// missing titles are never looked up.
func NewSongService(log logger.Logger, repo SongServiceRepository, yt youtube.Client) *SongService {
	return &SongService{log: log, repo: repo, youtube: yt}
}

// SongInput is a song submission
type SongInput struct {
	ShortTitle string `json:"short_title" validate:"required,max=200"`
	Author     string `json:"author" validate:"required,max=200"`
	URL        string `json:"url" validate:"required,url"`
}

// AddSong adds a song of caller to an open constitution
func (s *SongService) AddSong(ctx context.Context, caller models.User, id string, input SongInput) (*models.Song, error) {
	input.ShortTitle = strings.TrimSpace(input.ShortTitle)
	input.Author = strings.TrimSpace(input.Author)
	input.URL = strings.TrimSpace(input.URL)

	platform := models.PlatformOther
	if youtube.IsYouTubeURL(input.URL) {
		platform = models.PlatformYoutube
		s.fillFromYouTube(ctx, &input)
	}
	if err := validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	for attempt := 1; ; attempt++ {
		song, err := s.add(ctx, caller, id, input, platform)
		if isVersionConflict(err) && attempt < maxWriteAttempts {
			continue
		}
		return song, err
	}
}

func (s *SongService) add(ctx context.Context, caller models.User, id string, input SongInput, platform models.Platform) (*models.Song, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(caller.UID) {
		return nil, errors.Forbidden("only members can add songs")
	}
	if models.StateOf(c) != models.StateOpen {
		return nil, errors.InvalidTransitionf("songs can only be added while the constitution is open, it is %s", models.StateOf(c))
	}
	if len(c.SongsOf(caller.UID)) >= c.NumberOfSongsPerUser {
		return nil, errors.Conflictf("you already submitted %d songs", c.NumberOfSongsPerUser)
	}
	if len(c.Songs) >= c.SongCapacity() {
		return nil, errors.Conflict("the song list is full")
	}
	if dup, ok := findDuplicate(c.Songs, input); ok {
		return nil, errors.Conflictf("song already submitted as %q by %s", dup.ShortTitle, dup.Author)
	}

	song := models.Song{
		ID:         nextSongID(c.Songs),
		ShortTitle: input.ShortTitle,
		Author:     input.Author,
		URL:        input.URL,
		Platform:   platform,
		Patron:     caller.UID,
	}
	if err := s.repo.AddSong(ctx, c.ID, c.Version, song); err != nil {
		return nil, storeError(err, "constitution")
	}

	s.log.Info("Song added", "constitution_id", c.ID, "song_id", song.ID, "patron", caller.UID)
	s.broadcast(c.ID, EventSongsChanged)
	return &song, nil
}

// DeleteSong removes a song submitted by caller while the constitution is open
func (s *SongService) DeleteSong(ctx context.Context, caller models.User, id string, songID int) error {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return err
	}
	song, ok := c.SongByID(songID)
	if !ok {
		return errors.NotFoundf("song %d not found", songID)
	}
	if song.Patron != caller.UID {
		return errors.Forbidden("you can only delete your own songs")
	}
	if models.StateOf(c) != models.StateOpen {
		return errors.InvalidTransitionf("songs can only be deleted while the constitution is open, it is %s", models.StateOf(c))
	}

	if err := s.repo.DeleteSong(ctx, c.ID, c.Version, songID); err != nil {
		return storeError(err, "song")
	}

	s.log.Info("Song deleted", "constitution_id", c.ID, "song_id", songID, "patron", caller.UID)
	s.broadcast(c.ID, EventSongsChanged)
	return nil
}

// fillFromYouTube completes a missing title or author from oEmbed.
// Lookup failures leave the input unchanged.
func (s *SongService) fillFromYouTube(ctx context.Context, input *SongInput) {
	if s.youtube == nil || (input.ShortTitle != "" && input.Author != "") {
		return
	}
	video, err := s.youtube.LookupVideo(ctx, input.URL)
	if err != nil {
		s.log.Warn("YouTube lookup failed", "url", input.URL, "error", err)
		return
	}
	if input.ShortTitle == "" {
		input.ShortTitle = strings.TrimSpace(video.Title)
	}
	if input.Author == "" {
		input.Author = strings.TrimSpace(video.AuthorName)
	}
}

// nextSongID returns one more than the highest id in use, starting at 0
func nextSongID(songs []models.Song) int {
	next := 0
	for _, song := range songs {
		if song.ID >= next {
			next = song.ID + 1
		}
	}
	return next
}

// findDuplicate looks for a song with the same video or URL, or with the same
// author and a nearly identical title
func findDuplicate(songs []models.Song, input SongInput) (models.Song, bool) {
	videoID, _ := youtube.ExtractVideoID(input.URL)
	title := strings.ToLower(input.ShortTitle)
	author := strings.ToLower(input.Author)

	for _, song := range songs {
		if strings.EqualFold(song.URL, input.URL) {
			return song, true
		}
		if videoID != "" {
			if other, err := youtube.ExtractVideoID(song.URL); err == nil && other == videoID {
				return song, true
			}
		}
		if strings.ToLower(song.Author) == author &&
			levenshtein.ComputeDistance(strings.ToLower(song.ShortTitle), title) <= maxTitleDistance {
			return song, true
		}
	}
	return models.Song{}, false
}
