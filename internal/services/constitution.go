package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/go-playground/validator/v10"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/pkg/youtube"
)

// Alphabet and length of generated ids
const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 10
)

var validate = validator.New()

func newID() (string, error) {
	return gonanoid.Generate(idAlphabet, idLength)
}

// validationError turns validator failures into application errors.
// Missing fields are Validation errors, anything else is InvalidInput.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.InvalidInput(err.Error())
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		name := fe.Field()
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	if len(missing) > 0 {
		return errors.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return errors.InvalidInputf("invalid fields: %s", strings.Join(invalid, ", "))
}

// ConstitutionServiceRepository defines the repository methods needed by ConstitutionService
type ConstitutionServiceRepository interface {
	repository.ConstitutionRepository
}

// ConstitutionService handles creating, listing and joining constitutions
type ConstitutionService struct {
	notifier
	log  logger.Logger
	repo ConstitutionServiceRepository
}

// NewConstitutionService creates a new ConstitutionService
func NewConstitutionService(log logger.Logger, repo ConstitutionServiceRepository) *ConstitutionService {
	return &ConstitutionService{log: log, repo: repo}
}

// ConstitutionInput is the form used to create a constitution
type ConstitutionInput struct {
	Season               *int   `json:"season" validate:"required,gte=0"`
	Round                *int   `json:"round" validate:"required,gte=0"`
	Name                 string `json:"name" validate:"required,max=100"`
	IsPublic             bool   `json:"is_public"`
	NumberOfSongsPerUser int    `json:"number_of_songs_per_user" validate:"required,gte=1"`
	NumberMaxOfUser      int    `json:"number_max_of_user" validate:"required,gte=4,lte=10"`
}

// CreateConstitution validates input and stores a new open constitution
// owned by caller
func (s *ConstitutionService) CreateConstitution(ctx context.Context, caller models.User, input ConstitutionInput) (*models.Constitution, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	if input.NumberOfSongsPerUser*input.NumberMaxOfUser > models.MaxSongLimit {
		return nil, errors.InvalidInputf("a constitution holds at most %d songs", models.MaxSongLimit)
	}

	id, err := newID()
	if err != nil {
		return nil, errors.Internal(err)
	}

	c := &models.Constitution{
		ID:                   id,
		Season:               *input.Season,
		Round:                *input.Round,
		Name:                 input.Name,
		IsPublic:             input.IsPublic,
		Owner:                caller.UID,
		Users:                []string{caller.UID},
		Songs:                []models.Song{},
		WinnerSongID:         models.NoWinnerSongID,
		NumberOfSongsPerUser: input.NumberOfSongsPerUser,
		NumberMaxOfUser:      input.NumberMaxOfUser,
	}
	if err := s.repo.CreateConstitution(ctx, c); err != nil {
		return nil, storeError(err, "constitution")
	}

	s.log.Info("Constitution created", "constitution_id", c.ID, "owner", caller.UID, "name", c.Name)
	return c, nil
}

// ListConstitutions returns the live constitutions caller can see: public
// ones and those caller has joined.
func (s *ConstitutionService) ListConstitutions(ctx context.Context, caller models.User) ([]models.Constitution, error) {
	all, err := s.repo.ListConstitutions(ctx)
	if err != nil {
		return nil, storeError(err, "constitutions")
	}

	visible := make([]models.Constitution, 0, len(all))
	for _, c := range all {
		if c.Finished {
			continue
		}
		if c.IsPublic || c.IsMember(caller.UID) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// GetConstitution returns a live constitution if caller may see it
func (s *ConstitutionService) GetConstitution(ctx context.Context, caller models.User, id string) (*models.Constitution, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic && !c.IsMember(caller.UID) {
		return nil, errors.Forbidden("this constitution is private")
	}
	return c, nil
}

// JoinConstitution adds caller to the members of an open constitution.
// Joining twice is a no-op.
func (s *ConstitutionService) JoinConstitution(ctx context.Context, caller models.User, id string) (*models.Constitution, error) {
	for attempt := 1; ; attempt++ {
		c, err := s.join(ctx, caller, id)
		if isVersionConflict(err) && attempt < maxWriteAttempts {
			continue
		}
		return c, err
	}
}

func (s *ConstitutionService) join(ctx context.Context, caller models.User, id string) (*models.Constitution, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if c.IsMember(caller.UID) {
		return c, nil
	}
	if models.StateOf(c) != models.StateOpen {
		return nil, errors.InvalidTransitionf("cannot join a constitution that is %s", models.StateOf(c))
	}
	if len(c.Users) >= c.NumberMaxOfUser {
		return nil, errors.Conflictf("constitution is full (%d members)", c.NumberMaxOfUser)
	}

	users := append(append([]string(nil), c.Users...), caller.UID)
	if err := s.repo.UpdateConstitution(ctx, c.ID, c.Version, models.ConstitutionUpdate{Users: users}); err != nil {
		return nil, storeError(err, "constitution")
	}
	c.Users = users
	c.Version++

	s.log.Info("User joined constitution", "constitution_id", c.ID, "user_id", caller.UID)
	s.broadcast(c.ID, EventMembersChanged)
	return c, nil
}

// SetPlaylist stores the YouTube playlist id of a constitution
func (s *ConstitutionService) SetPlaylist(ctx context.Context, caller models.User, id, playlistID string) (*models.Constitution, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if c.Owner != caller.UID {
		return nil, errors.Forbidden("only the owner can set the playlist")
	}

	playlistID = strings.TrimSpace(playlistID)
	update := models.ConstitutionUpdate{YoutubePlaylistID: &playlistID}
	if err := s.repo.UpdateConstitution(ctx, c.ID, c.Version, update); err != nil {
		return nil, storeError(err, "constitution")
	}
	c.YoutubePlaylistID = playlistID
	c.Version++
	return c, nil
}

// Playlist returns a link playing the songs of a constitution. A stored
// playlist id wins over one generated from the song video ids.
func (s *ConstitutionService) Playlist(ctx context.Context, caller models.User, id string) (string, error) {
	c, err := s.GetConstitution(ctx, caller, id)
	if err != nil {
		return "", err
	}
	if c.YoutubePlaylistID != "" {
		return "https://www.youtube.com/playlist?list=" + c.YoutubePlaylistID, nil
	}

	var ids []string
	for _, song := range c.Songs {
		if song.Platform != models.PlatformYoutube {
			continue
		}
		if vid, err := youtube.ExtractVideoID(song.URL); err == nil {
			ids = append(ids, vid)
		}
	}
	if len(ids) == 0 {
		return "", errors.NotFound("constitution has no YouTube songs")
	}
	return youtube.PlaylistURL(ids), nil
}
