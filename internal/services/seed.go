package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/pkg/youtube"
)

// Fixtures is the YAML document loaded by SeedService
type Fixtures struct {
	Users         []UserFixture         `yaml:"users"`
	Constitutions []ConstitutionFixture `yaml:"constitutions"`
}

// UserFixture is a user to create
type UserFixture struct {
	UID         string `yaml:"uid"`
	DisplayName string `yaml:"display_name"`
}

// ConstitutionFixture describes a constitution with its songs and votes
type ConstitutionFixture struct {
	ID            string        `yaml:"id"`
	Season        int           `yaml:"season"`
	Round         int           `yaml:"round"`
	Name          string        `yaml:"name"`
	Public        bool          `yaml:"public"`
	Owner         string        `yaml:"owner"`
	Users         []string      `yaml:"users"`
	SongsPerUser  int           `yaml:"songs_per_user"`
	MaxUsers      int           `yaml:"max_users"`
	Locked        bool          `yaml:"locked"`
	ShowingResult bool          `yaml:"showing_result"`
	PlaylistID    string        `yaml:"playlist_id"`
	Songs         []SongFixture `yaml:"songs"`
	Votes         []VoteFixture `yaml:"votes"`
}

// SongFixture is a song of a ConstitutionFixture
type SongFixture struct {
	ID     int    `yaml:"id"`
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	URL    string `yaml:"url"`
	Patron string `yaml:"patron"`
}

// VoteFixture is a vote of a ConstitutionFixture
type VoteFixture struct {
	Song  int     `yaml:"song"`
	User  string  `yaml:"user"`
	Score float64 `yaml:"score"`
}

// SeedResult counts what a seed run created
type SeedResult struct {
	Users         int `json:"users"`
	Constitutions int `json:"constitutions"`
	Songs         int `json:"songs"`
	Votes         int `json:"votes"`
	Skipped       int `json:"skipped"`
}

// SeedServiceRepository defines the repository methods needed by SeedService
type SeedServiceRepository interface {
	repository.UserRepository
	repository.ConstitutionRepository
	repository.VoteRepository
}

// SeedService loads demo data from YAML fixtures
type SeedService struct {
	log  logger.Logger
	repo SeedServiceRepository
}

// NewSeedService creates a new SeedService
func NewSeedService(log logger.Logger, repo SeedServiceRepository) *SeedService {
	return &SeedService{log: log, repo: repo}
}

// SeedFile loads fixtures from a YAML file
func (s *SeedService) SeedFile(ctx context.Context, path string) (*SeedResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	return s.Seed(ctx, data)
}

// Seed loads fixtures. Records that already exist are skipped, so seeding
// twice is harmless.
func (s *SeedService) Seed(ctx context.Context, data []byte) (*SeedResult, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}
	if len(fx.Users) == 0 && len(fx.Constitutions) == 0 {
		return nil, ErrEmptyFixtures
	}

	result := &SeedResult{}
	for _, u := range fx.Users {
		err := s.repo.CreateUser(ctx, models.User{UID: u.UID, DisplayName: u.DisplayName})
		if stderrors.Is(err, repository.ErrDuplicate) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("seeding user %s: %w", u.UID, err)
		}
		result.Users++
	}

	for _, cf := range fx.Constitutions {
		created, err := s.seedConstitution(ctx, cf, result)
		if err != nil {
			return result, fmt.Errorf("seeding constitution %s: %w", cf.ID, err)
		}
		if !created {
			result.Skipped++
		}
	}

	s.log.Info("Fixtures loaded",
		"users", result.Users,
		"constitutions", result.Constitutions,
		"songs", result.Songs,
		"votes", result.Votes,
		"skipped", result.Skipped)
	return result, nil
}

func (s *SeedService) seedConstitution(ctx context.Context, cf ConstitutionFixture, result *SeedResult) (bool, error) {
	owner := cf.Owner
	if owner == "" && len(cf.Users) > 0 {
		owner = cf.Users[0]
	}

	c := &models.Constitution{
		ID:                   cf.ID,
		Season:               cf.Season,
		Round:                cf.Round,
		Name:                 cf.Name,
		IsPublic:             cf.Public,
		Owner:                owner,
		Users:                cf.Users,
		WinnerSongID:         models.NoWinnerSongID,
		YoutubePlaylistID:    cf.PlaylistID,
		NumberOfSongsPerUser: cf.SongsPerUser,
		NumberMaxOfUser:      cf.MaxUsers,
		IsLocked:             cf.Locked || cf.ShowingResult,
		IsShowingResult:      cf.ShowingResult,
	}
	for _, sf := range cf.Songs {
		platform := models.PlatformOther
		if youtube.IsYouTubeURL(sf.URL) {
			platform = models.PlatformYoutube
		}
		c.Songs = append(c.Songs, models.Song{
			ID:         sf.ID,
			ShortTitle: sf.Title,
			Author:     sf.Author,
			URL:        sf.URL,
			Platform:   platform,
			Patron:     sf.Patron,
		})
	}

	err := s.repo.CreateConstitution(ctx, c)
	if stderrors.Is(err, repository.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	result.Constitutions++
	result.Songs += len(c.Songs)

	version := c.Version
	for _, vf := range cf.Votes {
		vote := models.Vote{
			ID:             uuid.NewString(),
			ConstitutionID: c.ID,
			SongID:         vf.Song,
			UserID:         vf.User,
			Score:          vf.Score,
			UpdatedAt:      time.Now().UTC(),
		}
		if err := s.repo.SaveVote(ctx, c.ID, version, vote); err != nil {
			return true, err
		}
		version++
		result.Votes++
	}
	return true, nil
}
