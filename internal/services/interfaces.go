package services

import (
	"context"

	"github.com/matbactivity/songconstitution/internal/models"
)

// UserServicer defines the interface for user operations
type UserServicer interface {
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// ConstitutionServicer defines the interface for constitution operations
type ConstitutionServicer interface {
	CreateConstitution(ctx context.Context, caller models.User, input ConstitutionInput) (*models.Constitution, error)
	ListConstitutions(ctx context.Context, caller models.User) ([]models.Constitution, error)
	GetConstitution(ctx context.Context, caller models.User, id string) (*models.Constitution, error)
	JoinConstitution(ctx context.Context, caller models.User, id string) (*models.Constitution, error)
	SetPlaylist(ctx context.Context, caller models.User, id, playlistID string) (*models.Constitution, error)
	Playlist(ctx context.Context, caller models.User, id string) (string, error)
	SetBroadcaster(b Broadcaster)
}

// SongServicer defines the interface for song operations
type SongServicer interface {
	AddSong(ctx context.Context, caller models.User, id string, input SongInput) (*models.Song, error)
	DeleteSong(ctx context.Context, caller models.User, id string, songID int) error
	SetBroadcaster(b Broadcaster)
}

// VotingServicer defines the interface for voting operations
type VotingServicer interface {
	SubmitVote(ctx context.Context, caller models.User, id string, input VoteInput) (*VoteResult, error)
	ListVotes(ctx context.Context, caller models.User, id string) ([]models.Vote, error)
	SetBroadcaster(b Broadcaster)
	SetRecorder(r Recorder)
}

// ResultsServicer defines the interface for results operations
type ResultsServicer interface {
	CalculateResults(ctx context.Context, caller models.User, id string) (*ResultSet, error)
	RefreshWinner(ctx context.Context, c *models.Constitution) (*ResultSet, error)
	SetBroadcaster(b Broadcaster)
}

// LifecycleServicer defines the interface for state transitions
type LifecycleServicer interface {
	GetProgress(ctx context.Context, id string) (*Progress, error)
	ChangeLockStatus(ctx context.Context, caller models.User, id string, locked bool) (*models.Constitution, error)
	ChangeResultsStatus(ctx context.Context, caller models.User, id string, showing bool) (*models.Constitution, error)
	FinishConstitution(ctx context.Context, caller models.User, id string) (*FinishResult, error)
	DeleteConstitution(ctx context.Context, caller models.User, id string) error
	SetBroadcaster(b Broadcaster)
	SetRecorder(r Recorder)
}

// StatsServicer defines the interface for per-member statistics
type StatsServicer interface {
	GetStats(ctx context.Context, caller models.User, id string) ([]UserStats, error)
}

// HistoryServicer defines the interface for archived constitutions
type HistoryServicer interface {
	ListHistory(ctx context.Context) ([]models.HistoryRecord, error)
	GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	ScoreRange(ctx context.Context) (min, max float64, err error)
	SetScoreRange(ctx context.Context, min, max float64) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]interface{}, error)
}

// InviteServicer defines the interface for invitations
type InviteServicer interface {
	JoinURL(ctx context.Context, id string) (string, error)
	InviteQRCode(ctx context.Context, caller models.User, id string) ([]byte, error)
}

// CleanupServicer defines the interface for archive cleanup retries
type CleanupServicer interface {
	RunOnce(ctx context.Context) (int, error)
	Run(ctx context.Context)
	SetRecorder(r Recorder)
}

// SeedServicer defines the interface for loading fixtures
type SeedServicer interface {
	Seed(ctx context.Context, data []byte) (*SeedResult, error)
	SeedFile(ctx context.Context, path string) (*SeedResult, error)
}

// Ensure concrete types implement interfaces
var (
	_ UserServicer         = (*UserService)(nil)
	_ ConstitutionServicer = (*ConstitutionService)(nil)
	_ SongServicer         = (*SongService)(nil)
	_ VotingServicer       = (*VotingService)(nil)
	_ ResultsServicer      = (*ResultsService)(nil)
	_ LifecycleServicer    = (*LifecycleService)(nil)
	_ StatsServicer        = (*StatsService)(nil)
	_ HistoryServicer      = (*HistoryService)(nil)
	_ SettingsServicer     = (*SettingsService)(nil)
	_ InviteServicer       = (*InviteService)(nil)
	_ CleanupServicer      = (*CleanupService)(nil)
	_ SeedServicer         = (*SeedService)(nil)
)
