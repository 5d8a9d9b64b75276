package repository

import (
	"context"

	"github.com/matbactivity/songconstitution/internal/models"
)

// UserRepository defines user data operations
type UserRepository interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	GetUserByDisplayName(ctx context.Context, displayName string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	ListUsers(ctx context.Context, uids []string) ([]models.User, error)
}

// ConstitutionRepository defines constitution data operations.
// Every write that takes a version is conditional on the stored version and
// increments it on success.
type ConstitutionRepository interface {
	CreateConstitution(ctx context.Context, c *models.Constitution) error
	GetConstitution(ctx context.Context, id string) (*models.Constitution, error)
	ListConstitutions(ctx context.Context) ([]models.Constitution, error)
	UpdateConstitution(ctx context.Context, id string, version int64, update models.ConstitutionUpdate) error
	DeleteConstitution(ctx context.Context, id string) error
}

// SongRepository defines song data operations
type SongRepository interface {
	AddSong(ctx context.Context, constitutionID string, version int64, song models.Song) error
	DeleteSong(ctx context.Context, constitutionID string, version int64, songID int) error
}

// VoteRepository defines vote data operations
type VoteRepository interface {
	ListVotes(ctx context.Context, constitutionID string) ([]models.Vote, error)
	CountVotes(ctx context.Context, constitutionID string) (int, error)
	SaveVote(ctx context.Context, constitutionID string, version int64, vote models.Vote) error
}

// HistoryRepository defines read access to archived constitutions
type HistoryRepository interface {
	ListHistory(ctx context.Context) ([]models.HistoryRecord, error)
	GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error)
}

// ArchiveRepository defines the finish sequence of a constitution.
// ArchiveConstitution writes the history record and marks the constitution
// finished in one conditional write, then removes its live documents. When
// removal does not complete the constitution stays behind as a finished
// tombstone listed by ListPendingCleanups.
type ArchiveRepository interface {
	ArchiveConstitution(ctx context.Context, id string, version int64, record models.HistoryRecord) error
	ListPendingCleanups(ctx context.Context) ([]string, error)
	CleanupConstitution(ctx context.Context, id string) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	UserRepository
	ConstitutionRepository
	SongRepository
	VoteRepository
	HistoryRepository
	ArchiveRepository
	SettingsRepository
	Ping(ctx context.Context) error
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
