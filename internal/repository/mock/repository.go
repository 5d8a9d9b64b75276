package mock

import (
	"context"
	"sync"

	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.ListVotesError = errors.New("database error")
//	svc := services.NewResultsService(log, mockRepo)
//	_, err := svc.CalculateResults(ctx, caller, id)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== User Errors =====
	GetUserError              error
	GetUserByDisplayNameError error
	CreateUserError           error
	ListUsersError            error

	// ===== Constitution Errors =====
	CreateConstitutionError error
	GetConstitutionError    error
	ListConstitutionsError  error
	UpdateConstitutionError error
	DeleteConstitutionError error

	// ===== Song Errors =====
	AddSongError    error
	DeleteSongError error

	// ===== Vote Errors =====
	ListVotesError  error
	CountVotesError error
	SaveVoteError   error

	// ===== History / Archive Errors =====
	ListHistoryError         error
	GetHistoryError          error
	ArchiveError             error
	ListPendingCleanupsError error
	CleanupError             error

	// CleanupFailures makes the first N CleanupConstitution calls fail with CleanupError
	CleanupFailures int

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error

	mu    sync.Mutex
	calls map[string]int
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
		calls:          make(map[string]int),
	}
}

// Calls returns how many times the named method was invoked
func (m *Repository) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Repository) record(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	return m.calls[method]
}

// ===== User Methods =====

func (m *Repository) GetUser(ctx context.Context, uid string) (*models.User, error) {
	m.record("GetUser")
	if m.GetUserError != nil {
		return nil, m.GetUserError
	}
	return m.FullRepository.GetUser(ctx, uid)
}

func (m *Repository) GetUserByDisplayName(ctx context.Context, displayName string) (*models.User, error) {
	m.record("GetUserByDisplayName")
	if m.GetUserByDisplayNameError != nil {
		return nil, m.GetUserByDisplayNameError
	}
	return m.FullRepository.GetUserByDisplayName(ctx, displayName)
}

func (m *Repository) CreateUser(ctx context.Context, user models.User) error {
	m.record("CreateUser")
	if m.CreateUserError != nil {
		return m.CreateUserError
	}
	return m.FullRepository.CreateUser(ctx, user)
}

func (m *Repository) ListUsers(ctx context.Context, uids []string) ([]models.User, error) {
	m.record("ListUsers")
	if m.ListUsersError != nil {
		return nil, m.ListUsersError
	}
	return m.FullRepository.ListUsers(ctx, uids)
}

// ===== Constitution Methods =====

func (m *Repository) CreateConstitution(ctx context.Context, c *models.Constitution) error {
	m.record("CreateConstitution")
	if m.CreateConstitutionError != nil {
		return m.CreateConstitutionError
	}
	return m.FullRepository.CreateConstitution(ctx, c)
}

func (m *Repository) GetConstitution(ctx context.Context, id string) (*models.Constitution, error) {
	m.record("GetConstitution")
	if m.GetConstitutionError != nil {
		return nil, m.GetConstitutionError
	}
	return m.FullRepository.GetConstitution(ctx, id)
}

func (m *Repository) ListConstitutions(ctx context.Context) ([]models.Constitution, error) {
	m.record("ListConstitutions")
	if m.ListConstitutionsError != nil {
		return nil, m.ListConstitutionsError
	}
	return m.FullRepository.ListConstitutions(ctx)
}

func (m *Repository) UpdateConstitution(ctx context.Context, id string, version int64, update models.ConstitutionUpdate) error {
	m.record("UpdateConstitution")
	if m.UpdateConstitutionError != nil {
		return m.UpdateConstitutionError
	}
	return m.FullRepository.UpdateConstitution(ctx, id, version, update)
}

func (m *Repository) DeleteConstitution(ctx context.Context, id string) error {
	m.record("DeleteConstitution")
	if m.DeleteConstitutionError != nil {
		return m.DeleteConstitutionError
	}
	return m.FullRepository.DeleteConstitution(ctx, id)
}

// ===== Song Methods =====

func (m *Repository) AddSong(ctx context.Context, constitutionID string, version int64, song models.Song) error {
	m.record("AddSong")
	if m.AddSongError != nil {
		return m.AddSongError
	}
	return m.FullRepository.AddSong(ctx, constitutionID, version, song)
}

func (m *Repository) DeleteSong(ctx context.Context, constitutionID string, version int64, songID int) error {
	m.record("DeleteSong")
	if m.DeleteSongError != nil {
		return m.DeleteSongError
	}
	return m.FullRepository.DeleteSong(ctx, constitutionID, version, songID)
}

// ===== Vote Methods =====

func (m *Repository) ListVotes(ctx context.Context, constitutionID string) ([]models.Vote, error) {
	m.record("ListVotes")
	if m.ListVotesError != nil {
		return nil, m.ListVotesError
	}
	return m.FullRepository.ListVotes(ctx, constitutionID)
}

func (m *Repository) CountVotes(ctx context.Context, constitutionID string) (int, error) {
	m.record("CountVotes")
	if m.CountVotesError != nil {
		return 0, m.CountVotesError
	}
	return m.FullRepository.CountVotes(ctx, constitutionID)
}

func (m *Repository) SaveVote(ctx context.Context, constitutionID string, version int64, vote models.Vote) error {
	m.record("SaveVote")
	if m.SaveVoteError != nil {
		return m.SaveVoteError
	}
	return m.FullRepository.SaveVote(ctx, constitutionID, version, vote)
}

// ===== History / Archive Methods =====

func (m *Repository) ListHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	m.record("ListHistory")
	if m.ListHistoryError != nil {
		return nil, m.ListHistoryError
	}
	return m.FullRepository.ListHistory(ctx)
}

func (m *Repository) GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error) {
	m.record("GetHistory")
	if m.GetHistoryError != nil {
		return nil, m.GetHistoryError
	}
	return m.FullRepository.GetHistory(ctx, id)
}

func (m *Repository) ArchiveConstitution(ctx context.Context, id string, version int64, record models.HistoryRecord) error {
	m.record("ArchiveConstitution")
	if m.ArchiveError != nil {
		return m.ArchiveError
	}
	return m.FullRepository.ArchiveConstitution(ctx, id, version, record)
}

func (m *Repository) ListPendingCleanups(ctx context.Context) ([]string, error) {
	m.record("ListPendingCleanups")
	if m.ListPendingCleanupsError != nil {
		return nil, m.ListPendingCleanupsError
	}
	return m.FullRepository.ListPendingCleanups(ctx)
}

func (m *Repository) CleanupConstitution(ctx context.Context, id string) error {
	n := m.record("CleanupConstitution")
	if m.CleanupError != nil && (m.CleanupFailures == 0 || n <= m.CleanupFailures) {
		return m.CleanupError
	}
	return m.FullRepository.CleanupConstitution(ctx, id)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	m.record("GetSetting")
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	m.record("SetSetting")
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}
