package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// maxWriteAttempts bounds how often a conditional write is retried after a
// version conflict
const maxWriteAttempts = 3

// VotingServiceRepository defines the repository methods needed by VotingService
type VotingServiceRepository interface {
	repository.ConstitutionRepository
	repository.VoteRepository
}

// VotingService handles vote-related business logic
type VotingService struct {
	notifier
	log      logger.Logger
	repo     VotingServiceRepository
	settings SettingsServicer
}

// NewVotingService creates a new VotingService
func NewVotingService(log logger.Logger, repo VotingServiceRepository, settings SettingsServicer) *VotingService {
	return &VotingService{
		log:      log,
		repo:     repo,
		settings: settings,
	}
}

// VoteInput is a grade submitted by a member
type VoteInput struct {
	SongID int      `json:"song_id" validate:"gte=0"`
	Score  *float64 `json:"score" validate:"required"`
}

// VoteResult contains the result of a vote submission
type VoteResult struct {
	Vote    models.Vote `json:"vote"`
	Votes   int         `json:"votes"`
	Message string      `json:"message"`
}

// SubmitVote records or replaces the grade of caller on a song. Votes are
// accepted while the song list is locked and results are hidden.
func (s *VotingService) SubmitVote(ctx context.Context, caller models.User, id string, input VoteInput) (*VoteResult, error) {
	if input.Score == nil {
		return nil, errors.Validation("score is required")
	}
	min, max, err := s.settings.ScoreRange(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if *input.Score < min || *input.Score > max {
		return nil, errors.InvalidInputf("score must be between %g and %g", min, max)
	}

	for attempt := 1; ; attempt++ {
		result, err := s.submit(ctx, caller, id, input.SongID, *input.Score)
		if isVersionConflict(err) && attempt < maxWriteAttempts {
			s.log.Debug("Retrying vote after version conflict", "constitution_id", id, "attempt", attempt)
			continue
		}
		return result, err
	}
}

func (s *VotingService) submit(ctx context.Context, caller models.User, id string, songID int, score float64) (*VoteResult, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(caller.UID) {
		return nil, errors.Forbidden("only members can vote")
	}
	if models.StateOf(c) != models.StateLocked {
		return nil, errors.InvalidTransitionf("votes are only accepted while the constitution is locked, it is %s", models.StateOf(c))
	}
	song, ok := c.SongByID(songID)
	if !ok {
		return nil, errors.NotFoundf("song %d not found", songID)
	}
	if song.Patron == caller.UID {
		return nil, errors.Forbidden("you cannot vote for your own song")
	}

	vote := models.Vote{
		ID:             uuid.NewString(),
		ConstitutionID: c.ID,
		SongID:         songID,
		UserID:         caller.UID,
		Score:          score,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.repo.SaveVote(ctx, c.ID, c.Version, vote); err != nil {
		return nil, storeError(err, "constitution")
	}

	count, err := s.repo.CountVotes(ctx, c.ID)
	if err != nil {
		return nil, storeError(err, "votes")
	}

	s.log.Info("Vote recorded", "constitution_id", c.ID, "song_id", songID, "user_id", caller.UID)
	s.recordVote()
	s.broadcast(c.ID, EventVotesChanged)
	return &VoteResult{Vote: vote, Votes: count, Message: "Vote recorded"}, nil
}

// ListVotes returns every vote once results are published and only the
// caller's own votes before that.
func (s *VotingService) ListVotes(ctx context.Context, caller models.User, id string) ([]models.Vote, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(caller.UID) {
		return nil, errors.Forbidden("only members can see votes")
	}

	votes, err := s.repo.ListVotes(ctx, id)
	if err != nil {
		return nil, storeError(err, "votes")
	}
	if c.IsShowingResult {
		return votes, nil
	}

	own := make([]models.Vote, 0)
	for _, v := range votes {
		if v.UserID == caller.UID {
			own = append(own, v)
		}
	}
	return own, nil
}
