package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// Transition names a lifecycle move
type Transition string

const (
	TransitionLock    Transition = "lock"
	TransitionUnlock  Transition = "unlock"
	TransitionPublish Transition = "publish"
	TransitionHide    Transition = "hide"
	TransitionFinish  Transition = "finish"
)

var transitions = map[Transition]struct{ from, to models.State }{
	TransitionLock:    {models.StateOpen, models.StateLocked},
	TransitionUnlock:  {models.StateLocked, models.StateOpen},
	TransitionPublish: {models.StateLocked, models.StateResultsPublished},
	TransitionHide:    {models.StateResultsPublished, models.StateLocked},
	TransitionFinish:  {models.StateResultsPublished, models.StateFinished},
}

// NextState returns the state reached by applying t in state from
func NextState(from models.State, t Transition) (models.State, error) {
	move, ok := transitions[t]
	if !ok {
		return from, errors.InvalidTransitionf("unknown transition %q", t)
	}
	if move.from != from {
		return from, errors.InvalidTransitionf("cannot %s a constitution that is %s", t, from)
	}
	return move.to, nil
}

// RequiredVotes is the number of votes needed to publish results: every
// member grades every song of every other member.
func RequiredVotes(c *models.Constitution) int {
	return c.NumberOfSongsPerUser * c.NumberMaxOfUser * (c.NumberMaxOfUser - 1)
}

// CanLockSongList reports whether the song list holds exactly its capacity
func CanLockSongList(c *models.Constitution) bool {
	return len(c.Songs) == c.SongCapacity()
}

// CanPublishResults reports whether exactly the required number of votes is in
func CanPublishResults(c *models.Constitution, voteCount int) bool {
	return voteCount == RequiredVotes(c)
}

// CanFinishConstitution reports whether results are shown and a winner is cached
func CanFinishConstitution(c *models.Constitution) bool {
	return c.HasWinner() && c.IsShowingResult
}

// LifecycleServiceRepository defines the repository methods needed by LifecycleService
type LifecycleServiceRepository interface {
	repository.ConstitutionRepository
	repository.VoteRepository
	repository.UserRepository
	repository.ArchiveRepository
}

// LifecycleService moves constitutions through their states
type LifecycleService struct {
	notifier
	log     logger.Logger
	repo    LifecycleServiceRepository
	results ResultsServicer
	tracer  trace.Tracer
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(log logger.Logger, repo LifecycleServiceRepository, results ResultsServicer) *LifecycleService {
	return &LifecycleService{
		log:     log,
		repo:    repo,
		results: results,
		tracer:  otel.Tracer("songconstitution/lifecycle"),
	}
}

// Progress summarises where a constitution stands and which moves are open.
// CanFinish means finish is accepted; WinnerCached is the finish guard, and
// finish computes the winner first when it is false.
type Progress struct {
	State         models.State `json:"state"`
	Songs         int          `json:"songs"`
	SongCapacity  int          `json:"song_capacity"`
	Votes         int          `json:"votes"`
	RequiredVotes int          `json:"required_votes"`
	CanLock       bool         `json:"can_lock"`
	CanPublish    bool         `json:"can_publish"`
	CanFinish     bool         `json:"can_finish"`
	WinnerCached  bool         `json:"winner_cached"`
	Version       int64        `json:"version"`
}

// GetProgress evaluates every guard against the stored state
func (s *LifecycleService) GetProgress(ctx context.Context, id string) (*Progress, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountVotes(ctx, id)
	if err != nil {
		return nil, storeError(err, "votes")
	}

	state := models.StateOf(c)
	return &Progress{
		State:         state,
		Songs:         len(c.Songs),
		SongCapacity:  c.SongCapacity(),
		Votes:         count,
		RequiredVotes: RequiredVotes(c),
		CanLock:       state == models.StateOpen && CanLockSongList(c),
		CanPublish:    state == models.StateLocked && CanPublishResults(c, count),
		CanFinish:     state == models.StateResultsPublished,
		WinnerCached:  CanFinishConstitution(c),
		Version:       c.Version,
	}, nil
}

// loadOwned returns a live constitution owned by caller
func (s *LifecycleService) loadOwned(ctx context.Context, caller models.User, id string) (*models.Constitution, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if c.Owner != caller.UID {
		return nil, errors.Forbidden("only the owner can change the state of a constitution")
	}
	return c, nil
}

// ChangeLockStatus locks the song list when it is full, or reopens it
func (s *LifecycleService) ChangeLockStatus(ctx context.Context, caller models.User, id string, locked bool) (*models.Constitution, error) {
	t := TransitionUnlock
	if locked {
		t = TransitionLock
	}

	c, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	next, err := NextState(models.StateOf(c), t)
	if err != nil {
		s.recordTransition(string(t), "rejected")
		return nil, err
	}
	if locked && !CanLockSongList(c) {
		s.recordTransition(string(t), "rejected")
		return nil, errors.InvalidTransitionf("song list needs exactly %d songs to lock, it has %d", c.SongCapacity(), len(c.Songs))
	}

	return s.apply(ctx, c, t, next)
}

// ChangeResultsStatus publishes results once every vote is in, or hides them again
func (s *LifecycleService) ChangeResultsStatus(ctx context.Context, caller models.User, id string, showing bool) (*models.Constitution, error) {
	t := TransitionHide
	if showing {
		t = TransitionPublish
	}

	c, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	next, err := NextState(models.StateOf(c), t)
	if err != nil {
		s.recordTransition(string(t), "rejected")
		return nil, err
	}
	if showing {
		count, err := s.repo.CountVotes(ctx, id)
		if err != nil {
			return nil, storeError(err, "votes")
		}
		if !CanPublishResults(c, count) {
			s.recordTransition(string(t), "rejected")
			return nil, errors.InvalidTransitionf("results need exactly %d votes to publish, there are %d", RequiredVotes(c), count)
		}
	}

	return s.apply(ctx, c, t, next)
}

// apply writes the flags of next if c is still at the version it was read at
func (s *LifecycleService) apply(ctx context.Context, c *models.Constitution, t Transition, next models.State) (*models.Constitution, error) {
	locked, showing := next.Flags()
	update := models.ConstitutionUpdate{IsLocked: &locked, IsShowingResult: &showing}
	if err := s.repo.UpdateConstitution(ctx, c.ID, c.Version, update); err != nil {
		s.recordTransition(string(t), "conflict")
		return nil, storeError(err, "constitution")
	}

	c.IsLocked = locked
	c.IsShowingResult = showing
	c.Version++

	s.log.Info("Constitution state changed", "constitution_id", c.ID, "transition", t, "state", next)
	s.recordTransition(string(t), "ok")
	s.broadcast(c.ID, EventStateChanged)
	return c, nil
}

// FinishResult is returned by FinishConstitution
type FinishResult struct {
	Record         models.HistoryRecord `json:"record"`
	Location       string               `json:"location"`
	CleanupPending bool                 `json:"cleanup_pending"`
}

// FinishConstitution archives a constitution whose results are published
// and removes its live documents. The aggregator only runs when no winner is
// cached. When the record is written but cleanup is incomplete, the result is
// returned together with a PartialArchive error.
func (s *LifecycleService) FinishConstitution(ctx context.Context, caller models.User, id string) (*FinishResult, error) {
	ctx, span := s.tracer.Start(ctx, "LifecycleService.FinishConstitution",
		trace.WithAttributes(attribute.String("constitution.id", id)))
	defer span.End()

	c, err := s.loadOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if _, err := NextState(models.StateOf(c), TransitionFinish); err != nil {
		s.recordTransition(string(TransitionFinish), "rejected")
		return nil, err
	}

	if !c.HasWinner() {
		span.AddEvent("computing winner")
		if _, err := s.results.RefreshWinner(ctx, c); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	if !CanFinishConstitution(c) {
		s.recordTransition(string(TransitionFinish), "rejected")
		return nil, errors.InvalidTransitionf("constitution has no winner to archive")
	}

	record, err := s.buildRecord(ctx, c)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &FinishResult{Record: record, Location: "/api/history/" + record.ID}
	err = s.repo.ArchiveConstitution(ctx, c.ID, c.Version, record)
	switch {
	case err == nil:
		s.log.Info("Constitution archived", "constitution_id", c.ID, "history_id", record.ID)
		s.recordTransition(string(TransitionFinish), "ok")
		s.recordArchive("ok")
		s.broadcast(c.ID, EventFinished)
		return result, nil
	case stderrors.Is(err, repository.ErrCleanupPending):
		span.RecordError(err)
		s.log.Warn("Constitution archived with pending cleanup", "constitution_id", c.ID, "history_id", record.ID, "error", err)
		s.recordTransition(string(TransitionFinish), "ok")
		s.recordArchive("partial")
		s.broadcast(c.ID, EventFinished)
		result.CleanupPending = true
		return result, errors.PartialArchive(c.ID, err)
	default:
		span.RecordError(err)
		s.log.Error("Failed to archive constitution", "constitution_id", c.ID, "error", err)
		s.recordTransition(string(TransitionFinish), "conflict")
		s.recordArchive("failed")
		return nil, storeError(err, "constitution")
	}
}

// buildRecord snapshots c into a history record
func (s *LifecycleService) buildRecord(ctx context.Context, c *models.Constitution) (models.HistoryRecord, error) {
	song, ok := c.SongByID(c.WinnerSongID)
	if !ok {
		return models.HistoryRecord{}, errors.NotFoundf("winning song %d not found", c.WinnerSongID)
	}
	if _, err := s.repo.GetUser(ctx, c.WinnerUserID); err != nil {
		return models.HistoryRecord{}, storeError(err, "winning user")
	}

	record := models.HistoryRecord{
		ID:                uuid.NewString(),
		ConstitutionID:    c.ID,
		Season:            c.Season,
		Round:             c.Round,
		Name:              c.Name,
		OwnerID:           c.Owner,
		YoutubePlaylistID: c.YoutubePlaylistID,
		WinnerID:          c.WinnerUserID,
		WinnerSongURL:     song.URL,
		WinnerSongTitle:   song.ShortTitle,
		WinnerSongAuthor:  song.Author,
		Usernames:         append([]string(nil), c.Users...),
		ArchivedAt:        time.Now().UTC(),
	}
	for _, s := range c.Songs {
		record.SongsTitle = append(record.SongsTitle, s.ShortTitle)
		record.SongsAuthor = append(record.SongsAuthor, s.Author)
		record.SongsURL = append(record.SongsURL, s.URL)
		record.SongsOwner = append(record.SongsOwner, s.Patron)
	}
	return record, nil
}

// DeleteConstitution removes a constitution without archiving it
func (s *LifecycleService) DeleteConstitution(ctx context.Context, caller models.User, id string) error {
	if _, err := s.loadOwned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.DeleteConstitution(ctx, id); err != nil {
		return storeError(err, "constitution")
	}
	s.log.Info("Constitution deleted", "constitution_id", id, "by", caller.UID)
	s.broadcast(id, EventDeleted)
	return nil
}
