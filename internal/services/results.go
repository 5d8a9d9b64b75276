package services

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// ResultsServiceRepository defines the repository methods needed by ResultsService
type ResultsServiceRepository interface {
	repository.ConstitutionRepository
	repository.VoteRepository
	repository.UserRepository
}

// ResultsService computes rankings and keeps the cached winner current
type ResultsService struct {
	notifier
	log    logger.Logger
	repo   ResultsServiceRepository
	tracer trace.Tracer
}

// NewResultsService creates a new ResultsService
func NewResultsService(log logger.Logger, repo ResultsServiceRepository) *ResultsService {
	return &ResultsService{
		log:    log,
		repo:   repo,
		tracer: otel.Tracer("songconstitution/results"),
	}
}

// Result is the ranking entry of one song
type Result struct {
	SongID    int     `json:"song_id"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	URL       string  `json:"url"`
	Score     float64 `json:"score"`
	VoteCount int     `json:"vote_count"`
	UserID    string  `json:"user_id"`
}

// ResultSet is a ranking plus the songs left out of it
type ResultSet struct {
	ConstitutionID string        `json:"constitution_id"`
	Results        []Result      `json:"results"`
	Excluded       []int         `json:"excluded,omitempty"` // songs whose patron is not a known user
	WinnerSongID   int           `json:"winner_song_id"`
	WinnerUserID   string        `json:"winner_user_id"`
	WinnerUpdated  bool          `json:"winner_updated"`
	Users          []models.User `json:"users"` // members, for display names
}

// ComputeResults scores every song by the mean of its votes and ranks them
// by descending score. A song without votes scores 0 and stays ranked.
// Songs whose patron is not in users are left out and listed in Excluded.
func ComputeResults(songs []models.Song, votes []models.Vote, users []models.User) (*ResultSet, error) {
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.UID] = true
	}

	type tally struct {
		sum   float64
		count int
	}
	tallies := make(map[int]*tally, len(songs))
	for _, v := range votes {
		t, ok := tallies[v.SongID]
		if !ok {
			t = &tally{}
			tallies[v.SongID] = t
		}
		t.sum += v.Score
		t.count++
	}

	rs := &ResultSet{WinnerSongID: models.NoWinnerSongID}
	for _, song := range songs {
		if !known[song.Patron] {
			rs.Excluded = append(rs.Excluded, song.ID)
			continue
		}
		r := Result{
			SongID: song.ID,
			Title:  song.ShortTitle,
			Author: song.Author,
			URL:    song.URL,
			UserID: song.Patron,
		}
		if t, ok := tallies[song.ID]; ok {
			r.Score = t.sum / float64(t.count)
			r.VoteCount = t.count
		}
		rs.Results = append(rs.Results, r)
	}

	if len(rs.Results) == 0 {
		return rs, errors.NoRankedResults("no song has a known patron to rank")
	}

	slices.SortStableFunc(rs.Results, CompareResultScoreDSC)
	rs.WinnerSongID = rs.Results[0].SongID
	rs.WinnerUserID = rs.Results[0].UserID
	return rs, nil
}

// CompareResultScoreDSC orders results by descending score
func CompareResultScoreDSC(a, b Result) int {
	return cmp.Compare(b.Score, a.Score)
}

// SortResults sorts results in place by column ("id", "title", "author",
// "user" or "score") in direction "asc" or "desc". The user column sorts by
// display name. Equal keys keep their relative order.
func SortResults(results []Result, column, direction string, users []models.User) error {
	var sign int
	switch direction {
	case "", "asc":
		sign = 1
	case "desc":
		sign = -1
	default:
		return ErrInvalidSortDirection
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.UID] = strings.ToLower(u.DisplayName)
	}

	var compare func(a, b Result) int
	switch column {
	case "id":
		compare = func(a, b Result) int { return cmp.Compare(a.SongID, b.SongID) }
	case "title":
		compare = func(a, b Result) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	case "author":
		compare = func(a, b Result) int { return strings.Compare(strings.ToLower(a.Author), strings.ToLower(b.Author)) }
	case "user":
		compare = func(a, b Result) int { return strings.Compare(names[a.UserID], names[b.UserID]) }
	case "", "score":
		compare = func(a, b Result) int { return cmp.Compare(a.Score, b.Score) }
	default:
		return ErrInvalidSortColumn
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return sign * compare(a, b)
	})
	return nil
}

// CalculateResults ranks the songs of a constitution and persists the winner
// when it changed. Members may read published results; the owner may also
// read them while the song list is locked.
func (s *ResultsService) CalculateResults(ctx context.Context, caller models.User, id string) (*ResultSet, error) {
	for attempt := 1; ; attempt++ {
		c, err := loadLive(ctx, s.repo, id)
		if err != nil {
			return nil, err
		}
		if !c.IsMember(caller.UID) {
			return nil, errors.Forbidden("only members can see results")
		}
		switch models.StateOf(c) {
		case models.StateOpen:
			return nil, errors.InvalidInput("results are not available while songs are being submitted")
		case models.StateLocked:
			if c.Owner != caller.UID {
				return nil, errors.Forbidden("results are not published yet")
			}
		}

		rs, err := s.RefreshWinner(ctx, c)
		if isVersionConflict(err) && attempt < maxWriteAttempts {
			continue
		}
		return rs, err
	}
}

// RefreshWinner runs the aggregator on c and writes the winner pair when
// either field differs from the cached one. c is updated in place.
func (s *ResultsService) RefreshWinner(ctx context.Context, c *models.Constitution) (*ResultSet, error) {
	ctx, span := s.tracer.Start(ctx, "ResultsService.RefreshWinner",
		trace.WithAttributes(attribute.String("constitution.id", c.ID)))
	defer span.End()

	votes, err := s.repo.ListVotes(ctx, c.ID)
	if err != nil {
		span.RecordError(err)
		return nil, storeError(err, "votes")
	}
	users, err := s.repo.ListUsers(ctx, c.Users)
	if err != nil {
		span.RecordError(err)
		return nil, storeError(err, "users")
	}

	rs, err := ComputeResults(c.Songs, votes, users)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	rs.ConstitutionID = c.ID
	rs.Users = users
	span.SetAttributes(
		attribute.Int("results.ranked", len(rs.Results)),
		attribute.Int("results.excluded", len(rs.Excluded)),
		attribute.Int("results.votes", len(votes)),
	)

	if len(rs.Excluded) > 0 {
		s.log.Warn("Songs excluded from results", "constitution_id", c.ID, "song_ids", rs.Excluded)
	}

	if c.WinnerSongID == rs.WinnerSongID && c.WinnerUserID == rs.WinnerUserID {
		return rs, nil
	}

	update := models.ConstitutionUpdate{
		WinnerSongID: &rs.WinnerSongID,
		WinnerUserID: &rs.WinnerUserID,
	}
	if err := s.repo.UpdateConstitution(ctx, c.ID, c.Version, update); err != nil {
		span.RecordError(err)
		return nil, storeError(err, "constitution")
	}

	s.log.Info("Winner updated", "constitution_id", c.ID, "song_id", rs.WinnerSongID, "user_id", rs.WinnerUserID)
	c.WinnerSongID = rs.WinnerSongID
	c.WinnerUserID = rs.WinnerUserID
	c.Version++
	rs.WinnerUpdated = true
	s.broadcast(c.ID, EventWinnerChanged)
	return rs, nil
}

// loadLive returns a constitution that has not been finished
func loadLive(ctx context.Context, repo repository.ConstitutionRepository, id string) (*models.Constitution, error) {
	c, err := repo.GetConstitution(ctx, id)
	if err != nil {
		return nil, storeError(err, "constitution")
	}
	if c.Finished {
		return nil, errors.NotFound("constitution not found")
	}
	return c, nil
}
