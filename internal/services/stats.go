package services

import (
	"context"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
)

// UserMeanVotes is the mean score of every vote cast by uid.
// ok is false when uid cast no vote.
func UserMeanVotes(votes []models.Vote, uid string) (mean float64, ok bool) {
	return meanOf(votes, func(v models.Vote) bool { return v.UserID == uid })
}

// UserMeanSongs is the mean score received by the songs of uid
func UserMeanSongs(votes []models.Vote, songs []models.Song, uid string) (mean float64, ok bool) {
	owned := patronSongs(songs, uid)
	return meanOf(votes, func(v models.Vote) bool { return owned[v.SongID] })
}

// UserMeanUser is the mean score from gives to the songs of to
func UserMeanUser(votes []models.Vote, songs []models.Song, from, to string) (mean float64, ok bool) {
	owned := patronSongs(songs, to)
	return meanOf(votes, func(v models.Vote) bool { return v.UserID == from && owned[v.SongID] })
}

func patronSongs(songs []models.Song, uid string) map[int]bool {
	owned := make(map[int]bool)
	for _, s := range songs {
		if s.Patron == uid {
			owned[s.ID] = true
		}
	}
	return owned
}

func meanOf(votes []models.Vote, keep func(models.Vote) bool) (float64, bool) {
	var sum float64
	var n int
	for _, v := range votes {
		if keep(v) {
			sum += v.Score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// UserStats are the averages of one member. Nil means no vote to average.
type UserStats struct {
	UserID       string              `json:"user_id"`
	DisplayName  string              `json:"display_name"`
	MeanGiven    *float64            `json:"mean_given"`
	MeanReceived *float64            `json:"mean_received"`
	GivenTo      map[string]*float64 `json:"given_to"`
}

// StatsService computes per-member averages
type StatsService struct {
	log  logger.Logger
	repo ResultsServiceRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(log logger.Logger, repo ResultsServiceRepository) *StatsService {
	return &StatsService{log: log, repo: repo}
}

// GetStats returns the averages of every member once results are published
func (s *StatsService) GetStats(ctx context.Context, caller models.User, id string) ([]UserStats, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(caller.UID) {
		return nil, errors.Forbidden("only members can see statistics")
	}
	if !c.IsShowingResult {
		return nil, errors.InvalidInput("statistics are available once results are published")
	}

	votes, err := s.repo.ListVotes(ctx, id)
	if err != nil {
		return nil, storeError(err, "votes")
	}
	users, err := s.repo.ListUsers(ctx, c.Users)
	if err != nil {
		return nil, storeError(err, "users")
	}

	stats := make([]UserStats, 0, len(users))
	for _, u := range users {
		st := UserStats{
			UserID:      u.UID,
			DisplayName: u.DisplayName,
			GivenTo:     make(map[string]*float64, len(users)-1),
		}
		st.MeanGiven = optional(UserMeanVotes(votes, u.UID))
		st.MeanReceived = optional(UserMeanSongs(votes, c.Songs, u.UID))
		for _, other := range users {
			if other.UID != u.UID {
				st.GivenTo[other.UID] = optional(UserMeanUser(votes, c.Songs, u.UID, other.UID))
			}
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
