package services

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// Setting keys
const (
	SettingBaseURL  = "base_url"
	SettingScoreMin = "score_min"
	SettingScoreMax = "score_max"
)

// Default score range used when the settings are missing or unreadable
const (
	DefaultScoreMin = 0.0
	DefaultScoreMax = 10.0
)

// SettingsService handles settings-related business logic
type SettingsService struct {
	log  logger.Logger
	repo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// GetBaseURL returns the application base URL
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, SettingBaseURL)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return "", nil // not configured yet
		}
		return "", err
	}
	return value, nil
}

// SetBaseURL saves the application base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, SettingBaseURL, url)
}

// ScoreRange returns the inclusive range a vote score must fall in
func (s *SettingsService) ScoreRange(ctx context.Context) (min, max float64, err error) {
	min, err = s.floatSetting(ctx, SettingScoreMin, DefaultScoreMin)
	if err != nil {
		return 0, 0, err
	}
	max, err = s.floatSetting(ctx, SettingScoreMax, DefaultScoreMax)
	if err != nil {
		return 0, 0, err
	}
	if min >= max {
		s.log.Warn("Stored score range is invalid, using defaults", "score_min", min, "score_max", max)
		return DefaultScoreMin, DefaultScoreMax, nil
	}
	return min, max, nil
}

// SetScoreRange stores a new score range
func (s *SettingsService) SetScoreRange(ctx context.Context, min, max float64) error {
	if min >= max {
		return ErrInvalidScoreRange
	}
	if err := s.repo.SetSetting(ctx, SettingScoreMin, strconv.FormatFloat(min, 'f', -1, 64)); err != nil {
		return err
	}
	return s.repo.SetSetting(ctx, SettingScoreMax, strconv.FormatFloat(max, 'f', -1, 64))
}

func (s *SettingsService) floatSetting(ctx context.Context, key string, def float64) (float64, error) {
	value, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return def, nil
		}
		return 0, err
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		s.log.Warn("Ignoring unparsable setting", "key", key, "value", value)
		return def, nil
	}
	return f, nil
}

// GetSetting retrieves an arbitrary setting
func (s *SettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	return s.repo.GetSetting(ctx, key)
}

// SetSetting saves an arbitrary setting
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) error {
	return s.repo.SetSetting(ctx, key, value)
}

// AllSettings returns commonly used settings as a map
func (s *SettingsService) AllSettings(ctx context.Context) (map[string]interface{}, error) {
	settings := make(map[string]interface{})

	baseURL, _ := s.GetBaseURL(ctx)
	settings[SettingBaseURL] = baseURL

	min, max, _ := s.ScoreRange(ctx)
	settings[SettingScoreMin] = min
	settings[SettingScoreMax] = max

	return settings, nil
}
