package services

import (
	"context"

	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// HistoryService reads archived constitutions
type HistoryService struct {
	log  logger.Logger
	repo repository.HistoryRepository
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(log logger.Logger, repo repository.HistoryRepository) *HistoryService {
	return &HistoryService{log: log, repo: repo}
}

// ListHistory returns every archived constitution, newest first
func (s *HistoryService) ListHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	records, err := s.repo.ListHistory(ctx)
	if err != nil {
		return nil, storeError(err, "history")
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	return records, nil
}

// GetHistory returns one archived constitution
func (s *HistoryService) GetHistory(ctx context.Context, id string) (*models.HistoryRecord, error) {
	record, err := s.repo.GetHistory(ctx, id)
	if err != nil {
		return nil, storeError(err, "history record")
	}
	return record, nil
}
