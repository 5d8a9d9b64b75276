package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// InviteService renders join links of constitutions as QR codes
type InviteService struct {
	log      logger.Logger
	repo     repository.ConstitutionRepository
	settings SettingsServicer
}

// NewInviteService creates a new InviteService
func NewInviteService(log logger.Logger, repo repository.ConstitutionRepository, settings SettingsServicer) *InviteService {
	return &InviteService{log: log, repo: repo, settings: settings}
}

// JoinURL returns the link members open to join a constitution
func (s *InviteService) JoinURL(ctx context.Context, id string) (string, error) {
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return "", errors.Internal(err)
	}
	if baseURL == "" {
		return "", errors.Internalf("base_url not configured")
	}
	return fmt.Sprintf("%s/join/%s", strings.TrimSuffix(baseURL, "/"), id), nil
}

// InviteQRCode returns a PNG QR code of the join link. Only members of an
// open constitution can invite.
func (s *InviteService) InviteQRCode(ctx context.Context, caller models.User, id string) ([]byte, error) {
	c, err := loadLive(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !c.IsMember(caller.UID) {
		return nil, errors.Forbidden("only members can invite")
	}
	if models.StateOf(c) != models.StateOpen {
		return nil, errors.InvalidTransitionf("cannot invite to a constitution that is %s", models.StateOf(c))
	}

	joinURL, err := s.JoinURL(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}
