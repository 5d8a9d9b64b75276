package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/models"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// UserService resolves display names to users
type UserService struct {
	log  logger.Logger
	repo repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(log logger.Logger, repo repository.UserRepository) *UserService {
	return &UserService{log: log, repo: repo}
}

// LoginInput identifies a user by display name
type LoginInput struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=32"`
}

// Login returns the user with the given display name, creating it on first
// use. Names are matched case-insensitively.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	user, err := s.repo.GetUserByDisplayName(ctx, input.DisplayName)
	if err == nil {
		return user, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "user")
	}

	uid, err := newID()
	if err != nil {
		return nil, errors.Internal(err)
	}
	created := models.User{UID: uid, DisplayName: input.DisplayName}
	err = s.repo.CreateUser(ctx, created)
	if stderrors.Is(err, repository.ErrDuplicate) {
		// created concurrently under the same name
		user, err = s.repo.GetUserByDisplayName(ctx, input.DisplayName)
		if err != nil {
			return nil, storeError(err, "user")
		}
		return user, nil
	}
	if err != nil {
		return nil, storeError(err, "user")
	}

	s.log.Info("User created", "uid", created.UID, "display_name", created.DisplayName)
	return &created, nil
}

// GetUser returns a user by uid
func (s *UserService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, uid)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}
