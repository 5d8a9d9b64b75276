package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/internal/repository/mock"
	"github.com/matbactivity/songconstitution/internal/services"
	"github.com/matbactivity/songconstitution/internal/testutil"
)

func TestServiceError(t *testing.T) {
	if services.ErrInvalidSortColumn.Error() == "" {
		t.Error("expected a message")
	}
	var target *services.ServiceError
	if !stderrors.As(services.ErrEmptyFixtures, &target) {
		t.Error("expected ServiceError")
	}
}

func TestRepositoryErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errors.Kind
	}{
		{"not found", repository.ErrNotFound, errors.ErrNotFound},
		{"version conflict", repository.ErrVersionConflict, errors.ErrConflict},
		{"duplicate", repository.ErrDuplicate, errors.ErrConflict},
		{"anything else", stderrors.New("io"), errors.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mock.NewRepository(testutil.NewTestRepository(t))
			mockRepo.GetUserError = tt.err
			svc := services.NewUserService(testLogger(), mockRepo)

			_, err := svc.GetUser(context.Background(), "a")
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}
