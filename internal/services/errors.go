package services

import (
	stderrors "errors"

	"github.com/matbactivity/songconstitution/internal/errors"
	"github.com/matbactivity/songconstitution/internal/repository"
)

// Service errors
var (
	ErrInvalidSortColumn    = &ServiceError{Message: "sort column must be one of id, title, author, user, score"}
	ErrInvalidSortDirection = &ServiceError{Message: "sort direction must be asc or desc"}
	ErrInvalidScoreRange    = &ServiceError{Message: "score_min must be lower than score_max"}
	ErrEmptyFixtures        = &ServiceError{Message: "fixture file contains no users or constitutions"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// storeError maps a repository error onto an application error.
// what names the record for NotFound and duplicate messages.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NotFoundf("%s not found", what)
	case stderrors.Is(err, repository.ErrVersionConflict):
		return errors.Wrap(err, errors.ErrConflict, "constitution was modified concurrently, reload and retry")
	case stderrors.Is(err, repository.ErrDuplicate):
		return errors.Wrap(err, errors.ErrConflict, what+" already exists")
	default:
		return errors.Internal(err)
	}
}

// isVersionConflict reports whether a conditional write lost a race and may be retried
func isVersionConflict(err error) bool {
	return stderrors.Is(err, repository.ErrVersionConflict)
}
