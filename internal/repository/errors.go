package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned when a conditional write finds the
// constitution at a different version than the caller read.
var ErrVersionConflict = errors.New("constitution was modified concurrently")

// ErrDuplicate is returned when a write would violate a uniqueness rule.
var ErrDuplicate = errors.New("record already exists")

// ErrCleanupPending is returned when a constitution was archived but some of
// its live documents could not be removed. The history record exists and the
// constitution is left as a finished tombstone.
var ErrCleanupPending = errors.New("archive cleanup pending")
