package app

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a required field is missing or malformed.
	ErrValidation = errors.New("invalid request")
	// ErrStoreUnavailable indicates the backing store is unreachable; the
	// service keeps running in degraded mode and surfaces this per request.
	ErrStoreUnavailable = errors.New("database connection not available")
	// ErrObjectStoreUnavailable indicates object storage is not configured
	// or unreachable, so file URLs cannot be issued.
	ErrObjectStoreUnavailable = errors.New("object storage not available")
)

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
