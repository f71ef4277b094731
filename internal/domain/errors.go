package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidState    = errors.New("invalid job state")
	ErrProviderFailure = errors.New("provider failure")
	ErrStorageFailure  = errors.New("storage failure")
)
