package store

import (
	"errors"
)

// Errors returned by Store operations. A rejected operation never mutates the store.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownArea       = errors.New("unknown area")
	ErrMissingName       = errors.New("name is required")
	ErrInvalidStage      = errors.New("stage must be between 1 and 4")
	ErrInvalidRange      = errors.New("end must be after start")
	ErrInvalidDuration   = errors.New("duration must be positive")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// IsValidation reports whether err was caused by rejected input data.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrUnknownArea,
		ErrMissingName,
		ErrInvalidStage,
		ErrInvalidRange,
		ErrInvalidDuration,
		ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
