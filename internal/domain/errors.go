package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrResourceUnavailable  = errors.New("resource unavailable")
	ErrPastTime             = errors.New("slot time is in the past")
	ErrSessionExpired       = errors.New("reservation session expired")
	ErrCodeSpaceExhausted   = errors.New("confirmation code space exhausted")
	ErrInvalidCandidate     = errors.New("invalid slot candidate")
	ErrInvalidID            = errors.New("invalid id")
	ErrResourceNameRequired = errors.New("resource name required")
	ErrTenantNameRequired   = errors.New("tenant name required")
)

// ConflictError reports that the requested slot is already booked. It carries
// the confirmation code of the winning booking so callers can reference it.
type ConflictError struct {
	Code string
}

func (e *ConflictError) Error() string {
	if e.Code == "" {
		return "slot already booked"
	}
	return fmt.Sprintf("slot already booked by %s", e.Code)
}

// IsConflict reports whether err is a slot conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsTerminal reports whether err is a business-rule rejection that retrying
// cannot change. Everything else is treated as a transient infrastructure
// failure by the retry controller.
func IsTerminal(err error) bool {
	if IsConflict(err) {
		return true
	}
	return errors.Is(err, ErrPastTime) ||
		errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrResourceUnavailable) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrCodeSpaceExhausted) ||
		errors.Is(err, ErrInvalidCandidate) ||
		errors.Is(err, ErrInvalidID)
}
