package domain

import (
	"errors"
	"fmt"
)

// Error kinds of the booking engine. Package-level sentinels wrap one of these,
// so callers can classify any error with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfHours        = errors.New("outside working hours")
	ErrPastDate          = errors.New("date is in the past")
	ErrConflict          = errors.New("time slot conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("invalid booking state")
	ErrPolicyViolation   = errors.New("booking policy violation")
	ErrStorage           = errors.New("storage error")
	ErrInvalidInput      = errors.New("invalid input")
)

// Errors shared by every store implementation
var (
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrStatusChanged   = fmt.Errorf("%w: booking status changed concurrently", ErrInvalidState)

	// ErrSettingsNotFound: nothing configured on any level, callers fall back to defaults
	ErrSettingsNotFound = fmt.Errorf("schedule settings %w", ErrNotFound)
)

// ConflictError reports an overlap with an occupying booking.
// Blocking may be nil when the storage constraint rejected the insert
// and the blocking row is unknown.
type ConflictError struct {
	Blocking *Booking
}

func (e *ConflictError) Error() string {
	if e.Blocking == nil {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s: overlaps booking id=%d [%d, %d)",
		ErrConflict.Error(), e.Blocking.ID, e.Blocking.StartMinute, e.Blocking.EndMinute)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Kind returns the taxonomy kind of err, or nil for unclassified errors
func Kind(err error) error {
	for _, kind := range []error{
		ErrNotFound, ErrOutOfHours, ErrPastDate, ErrConflict,
		ErrInvalidTransition, ErrInvalidState, ErrPolicyViolation,
		ErrStorage, ErrInvalidInput,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
