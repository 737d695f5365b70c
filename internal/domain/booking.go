package domain

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no_show"
)

// transitions is the booking lifecycle: every allowed from -> to pair.
// Statuses missing as keys are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// ParseBookingStatus validates a status coming from the API boundary
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	switch status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, s)
	}
}

// IsTerminal returns true if no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// IsOccupying returns true if a booking in this status blocks its interval
func (s BookingStatus) IsOccupying() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether the lifecycle allows s -> next
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking represents a reservation of a service interval with a business
type Booking struct {
	ID          int64
	BusinessID  int64
	ServiceID   int64
	CustomerID  int64
	StaffID     *int64
	Date        types.Date // business-local calendar date
	StartMinute int        // minutes since midnight
	EndMinute   int
	Status      BookingStatus
	TotalPrice  float64 // service price frozen at creation

	// Denormalized data for history
	ServiceName string
	Notes       *string

	CancellationReason *string
	CancelledAt        *time.Time
	CancelledBy        *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the occupied [start, end) interval
func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartMinute, End: b.EndMinute}
}

// IsOccupying returns true if the booking blocks its interval (pending or confirmed)
func (b *Booking) IsOccupying() bool {
	return b.Status.IsOccupying()
}

// IsTerminal returns true if the booking reached a final status
func (b *Booking) IsTerminal() bool {
	return b.Status.IsTerminal()
}

// StartsAt returns the absolute start time in the business location
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	return b.Date.At(b.StartMinute, loc)
}

// StatusChange describes a compare-and-set status update applied by a BookingStore
type StatusChange struct {
	From   BookingStatus
	To     BookingStatus
	At     time.Time
	Actor  int64
	Reason *string // only for cancellations
}

// IsCancellation returns true if the change moves the booking into cancelled
func (c StatusChange) IsCancellation() bool {
	return c.To == StatusCancelled
}

// Apply mutates the booking according to the change
func (c StatusChange) Apply(b *Booking) {
	b.Status = c.To
	b.UpdatedAt = c.At
	if c.IsCancellation() {
		at := c.At
		actor := c.Actor
		b.CancelledAt = &at
		b.CancelledBy = &actor
		b.CancellationReason = c.Reason
	}
}

// BusinessBookingsFilter фильтр для получения бронирований бизнеса
type BusinessBookingsFilter struct {
	BusinessID      int64          // Обязательный параметр
	StartDate       *types.Date    // Начало периода (опционально)
	EndDate         *types.Date    // Конец периода (опционально)
	Status          *BookingStatus // Фильтр по статусу (опционально)
	IncludeInactive bool           // Включать ли завершенные бронирования (отмененные, выполненные, no-show)
}

// IsSingleDay returns true if the filter targets exactly one date
func (f BusinessBookingsFilter) IsSingleDay() bool {
	return f.StartDate != nil && f.EndDate != nil && *f.StartDate == *f.EndDate
}

// Matches applies the filter to a booking in memory
func (f BusinessBookingsFilter) Matches(b *Booking) bool {
	if b.BusinessID != f.BusinessID {
		return false
	}
	if f.StartDate != nil && b.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && b.Date.After(*f.EndDate) {
		return false
	}
	if f.Status != nil {
		return b.Status == *f.Status
	}
	return f.IncludeInactive || b.IsOccupying()
}
