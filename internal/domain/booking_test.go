package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

var allStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func TestBookingStatus_Transitions(t *testing.T) {
	allowed := map[[2]BookingStatus]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusPending, StatusNoShow}:      true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusConfirmed, StatusNoShow}:    true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[[2]BookingStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestBookingStatus_TerminalAndOccupying(t *testing.T) {
	for _, s := range []BookingStatus{StatusCompleted, StatusCancelled, StatusNoShow} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsOccupying(), s)
		for _, to := range allStatuses {
			assert.False(t, s.CanTransitionTo(to), "%s -> %s", s, to)
		}
	}
	for _, s := range []BookingStatus{StatusPending, StatusConfirmed} {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.IsOccupying(), s)
	}
}

func TestParseBookingStatus(t *testing.T) {
	s, err := ParseBookingStatus("no_show")
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, s)

	_, err = ParseBookingStatus("cancelled_by_user")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStatusChange_ApplyCancellation(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	reason := "plans changed"
	b := &Booking{Status: StatusConfirmed}

	StatusChange{From: StatusConfirmed, To: StatusCancelled, At: at, Actor: 7, Reason: &reason}.Apply(b)

	assert.Equal(t, StatusCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)
	assert.Equal(t, at, *b.CancelledAt)
	assert.Equal(t, int64(7), *b.CancelledBy)
	assert.Equal(t, "plans changed", *b.CancellationReason)
}

func TestStatusChange_ApplyConfirmationKeepsCancellationEmpty(t *testing.T) {
	b := &Booking{Status: StatusPending}
	StatusChange{From: StatusPending, To: StatusConfirmed, At: time.Now(), Actor: 1}.Apply(b)

	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Nil(t, b.CancelledAt)
	assert.Nil(t, b.CancelledBy)
}

func TestBusinessBookingsFilter_Matches(t *testing.T) {
	day := types.NewDate(2026, time.October, 20)
	next := day.AddDays(1)

	active := &Booking{BusinessID: 1, Date: day, Status: StatusPending}
	cancelled := &Booking{BusinessID: 1, Date: day, Status: StatusCancelled}
	other := &Booking{BusinessID: 2, Date: day, Status: StatusPending}
	tomorrow := &Booking{BusinessID: 1, Date: next, Status: StatusConfirmed}

	f := BusinessBookingsFilter{BusinessID: 1, StartDate: &day, EndDate: &day}
	assert.True(t, f.IsSingleDay())
	assert.True(t, f.Matches(active))
	assert.False(t, f.Matches(cancelled))
	assert.False(t, f.Matches(other))
	assert.False(t, f.Matches(tomorrow))

	f.IncludeInactive = true
	assert.True(t, f.Matches(cancelled))

	status := StatusCancelled
	f = BusinessBookingsFilter{BusinessID: 1, Status: &status}
	assert.True(t, f.Matches(cancelled))
	assert.False(t, f.Matches(active))
}

func TestConflictScope_Key(t *testing.T) {
	staff := int64(42)

	assert.Equal(t, int64(0), ConflictScopeBusiness.Key(&staff))
	assert.Equal(t, int64(42), ConflictScopeStaff.Key(&staff))
	assert.Equal(t, int64(0), ConflictScopeStaff.Key(nil))

	scope, err := ParseConflictScope("")
	require.NoError(t, err)
	assert.Equal(t, ConflictScopeBusiness, scope)

	_, err = ParseConflictScope("room")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConflictError(t *testing.T) {
	err := fmt.Errorf("create: %w", &ConflictError{Blocking: &Booking{ID: 9, StartMinute: 600, EndMinute: 660}})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, ErrConflict, Kind(err))

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(9), conflict.Blocking.ID)
	assert.Contains(t, err.Error(), "id=9")

	assert.Equal(t, ErrConflict.Error(), (&ConflictError{}).Error())
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrNotFound, Kind(ErrBookingNotFound))
	assert.Equal(t, ErrInvalidState, Kind(ErrStatusChanged))
	assert.Nil(t, Kind(errors.New("plain")))
}
