package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/infra/storage/memory"
	"github.com/m04kA/SMC-BookingEngine/internal/integrations/sellerservice"
	"github.com/m04kA/SMC-BookingEngine/internal/service/bookings/models"
	"github.com/m04kA/SMC-BookingEngine/pkg/logger"
	"github.com/m04kA/SMC-BookingEngine/pkg/ptr"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

const testCatalog = `
[[businesses]]
id = 1
name = "Barbershop"
is_active = true
cancellation_hours = 24

[businesses.working_hours.monday]
is_open = true
open_time = "06:00"
close_time = "18:00"
`

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

var (
	// воскресенье, 10:15 UTC
	now     = time.Date(2026, time.October, 18, 10, 15, 0, 0, time.UTC)
	monday  = types.NewDate(2026, time.October, 19)
	tuesday = types.NewDate(2026, time.October, 20)
	owner   = int64(7)
)

type fixture struct {
	svc   *Service
	store *memory.BookingStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog, err := sellerservice.ParseCatalog(testCatalog, time.UTC)
	require.NoError(t, err)

	store := memory.NewBookingStore()
	svc := NewService(store, catalog, memory.NewTxManager(), logger.Nop()).
		WithTimeProvider(fixedTime{now: now})

	return &fixture{svc: svc, store: store}
}

func (f *fixture) seed(t *testing.T, date types.Date, start int, status domain.BookingStatus) *domain.Booking {
	t.Helper()

	b, err := f.store.Insert(context.Background(), &domain.Booking{
		BusinessID:  1,
		ServiceID:   10,
		CustomerID:  100,
		Date:        date,
		StartMinute: start,
		EndMinute:   start + 60,
		Status:      status,
		TotalPrice:  1500,
		ServiceName: "Haircut",
	}, 0)
	require.NoError(t, err)
	return b
}

func TestCancel_Success(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, tuesday, 10*60, domain.StatusConfirmed)

	resp, err := f.svc.Cancel(context.Background(), b.ID, &models.CancelBookingRequest{
		RequestedBy:        owner,
		CancellationReason: ptr.Ptr("changed plans"),
	})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusCancelled), resp.Status)
	assert.Equal(t, "changed plans", *resp.CancellationReason)
	require.NotNil(t, resp.CancelledBy)
	assert.Equal(t, owner, *resp.CancelledBy)
	assert.NotNil(t, resp.CancelledAt)

	stored, err := f.store.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.True(t, stored.CancelledAt.Equal(now))
}

func TestCancel_WindowClosed(t *testing.T) {
	f := newFixture(t)
	// понедельник 06:15 - через 20 часов, окно отмены 24 часа
	b := f.seed(t, monday, 6*60+15, domain.StatusConfirmed)

	_, err := f.svc.Cancel(context.Background(), b.ID, &models.CancelBookingRequest{RequestedBy: owner})

	assert.ErrorIs(t, err, ErrCancellationWindowClosed)
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)

	stored, err := f.store.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
}

func TestCancel_ExactlyAtWindowBoundary(t *testing.T) {
	f := newFixture(t)
	// ровно 24 часа до начала
	b := f.seed(t, monday, 10*60+15, domain.StatusPending)

	_, err := f.svc.Cancel(context.Background(), b.ID, &models.CancelBookingRequest{RequestedBy: owner})
	assert.NoError(t, err)
}

func TestCancel_TerminalStates(t *testing.T) {
	for _, status := range domain.InactiveStatuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			b := f.seed(t, tuesday, 10*60, status)

			_, err := f.svc.Cancel(context.Background(), b.ID, &models.CancelBookingRequest{RequestedBy: owner})

			assert.ErrorIs(t, err, ErrAlreadyFinalized)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}
}

func TestCancel_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), 404, &models.CancelBookingRequest{RequestedBy: owner})
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := f.seed(t, tuesday, 10*60, domain.StatusPending)
	long := string(make([]rune, domain.MaxCancellationReasonLength+1))
	_, err = f.svc.Cancel(context.Background(), b.ID, &models.CancelBookingRequest{
		RequestedBy:        owner,
		CancellationReason: &long,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancel_UnknownBusiness(t *testing.T) {
	f := newFixture(t)
	b, err := f.store.Insert(context.Background(), &domain.Booking{
		BusinessID: 42, ServiceID: 1, CustomerID: 100,
		Date: tuesday, StartMinute: 600, EndMinute: 660, Status: domain.StatusPending,
	}, 0)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), b.ID, &models.CancelBookingRequest{RequestedBy: owner})
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.BookingStatus
		to      string
		wantErr error
	}{
		{"pending to confirmed", domain.StatusPending, "confirmed", nil},
		{"pending to no_show", domain.StatusPending, "no_show", nil},
		{"confirmed to completed", domain.StatusConfirmed, "completed", nil},
		{"confirmed to cancelled", domain.StatusConfirmed, "cancelled", nil},
		{"pending to completed", domain.StatusPending, "completed", domain.ErrInvalidTransition},
		{"confirmed to pending", domain.StatusConfirmed, "pending", domain.ErrInvalidTransition},
		{"completed to cancelled", domain.StatusCompleted, "cancelled", domain.ErrInvalidTransition},
		{"cancelled to confirmed", domain.StatusCancelled, "confirmed", domain.ErrInvalidTransition},
		{"no_show to completed", domain.StatusNoShow, "completed", domain.ErrInvalidTransition},
		{"unknown status", domain.StatusPending, "archived", domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			b := f.seed(t, tuesday, 10*60, tt.from)

			resp, err := f.svc.UpdateStatus(context.Background(), b.ID, &models.UpdateStatusRequest{
				RequestedBy: owner,
				Status:      tt.to,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, resp.Status)
		})
	}
}

func TestUpdateStatus_CancelRespectsWindow(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, monday, 6*60+15, domain.StatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), b.ID, &models.UpdateStatusRequest{
		RequestedBy: owner,
		Status:      "cancelled",
	})
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)

	// подтверждение внутри окна отмены разрешено
	resp, err := f.svc.UpdateStatus(context.Background(), b.ID, &models.UpdateStatusRequest{
		RequestedBy: owner,
		Status:      "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)
	assert.Nil(t, resp.CancelledAt)
}

func TestUpdateStatus_CancelledFreesSlot(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, tuesday, 10*60, domain.StatusPending)

	_, err := f.svc.Cancel(context.Background(), b.ID, &models.CancelBookingRequest{RequestedBy: owner})
	require.NoError(t, err)

	// тот же интервал снова свободен
	f.seed(t, tuesday, 10*60, domain.StatusPending)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	b := f.seed(t, tuesday, 10*60, domain.StatusPending)

	resp, err := f.svc.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, resp.ID)
	assert.Equal(t, "2026-10-20", resp.BookingDate)
	assert.Equal(t, "10:00", resp.StartTime)
	assert.Equal(t, "11:00", resp.EndTime)
	assert.Equal(t, 60, resp.DurationMinutes)

	_, err = f.svc.GetByID(context.Background(), b.ID+1)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetCustomerBookings(t *testing.T) {
	f := newFixture(t)
	f.seed(t, monday, 12*60, domain.StatusPending)
	f.seed(t, tuesday, 10*60, domain.StatusCancelled)

	resp, err := f.svc.GetCustomerBookings(context.Background(), &models.GetCustomerBookingsRequest{CustomerID: 100})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 2)
	assert.Equal(t, "2026-10-20", resp.Bookings[0].BookingDate)

	resp, err = f.svc.GetCustomerBookings(context.Background(), &models.GetCustomerBookingsRequest{
		CustomerID: 100,
		Status:     ptr.Ptr("pending"),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Bookings, 1)

	_, err = f.svc.GetCustomerBookings(context.Background(), &models.GetCustomerBookingsRequest{
		CustomerID: 100,
		Status:     ptr.Ptr("bogus"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetBusinessBookings(t *testing.T) {
	f := newFixture(t)
	f.seed(t, monday, 12*60, domain.StatusConfirmed)
	f.seed(t, monday, 8*60, domain.StatusPending)
	f.seed(t, monday, 14*60, domain.StatusCancelled)
	f.seed(t, tuesday, 10*60, domain.StatusPending)

	resp, err := f.svc.GetBusinessBookings(context.Background(), &models.GetBusinessBookingsRequest{
		BusinessID: 1,
		StartDate:  &monday,
		EndDate:    &monday,
	})
	require.NoError(t, err)
	require.Len(t, resp.Bookings, 2)
	assert.Equal(t, "08:00", resp.Bookings[0].StartTime)
	assert.Equal(t, "12:00", resp.Bookings[1].StartTime)

	resp, err = f.svc.GetBusinessBookings(context.Background(), &models.GetBusinessBookingsRequest{
		BusinessID:      1,
		IncludeInactive: true,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Bookings, 4)

	_, err = f.svc.GetBusinessBookings(context.Background(), &models.GetBusinessBookingsRequest{
		BusinessID: 1,
		StartDate:  &tuesday,
		EndDate:    &monday,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
