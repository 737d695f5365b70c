package get_available_slots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/infra/storage/memory"
	"github.com/m04kA/SMC-BookingEngine/internal/integrations/sellerservice"
	"github.com/m04kA/SMC-BookingEngine/pkg/logger"
	"github.com/m04kA/SMC-BookingEngine/pkg/ptr"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

const testCatalog = `
[[businesses]]
id = 1
name = "Barbershop"
is_active = true

[businesses.working_hours.sunday]
is_open = true
open_time = "09:00"
close_time = "17:00"

[businesses.working_hours.monday]
is_open = true
open_time = "09:00"
close_time = "17:00"

[businesses.working_hours.friday]
is_open = false
open_time = "09:00"
close_time = "17:00"

[[services]]
id = 10
business_id = 1
name = "Haircut"
duration_minutes = 60
price = 1500.0
is_active = true
`

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

var (
	// воскресенье, 10:15 UTC
	now    = time.Date(2026, time.October, 18, 10, 15, 0, 0, time.UTC)
	today  = types.NewDate(2026, time.October, 18)
	monday = types.NewDate(2026, time.October, 19)
	friday = types.NewDate(2026, time.October, 23)
)

type fixture struct {
	uc       *UseCase
	store    *memory.BookingStore
	settings *memory.SettingsStore
}

func newFixture(t *testing.T, scope domain.ConflictScope) *fixture {
	t.Helper()

	catalog, err := sellerservice.ParseCatalog(testCatalog, time.UTC)
	require.NoError(t, err)

	store := memory.NewBookingStore()
	settings := memory.NewSettingsStore()
	uc := NewUseCase(store, settings, catalog, scope, logger.Nop()).WithTimeProvider(fixedTime{now: now})

	return &fixture{uc: uc, store: store, settings: settings}
}

func (f *fixture) book(t *testing.T, start, end int, status domain.BookingStatus, staffID *int64, scopeKey int64) {
	t.Helper()
	_, err := f.store.Insert(context.Background(), &domain.Booking{
		BusinessID: 1, ServiceID: 10, CustomerID: 1, StaffID: staffID,
		Date: monday, StartMinute: start, EndMinute: end, Status: status,
	}, scopeKey)
	require.NoError(t, err)
}

func starts(resp *Response) []string {
	result := make([]string, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		result = append(result, s.StartTime.String())
	}
	return result
}

func TestExecute_FullDay(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)

	resp, err := f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: monday})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00",
	}, starts(resp))

	last := resp.Slots[len(resp.Slots)-1]
	assert.Equal(t, types.TimeString("17:00"), last.EndTime)
	assert.Equal(t, monday, resp.Date)
}

func TestExecute_ExistingBookingBlocksOverlappingSlots(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	f.book(t, 600, 660, domain.StatusConfirmed, nil, 0)

	resp, err := f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: monday})
	require.NoError(t, err)

	got := starts(resp)
	assert.NotContains(t, got, "09:30")
	assert.NotContains(t, got, "10:00")
	assert.NotContains(t, got, "10:30")
	assert.Contains(t, got, "09:00")
	assert.Contains(t, got, "11:00")
	assert.Len(t, got, 12)
}

func TestExecute_InactiveBookingsDoNotBlock(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	f.book(t, 600, 660, domain.StatusCancelled, nil, 0)
	f.book(t, 660, 720, domain.StatusCompleted, nil, 0)

	resp, err := f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: monday})
	require.NoError(t, err)

	assert.Len(t, resp.Slots, 15)
}

func TestExecute_ClosedDay(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)

	resp, err := f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: friday})
	require.NoError(t, err)

	assert.NotNil(t, resp.Slots)
	assert.Empty(t, resp.Slots)
}

func TestExecute_Idempotent(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	f.book(t, 780, 840, domain.StatusPending, nil, 0)
	req := &Request{BusinessID: 1, ServiceID: 10, Date: monday}

	first, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExecute_Today(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)

	resp, err := f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: today})
	require.NoError(t, err)
	assert.Equal(t, "10:30", starts(resp)[0], "started slots are not offered")

	_, err = f.settings.Upsert(context.Background(), &domain.ScheduleSettings{
		BusinessID: 1, ServiceID: ptr.Ptr(int64(10)), SlotStepMinutes: 15, MinBookingNoticeMinutes: 120,
	})
	require.NoError(t, err)

	resp, err = f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: today})
	require.NoError(t, err)
	assert.Equal(t, "12:15", starts(resp)[0])
	assert.Equal(t, "16:00", starts(resp)[len(resp.Slots)-1])
}

func TestExecute_StaffScope(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeStaff)
	alice := ptr.Ptr(int64(1))
	f.book(t, 600, 660, domain.StatusConfirmed, alice, 1)

	resp, err := f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: monday, StaffID: alice})
	require.NoError(t, err)
	assert.NotContains(t, starts(resp), "10:00")

	resp, err = f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: monday, StaffID: ptr.Ptr(int64(2))})
	require.NoError(t, err)
	assert.Contains(t, starts(resp), "10:00")
}

// Прошедшая дата - ошибка, а не пустой список: клиент отличает "все занято" от "дата в прошлом"
func TestExecute_PastDateIsAnError(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)

	resp, err := f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: today.AddDays(-7)})
	require.ErrorIs(t, err, ErrPastDate)
	assert.Nil(t, resp)

	resp, err = f.uc.Execute(context.Background(), &Request{BusinessID: 1, ServiceID: 10, Date: today})
	require.NoError(t, err)
	assert.NotNil(t, resp.Slots)
}

func TestExecute_Errors(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{BusinessID: 1, ServiceID: 10, Date: today.AddDays(-1)})
	assert.ErrorIs(t, err, domain.ErrPastDate)

	_, err = f.uc.Execute(ctx, &Request{BusinessID: 5, ServiceID: 10, Date: monday})
	assert.ErrorIs(t, err, ErrBusinessNotFound)

	_, err = f.uc.Execute(ctx, &Request{BusinessID: 1, ServiceID: 11, Date: monday})
	assert.ErrorIs(t, err, ErrServiceNotFound)

	_, err = f.uc.Execute(ctx, &Request{BusinessID: 0, ServiceID: 10, Date: monday})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Execute(ctx, &Request{BusinessID: 1, ServiceID: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.settings.Upsert(ctx, &domain.ScheduleSettings{BusinessID: 1, SlotStepMinutes: 30, AdvanceBookingDays: 3})
	require.NoError(t, err)
	_, err = f.uc.Execute(ctx, &Request{BusinessID: 1, ServiceID: 10, Date: today.AddDays(4)})
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)
}
