package create_booking

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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
cancellation_hours = 24

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

[[businesses]]
id = 2
name = "Closed for good"
is_active = false

[[services]]
id = 10
business_id = 1
name = "Haircut"
duration_minutes = 60
price = 1500.0
is_active = true

[[services]]
id = 11
business_id = 1
name = "Retired"
duration_minutes = 30
is_active = false

[[services]]
id = 20
business_id = 2
name = "Other"
duration_minutes = 30
is_active = true
`

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

var (
	// воскресенье, 10:15 UTC
	now      = time.Date(2026, time.October, 18, 10, 15, 0, 0, time.UTC)
	today    = types.NewDate(2026, time.October, 18)
	monday   = types.NewDate(2026, time.October, 19)
	tuesday  = types.NewDate(2026, time.October, 20)
	friday   = types.NewDate(2026, time.October, 23)
	testUser = int64(100)
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
	uc := NewUseCase(store, settings, catalog, memory.NewTxManager(), scope, logger.Nop()).
		WithTimeProvider(fixedTime{now: now})

	return &fixture{uc: uc, store: store, settings: settings}
}

func request(date types.Date, start string) *Request {
	return &Request{
		CustomerID: testUser,
		BusinessID: 1,
		ServiceID:  10,
		Date:       date,
		StartTime:  types.TimeString(start),
	}
}

func TestExecute_CreatesPendingBooking(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)

	req := request(monday, "10:00")
	req.Notes = ptr.Ptr("first visit")

	booking, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.NotZero(t, booking.ID)
	assert.Equal(t, domain.StatusPending, booking.Status)
	assert.Equal(t, 600, booking.StartMinute)
	assert.Equal(t, 660, booking.EndMinute)
	assert.Equal(t, 1500.0, booking.TotalPrice)
	assert.Equal(t, "Haircut", booking.ServiceName)
	assert.Equal(t, "first visit", *booking.Notes)

	stored, err := f.store.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking, stored)
}

func TestExecute_PastDate(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)

	_, err := f.uc.Execute(context.Background(), request(today.AddDays(-1), "10:00"))

	assert.ErrorIs(t, err, ErrPastDate)
	assert.ErrorIs(t, err, domain.ErrPastDate)
}

func TestExecute_PastDateUsesBusinessTimezone(t *testing.T) {
	catalog, err := sellerservice.ParseCatalog(`
[[businesses]]
id = 1
is_active = true
timezone = "Asia/Tokyo"
[businesses.working_hours.monday]
is_open = true
open_time = "09:00"
close_time = "17:00"
[[services]]
id = 10
business_id = 1
duration_minutes = 60
is_active = true
`, time.UTC)
	require.NoError(t, err)

	// В Токио уже понедельник 01:00, воскресенье - вчерашний день
	late := time.Date(2026, time.October, 18, 16, 0, 0, 0, time.UTC)
	uc := NewUseCase(memory.NewBookingStore(), memory.NewSettingsStore(), catalog, memory.NewTxManager(),
		domain.ConflictScopeBusiness, logger.Nop()).WithTimeProvider(fixedTime{now: late})

	_, err = uc.Execute(context.Background(), request(today, "10:00"))
	assert.ErrorIs(t, err, domain.ErrPastDate)

	_, err = uc.Execute(context.Background(), request(monday, "10:00"))
	assert.NoError(t, err)
}

func TestExecute_NotFound(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	ctx := context.Background()

	tests := []struct {
		name       string
		businessID int64
		serviceID  int64
		want       error
	}{
		{"unknown business", 99, 10, ErrBusinessNotFound},
		{"inactive business", 2, 20, ErrBusinessNotFound},
		{"unknown service", 1, 12, ErrServiceNotFound},
		{"inactive service", 1, 11, ErrServiceNotFound},
		{"service of another business", 1, 20, ErrServiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(monday, "10:00")
			req.BusinessID = tt.businessID
			req.ServiceID = tt.serviceID

			_, err := f.uc.Execute(ctx, req)

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestExecute_OutOfHours(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, request(monday, "16:30"))
	assert.ErrorIs(t, err, ErrOutsideWorkingHours)
	assert.ErrorIs(t, err, domain.ErrOutOfHours)

	_, err = f.uc.Execute(ctx, request(monday, "08:30"))
	assert.ErrorIs(t, err, domain.ErrOutOfHours)

	_, err = f.uc.Execute(ctx, request(friday, "10:00"))
	assert.ErrorIs(t, err, ErrBusinessClosed)

	_, err = f.uc.Execute(ctx, request(tuesday, "10:00"))
	assert.ErrorIs(t, err, domain.ErrOutOfHours, "missing weekday is closed")

	_, err = f.uc.Execute(ctx, request(monday, "16:00"))
	assert.NoError(t, err, "last slot ends exactly at closing")
}

func TestExecute_InvalidInput(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	ctx := context.Background()

	bad := []func(r *Request){
		func(r *Request) { r.CustomerID = 0 },
		func(r *Request) { r.BusinessID = -1 },
		func(r *Request) { r.ServiceID = 0 },
		func(r *Request) { r.StaffID = ptr.Ptr(int64(0)) },
		func(r *Request) { r.Date = types.Date{} },
		func(r *Request) { r.StartTime = "" },
		func(r *Request) { r.StartTime = "25:00" },
		func(r *Request) { r.Notes = ptr.Ptr(string(make([]rune, domain.MaxNotesLength+1))) },
	}

	for i, mutate := range bad {
		req := request(monday, "10:00")
		mutate(req)

		_, err := f.uc.Execute(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "case %d", i)
	}
}

func TestExecute_Conflict(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	ctx := context.Background()

	first, err := f.uc.Execute(ctx, request(monday, "10:00"))
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, request(monday, "10:30"))
	require.ErrorIs(t, err, ErrSlotNotAvailable)
	require.ErrorIs(t, err, domain.ErrConflict)

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.Blocking.ID)

	_, err = f.uc.Execute(ctx, request(monday, "11:00"))
	assert.NoError(t, err, "adjacent booking")

	_, err = f.uc.Execute(ctx, request(monday, "09:00"))
	assert.NoError(t, err, "adjacent booking before")
}

func TestExecute_CancelledBookingFreesSlot(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	ctx := context.Background()

	first, err := f.uc.Execute(ctx, request(monday, "10:00"))
	require.NoError(t, err)

	_, err = f.store.UpdateStatus(ctx, first.ID, domain.StatusChange{
		From: domain.StatusPending, To: domain.StatusCancelled, At: now, Actor: testUser,
	})
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, request(monday, "10:00"))
	assert.NoError(t, err)
}

func TestExecute_StaffScope(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeStaff)
	ctx := context.Background()

	alice := request(monday, "10:00")
	alice.StaffID = ptr.Ptr(int64(1))
	_, err := f.uc.Execute(ctx, alice)
	require.NoError(t, err)

	bob := request(monday, "10:00")
	bob.StaffID = ptr.Ptr(int64(2))
	_, err = f.uc.Execute(ctx, bob)
	assert.NoError(t, err, "different staff members work in parallel")

	aliceAgain := request(monday, "10:30")
	aliceAgain.StaffID = ptr.Ptr(int64(1))
	_, err = f.uc.Execute(ctx, aliceAgain)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.uc.Execute(ctx, request(monday, "10:00"))
	assert.NoError(t, err, "unassigned bookings form their own pool")
}

func TestExecute_Policy(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)
	ctx := context.Background()

	_, err := f.settings.Upsert(ctx, &domain.ScheduleSettings{
		BusinessID:              1,
		SlotStepMinutes:         30,
		AdvanceBookingDays:      7,
		MinBookingNoticeMinutes: 60,
	})
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, request(today.AddDays(8), "10:00"))
	assert.ErrorIs(t, err, ErrDateTooFarInFuture)
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)

	_, err = f.uc.Execute(ctx, request(today, "11:00"))
	assert.ErrorIs(t, err, ErrTooLateToBook)
	assert.ErrorIs(t, err, domain.ErrPolicyViolation)

	_, err = f.uc.Execute(ctx, request(today, "11:30"))
	assert.NoError(t, err)
}

func TestExecute_SameDayStartAlreadyPassed(t *testing.T) {
	f := newFixture(t, domain.ConflictScopeBusiness)

	_, err := f.uc.Execute(context.Background(), request(today, "10:00"))

	assert.ErrorIs(t, err, domain.ErrPolicyViolation)
}

func TestExecute_ConcurrentRequestsForSameSlot(t *testing.T) {
	const workers = 16

	f := newFixture(t, domain.ConflictScopeBusiness)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, workers)
		ctx   = context.Background()
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			req := request(monday, "14:00")
			req.CustomerID = int64(1000 + i)
			_, errs[i] = f.uc.Execute(ctx, req)
		}(i)
	}

	close(start)
	wg.Wait()

	okCount, conflictCount := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case assert.ErrorIs(t, err, domain.ErrConflict):
			conflictCount++
		}
	}

	assert.Equal(t, 1, okCount)
	assert.Equal(t, workers-1, conflictCount)

	persisted, err := f.store.FindByBusinessAndDate(ctx, 1, monday)
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

type bookingRepoMock struct {
	mock.Mock
}

func (m *bookingRepoMock) LockDay(ctx context.Context, businessID int64, date types.Date, scopeKey int64) error {
	return m.Called(ctx, businessID, date, scopeKey).Error(0)
}

func (m *bookingRepoMock) FindByBusinessAndDate(ctx context.Context, businessID int64, date types.Date) ([]*domain.Booking, error) {
	args := m.Called(ctx, businessID, date)
	bookings, _ := args.Get(0).([]*domain.Booking)
	return bookings, args.Error(1)
}

func (m *bookingRepoMock) Insert(ctx context.Context, booking *domain.Booking, scopeKey int64) (*domain.Booking, error) {
	args := m.Called(ctx, booking, scopeKey)
	created, _ := args.Get(0).(*domain.Booking)
	return created, args.Error(1)
}

func TestExecute_StorageRejectsOverlap(t *testing.T) {
	catalog, err := sellerservice.ParseCatalog(testCatalog, time.UTC)
	require.NoError(t, err)

	repo := &bookingRepoMock{}
	repo.On("LockDay", mock.Anything, int64(1), monday, int64(0)).Return(nil)
	repo.On("FindByBusinessAndDate", mock.Anything, int64(1), monday).Return([]*domain.Booking{}, nil)
	repo.On("Insert", mock.Anything, mock.AnythingOfType("*domain.Booking"), int64(0)).Return(nil, &domain.ConflictError{})

	uc := NewUseCase(repo, memory.NewSettingsStore(), catalog, memory.NewTxManager(),
		domain.ConflictScopeBusiness, logger.Nop()).WithTimeProvider(fixedTime{now: now})

	_, err = uc.Execute(context.Background(), request(monday, "10:00"))

	assert.ErrorIs(t, err, ErrSlotNotAvailable)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
	repo.AssertExpectations(t)
}

func TestExecute_StorageFailure(t *testing.T) {
	catalog, err := sellerservice.ParseCatalog(testCatalog, time.UTC)
	require.NoError(t, err)

	repo := &bookingRepoMock{}
	repo.On("LockDay", mock.Anything, int64(1), monday, int64(0)).Return(memory.ErrNoTransaction)

	uc := NewUseCase(repo, memory.NewSettingsStore(), catalog, memory.NewTxManager(),
		domain.ConflictScopeBusiness, logger.Nop()).WithTimeProvider(fixedTime{now: now})

	_, err = uc.Execute(context.Background(), request(monday, "10:00"))

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, domain.ErrStorage)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}
