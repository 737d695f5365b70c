// Package memory хранилище бронирований и настроек в памяти процесса.
// Используется при storage.driver = "memory" и в тестах.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/scheduling"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

type storedBooking struct {
	booking  domain.Booking
	scopeKey int64
}

// BookingStore in-memory хранилище бронирований
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[int64]*storedBooking
	nextID   int64
	locks    *keyedMutex
	now      func() time.Time
}

// NewBookingStore создает пустое хранилище бронирований
func NewBookingStore() *BookingStore {
	return &BookingStore{
		bookings: make(map[int64]*storedBooking),
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// LockDay блокирует (бизнес, дата, ключ области) до конца транзакции TxManager.
// Ожидание прерывается отменой ctx.
func (s *BookingStore) LockDay(ctx context.Context, businessID int64, date types.Date, scopeKey int64) error {
	state, ok := stateFrom(ctx)
	if !ok {
		return ErrNoTransaction
	}

	key := dayKey{businessID: businessID, date: date, scopeKey: scopeKey}
	if state.holds(key) {
		return nil
	}

	if err := s.locks.Lock(ctx, key); err != nil {
		return fmt.Errorf("%w: memory: wait for day lock: %w", domain.ErrStorage, err)
	}
	state.hold(key, func() { s.locks.Unlock(key) })

	return nil
}

// FindByBusinessAndDate возвращает все бронирования бизнеса на дату, отсортированные по времени начала
func (s *BookingStore) FindByBusinessAndDate(_ context.Context, businessID int64, date types.Date) ([]*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Booking, 0)
	for _, stored := range s.bookings {
		if stored.booking.BusinessID == businessID && stored.booking.Date == date {
			result = append(result, clone(&stored.booking))
		}
	}

	slices.SortFunc(result, byStartAsc)
	return result, nil
}

// Insert сохраняет новое бронирование.
// Пересечение с занимающим бронированием той же области отклоняется *domain.ConflictError.
func (s *BookingStore) Insert(_ context.Context, booking *domain.Booking, scopeKey int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.IsOccupying() {
		for _, stored := range s.bookings {
			existing := &stored.booking
			if existing.BusinessID != booking.BusinessID || existing.Date != booking.Date {
				continue
			}
			if stored.scopeKey != scopeKey || !existing.IsOccupying() {
				continue
			}
			if scheduling.Overlaps(booking.Interval(), existing.Interval()) {
				return nil, &domain.ConflictError{Blocking: clone(existing)}
			}
		}
	}

	s.nextID++
	now := s.now()

	created := clone(booking)
	created.ID = s.nextID
	created.CreatedAt = now
	created.UpdatedAt = now

	s.bookings[created.ID] = &storedBooking{booking: *created, scopeKey: scopeKey}

	return clone(created), nil
}

// GetByID получает бронирование по ID
func (s *BookingStore) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return clone(&stored.booking), nil
}

// GetByCustomerID получает бронирования клиента (сначала новые), опционально по статусу
func (s *BookingStore) GetByCustomerID(_ context.Context, customerID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Booking, 0)
	for _, stored := range s.bookings {
		b := &stored.booking
		if b.CustomerID != customerID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		result = append(result, clone(b))
	}

	slices.SortFunc(result, byStartDesc)
	return result, nil
}

// GetByBusinessWithFilter получает бронирования бизнеса по фильтру.
// Для одного дня сортировка по времени начала, иначе сначала новые.
func (s *BookingStore) GetByBusinessWithFilter(_ context.Context, filter domain.BusinessBookingsFilter) ([]*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Booking, 0)
	for _, stored := range s.bookings {
		if filter.Matches(&stored.booking) {
			result = append(result, clone(&stored.booking))
		}
	}

	if filter.IsSingleDay() {
		slices.SortFunc(result, byStartAsc)
	} else {
		slices.SortFunc(result, byStartDesc)
	}
	return result, nil
}

// UpdateStatus применяет изменение статуса, только если текущий статус равен change.From
func (s *BookingStore) UpdateStatus(_ context.Context, id int64, change domain.StatusChange) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if stored.booking.Status != change.From {
		return nil, domain.ErrStatusChanged
	}

	change.Apply(&stored.booking)

	return clone(&stored.booking), nil
}

func clone(b *domain.Booking) *domain.Booking {
	c := *b
	if b.StaffID != nil {
		v := *b.StaffID
		c.StaffID = &v
	}
	if b.Notes != nil {
		v := *b.Notes
		c.Notes = &v
	}
	if b.CancellationReason != nil {
		v := *b.CancellationReason
		c.CancellationReason = &v
	}
	if b.CancelledAt != nil {
		v := *b.CancelledAt
		c.CancelledAt = &v
	}
	if b.CancelledBy != nil {
		v := *b.CancelledBy
		c.CancelledBy = &v
	}
	return &c
}

func byStartAsc(a, b *domain.Booking) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if a.StartMinute != b.StartMinute {
		return a.StartMinute - b.StartMinute
	}
	return int(a.ID - b.ID)
}

func byStartDesc(a, b *domain.Booking) int {
	return byStartAsc(b, a)
}
