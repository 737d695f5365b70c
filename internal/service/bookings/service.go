package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/scheduling"
	"github.com/m04kA/SMC-BookingEngine/internal/service/bookings/models"
)

// Service сервис жизненного цикла бронирований: отмена, смена статуса, чтение
type Service struct {
	bookingRepo  BookingRepository
	catalog      Catalog
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	catalog Catalog,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo:  bookingRepo,
		catalog:      catalog,
		txManager:    txManager,
		timeProvider: realTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник времени (для тестов)
func (s *Service) WithTimeProvider(tp TimeProvider) *Service {
	s.timeProvider = tp
	return s
}

// GetByID получает бронирование по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d", id)

	booking, err := s.getBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	return models.FromDomainBooking(booking), nil
}

// GetCustomerBookings получает историю бронирований клиента.
// Опционально фильтрует по статусу.
func (s *Service) GetCustomerBookings(ctx context.Context, req *models.GetCustomerBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetCustomerBookings: fetching bookings for customer=%d, status=%v", req.CustomerID, req.Status)

	var status *domain.BookingStatus
	if req.Status != nil {
		parsed, err := domain.ParseBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetCustomerBookings: invalid status=%s for customer=%d", *req.Status, req.CustomerID)
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		status = &parsed
	}

	bookings, err := s.bookingRepo.GetByCustomerID(ctx, req.CustomerID, status)
	if err != nil {
		s.logger.Error("GetCustomerBookings: repository error for customer=%d: %v", req.CustomerID, err)
		return nil, fmt.Errorf("%w: GetCustomerBookings - repository error: %w", ErrInternal, err)
	}

	s.logger.Info("GetCustomerBookings: fetched %d bookings for customer=%d", len(bookings), req.CustomerID)
	return models.FromDomainBookingList(bookings), nil
}

// GetBusinessBookings получает бронирования бизнеса с фильтрацией.
//
// Примеры использования:
// - Все активные бронирования: GetBusinessBookings(ctx, &GetBusinessBookingsRequest{BusinessID: 123})
// - Бронирования на дату: StartDate и EndDate указывают на одну дату
// - Только подтвержденные: Status = "confirmed"
// - Включая отменённые: IncludeInactive = true
func (s *Service) GetBusinessBookings(ctx context.Context, req *models.GetBusinessBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetBusinessBookings: fetching bookings for business=%d, start=%v, end=%v, status=%v, includeInactive=%t",
		req.BusinessID, req.StartDate, req.EndDate, req.Status, req.IncludeInactive)

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetBusinessBookings: invalid filter for business=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: endDate is before startDate", ErrInvalidInput)
	}

	bookings, err := s.bookingRepo.GetByBusinessWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetBusinessBookings: repository error for business=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: GetBusinessBookings - repository error: %w", ErrInternal, err)
	}

	s.logger.Info("GetBusinessBookings: fetched %d bookings for business=%d", len(bookings), req.BusinessID)
	return models.FromDomainBookingList(bookings), nil
}

// Cancel отменяет бронирование.
// Завершенное бронирование отменить нельзя (InvalidState), а отмена
// позже чем за cancellationHours до начала запрещена (PolicyViolation).
func (s *Service) Cancel(ctx context.Context, bookingID int64, req *models.CancelBookingRequest) (*models.BookingResponse, error) {
	s.logger.Info("Cancel: cancelling booking id=%d by user=%d", bookingID, req.RequestedBy)

	if err := validateReason(req.CancellationReason); err != nil {
		return nil, err
	}

	var result *domain.Booking

	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		booking, err := s.getBooking(txCtx, bookingID)
		if err != nil {
			return err
		}

		if booking.IsTerminal() {
			s.logger.Warn("Cancel: booking id=%d is already %s", bookingID, booking.Status)
			return fmt.Errorf("%w: status %s", ErrAlreadyFinalized, booking.Status)
		}

		updated, err := s.applyChange(txCtx, booking, domain.StatusCancelled, req.RequestedBy, req.CancellationReason)
		if err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cancel: successfully cancelled booking id=%d", bookingID)
	return models.FromDomainBooking(result), nil
}

// UpdateStatus переводит бронирование в новый статус по таблице переходов.
// Переход в cancelled подчиняется тому же окну отмены, что и Cancel.
func (s *Service) UpdateStatus(ctx context.Context, bookingID int64, req *models.UpdateStatusRequest) (*models.BookingResponse, error) {
	s.logger.Info("UpdateStatus: updating booking id=%d to status=%s by user=%d", bookingID, req.Status, req.RequestedBy)

	newStatus, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for booking id=%d", req.Status, bookingID)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateReason(req.CancellationReason); err != nil {
		return nil, err
	}

	var result *domain.Booking

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		booking, err := s.getBooking(txCtx, bookingID)
		if err != nil {
			return err
		}

		if !booking.Status.CanTransitionTo(newStatus) {
			s.logger.Warn("UpdateStatus: transition %s -> %s is not allowed for booking id=%d",
				booking.Status, newStatus, bookingID)
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, newStatus)
		}

		var reason *string
		if newStatus == domain.StatusCancelled {
			reason = req.CancellationReason
		}

		updated, err := s.applyChange(txCtx, booking, newStatus, req.RequestedBy, reason)
		if err != nil {
			return err
		}

		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("UpdateStatus: successfully updated booking id=%d to status=%s", bookingID, newStatus)
	return models.FromDomainBooking(result), nil
}

// applyChange проверяет окно отмены (для cancelled) и выполняет compare-and-set статуса
func (s *Service) applyChange(
	ctx context.Context,
	booking *domain.Booking,
	to domain.BookingStatus,
	actor int64,
	reason *string,
) (*domain.Booking, error) {
	now := s.timeProvider.Now()

	if to == domain.StatusCancelled {
		business, err := s.catalog.GetBusiness(ctx, booking.BusinessID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("applyChange: business id=%d not found for booking id=%d", booking.BusinessID, booking.ID)
				return nil, ErrBusinessNotFound
			}
			s.logger.Error("applyChange: failed to get business id=%d: %v", booking.BusinessID, err)
			return nil, fmt.Errorf("%w: failed to get business: %v", ErrInternal, err)
		}

		if !scheduling.CancellationAllowed(business, booking, now) {
			left := scheduling.TimeUntilStart(booking, business.Location, now)
			s.logger.Warn("applyChange: booking id=%d starts in %s, cancellation requires %d hours",
				booking.ID, left.Round(time.Second), business.CancellationHours)
			return nil, fmt.Errorf("%w: cancellation requires at least %d hours before start",
				ErrCancellationWindowClosed, business.CancellationHours)
		}
	}

	updated, err := s.bookingRepo.UpdateStatus(ctx, booking.ID, domain.StatusChange{
		From:   booking.Status,
		To:     to,
		At:     now,
		Actor:  actor,
		Reason: reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, ErrBookingNotFound
		case errors.Is(err, domain.ErrStatusChanged):
			s.logger.Warn("applyChange: booking id=%d changed concurrently", booking.ID)
			return nil, err
		default:
			s.logger.Error("applyChange: repository error for booking id=%d: %v", booking.ID, err)
			return nil, fmt.Errorf("%w: update status: %w", ErrInternal, err)
		}
	}

	return updated, nil
}

func (s *Service) getBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("booking id=%d not found", id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("repository error for booking id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: get booking: %w", ErrInternal, err)
	}
	return booking, nil
}

func validateReason(reason *string) error {
	if reason != nil && len([]rune(*reason)) > domain.MaxCancellationReasonLength {
		return fmt.Errorf("%w: cancellationReason must be at most %d characters",
			ErrInvalidInput, domain.MaxCancellationReasonLength)
	}
	return nil
}
