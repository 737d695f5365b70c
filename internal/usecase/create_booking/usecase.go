package create_booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/scheduling"
	"github.com/m04kA/SMC-BookingEngine/pkg/ptr"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// UseCase use case для создания бронирования
type UseCase struct {
	bookingRepo  BookingRepository
	settingsRepo SettingsRepository
	catalog      Catalog
	txManager    TransactionManager
	scope        domain.ConflictScope
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	settingsRepo SettingsRepository,
	catalog Catalog,
	txManager TransactionManager,
	scope domain.ConflictScope,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		settingsRepo: settingsRepo,
		catalog:      catalog,
		txManager:    txManager,
		scope:        scope,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник времени (для тестов)
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute выполняет use case создания бронирования.
// Проверка пересечений и вставка выполняются в сериализуемой транзакции
// под блокировкой (бизнес, дата, ключ области конфликта).
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.Booking, error) {
	uc.logger.Info("CreateBooking: customer=%d, business=%d, service=%d, date=%s, time=%s",
		req.CustomerID, req.BusinessID, req.ServiceID, req.Date, req.StartTime)

	// 1. Валидация входных данных
	startMinute, err := validateRequest(req)
	if err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now()

	// 2. Получаем бизнес (нужен часовой пояс для "сегодня")
	business, err := uc.catalog.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("CreateBooking: business id=%d not found", req.BusinessID)
			return nil, ErrBusinessNotFound
		}
		uc.logger.Error("CreateBooking: failed to get business id=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: failed to get business: %v", ErrInternal, err)
	}
	if !business.IsActive {
		uc.logger.Warn("CreateBooking: business id=%d is inactive", req.BusinessID)
		return nil, ErrBusinessNotFound
	}

	// 3. Дата не в прошлом по календарю бизнеса
	today := types.Today(now, business.Location)
	if req.Date.Before(today) {
		uc.logger.Warn("CreateBooking: date %s is before business today %s", req.Date, today)
		return nil, ErrPastDate
	}

	// 4. Получаем услугу
	service, err := uc.catalog.GetService(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("CreateBooking: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("CreateBooking: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if !service.IsActive || !service.BelongsTo(req.BusinessID) || service.DurationMinutes <= 0 {
		uc.logger.Warn("CreateBooking: service id=%d is unavailable for business id=%d", req.ServiceID, req.BusinessID)
		return nil, ErrServiceNotFound
	}

	// 5. Интервал и рабочие часы
	interval := domain.Interval{Start: startMinute, End: startMinute + service.DurationMinutes}

	window := scheduling.OperatingWindow(business.WorkingHours, req.Date)
	if !window.IsOpen {
		uc.logger.Warn("CreateBooking: business id=%d is closed on %s", req.BusinessID, req.Date)
		return nil, ErrBusinessClosed
	}
	if !scheduling.WithinWindow(window, interval) {
		uc.logger.Warn("CreateBooking: interval [%d, %d) is outside working hours [%d, %d)",
			interval.Start, interval.End, window.OpenMinute, window.CloseMinute)
		return nil, ErrOutsideWorkingHours
	}

	// 6. Политика бронирования
	settings, err := uc.resolveSettings(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	if !scheduling.WithinAdvanceWindow(settings, today, req.Date) {
		uc.logger.Warn("CreateBooking: date %s exceeds advance limit of %d days", req.Date, settings.AdvanceBookingDays)
		return nil, fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, settings.AdvanceBookingDays)
	}
	if !scheduling.MeetsNotice(settings, req.Date, interval.Start, business.Location, now) {
		uc.logger.Warn("CreateBooking: start %s on %s violates notice of %d minutes",
			req.StartTime, req.Date, settings.MinBookingNoticeMinutes)
		return nil, fmt.Errorf("%w: must book at least %d minutes in advance", ErrTooLateToBook, settings.MinBookingNoticeMinutes)
	}

	scopeKey := uc.scope.Key(req.StaffID)

	var result *domain.Booking

	// 7. Проверка пересечений и вставка в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := uc.bookingRepo.LockDay(txCtx, req.BusinessID, req.Date, scopeKey); err != nil {
			return fmt.Errorf("%w: failed to lock day: %w", ErrInternal, err)
		}

		existing, err := uc.bookingRepo.FindByBusinessAndDate(txCtx, req.BusinessID, req.Date)
		if err != nil {
			return fmt.Errorf("%w: failed to get bookings: %w", ErrInternal, err)
		}

		if blocking, found := scheduling.FindConflict(interval, uc.scope, req.StaffID, existing); found {
			return fmt.Errorf("%w: %w", ErrSlotNotAvailable, &domain.ConflictError{Blocking: blocking})
		}

		booking := &domain.Booking{
			BusinessID:  req.BusinessID,
			ServiceID:   req.ServiceID,
			CustomerID:  req.CustomerID,
			StaffID:     req.StaffID,
			Date:        req.Date,
			StartMinute: interval.Start,
			EndMinute:   interval.End,
			Status:      domain.StatusPending,
			TotalPrice:  service.Price,
			ServiceName: service.Name,
			Notes:       req.Notes,
		}

		created, err := uc.bookingRepo.Insert(txCtx, booking, scopeKey)
		if err != nil {
			// Ограничение хранилища сработало раньше нашей проверки
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("%w: %w", ErrSlotNotAvailable, err)
			}
			return fmt.Errorf("%w: failed to create booking: %w", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			uc.logger.Warn("CreateBooking: %v", err)
		} else {
			uc.logger.Error("CreateBooking: transaction failed: %v", err)
		}
		return nil, err
	}

	uc.logger.Info("CreateBooking: successfully created booking id=%d", result.ID)
	return result, nil
}

// resolveSettings получает настройки с учетом иерархии, при их отсутствии - значения по умолчанию
func (uc *UseCase) resolveSettings(ctx context.Context, businessID, serviceID int64) (*domain.ScheduleSettings, error) {
	settings, err := uc.settingsRepo.GetWithHierarchy(ctx, businessID, ptr.Ptr(serviceID))
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return domain.DefaultScheduleSettings(businessID), nil
	}
	if err != nil {
		uc.logger.Error("CreateBooking: failed to get settings: %v", err)
		return nil, fmt.Errorf("%w: failed to get settings: %w", ErrInternal, err)
	}
	return settings, nil
}
