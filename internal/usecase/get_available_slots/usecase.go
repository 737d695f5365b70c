package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/scheduling"
	"github.com/m04kA/SMC-BookingEngine/pkg/ptr"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// UseCase use case для получения доступных слотов для бронирования.
// Результат вычисляется заново при каждом вызове и не кешируется.
type UseCase struct {
	bookingRepo  BookingRepository
	settingsRepo SettingsRepository
	catalog      Catalog
	scope        domain.ConflictScope
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	settingsRepo SettingsRepository,
	catalog Catalog,
	scope domain.ConflictScope,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		settingsRepo: settingsRepo,
		catalog:      catalog,
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

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: business=%d, service=%d, date=%s", req.BusinessID, req.ServiceID, req.Date)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now()

	// 2. Получаем бизнес
	business, err := uc.catalog.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("GetAvailableSlots: business id=%d not found", req.BusinessID)
			return nil, ErrBusinessNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get business id=%d: %v", req.BusinessID, err)
		return nil, fmt.Errorf("%w: failed to get business: %v", ErrInternal, err)
	}
	if !business.IsActive {
		return nil, ErrBusinessNotFound
	}

	// 3. Получаем услугу
	service, err := uc.catalog.GetService(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if !service.IsActive || !service.BelongsTo(req.BusinessID) || service.DurationMinutes <= 0 {
		return nil, ErrServiceNotFound
	}

	// 4. Получаем настройки с учетом иерархии
	settings, err := uc.settingsRepo.GetWithHierarchy(ctx, req.BusinessID, ptr.Ptr(req.ServiceID))
	if errors.Is(err, domain.ErrSettingsNotFound) {
		settings = domain.DefaultScheduleSettings(req.BusinessID)
		err = nil
	}
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get settings: %v", err)
		return nil, fmt.Errorf("%w: failed to get settings: %w", ErrInternal, err)
	}

	// 5. Валидация даты по календарю бизнеса
	today := types.Today(now, business.Location)
	if req.Date.Before(today) {
		uc.logger.Warn("GetAvailableSlots: date %s is before business today %s", req.Date, today)
		return nil, ErrPastDate
	}
	if !scheduling.WithinAdvanceWindow(settings, today, req.Date) {
		return nil, fmt.Errorf("%w: can only book %d days in advance", ErrDateTooFarInFuture, settings.AdvanceBookingDays)
	}

	response := &Response{
		Date:       req.Date,
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		Slots:      []Slot{},
	}

	// 6. Рабочие часы на дату
	window := scheduling.OperatingWindow(business.WorkingHours, req.Date)
	if !window.IsOpen {
		uc.logger.Info("GetAvailableSlots: business id=%d is closed on %s", req.BusinessID, req.Date)
		return response, nil
	}

	// 7. Существующие бронирования на дату
	existing, err := uc.bookingRepo.FindByBusinessAndDate(ctx, req.BusinessID, req.Date)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get bookings: %v", err)
		return nil, fmt.Errorf("%w: failed to get bookings: %w", ErrInternal, err)
	}

	// 8. Кандидаты, отфильтрованные по пересечениям и минимальному уведомлению
	total := 0
	for slot := range scheduling.Candidates(window, service.DurationMinutes, settings.SlotStepMinutes) {
		total++

		if _, blocked := scheduling.FindConflict(slot.Interval(), uc.scope, req.StaffID, existing); blocked {
			continue
		}
		if !scheduling.MeetsNotice(settings, req.Date, slot.StartMinute, business.Location, now) {
			continue
		}

		response.Slots = append(response.Slots, Slot{
			StartTime: types.MustFromMinutes(slot.StartMinute),
			EndTime:   types.MustFromMinutes(slot.EndMinute),
		})
	}

	uc.logger.Info("GetAvailableSlots: %d of %d slots available for business=%d, service=%d, date=%s",
		len(response.Slots), total, req.BusinessID, req.ServiceID, req.Date)

	return response, nil
}
