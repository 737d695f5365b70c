package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/internal/service/settings/models"
)

// Service сервис настроек расписания бизнеса
type Service struct {
	settingsRepo SettingsRepository
	catalog      Catalog
	txManager    TransactionManager
	logger       Logger
}

// NewService создает новый экземпляр сервиса настроек
func NewService(
	settingsRepo SettingsRepository,
	catalog Catalog,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		settingsRepo: settingsRepo,
		catalog:      catalog,
		txManager:    txManager,
		logger:       logger,
	}
}

// Get получает действующие настройки с учетом иерархии приоритетов.
// Приоритет: service > business > значения по умолчанию
func (s *Service) Get(ctx context.Context, req *models.GetSettingsRequest) (*models.SettingsResponse, error) {
	s.logger.Info("Get: fetching settings for business=%d, service=%v", req.BusinessID, req.ServiceID)

	if err := s.checkTarget(ctx, req.BusinessID, req.ServiceID); err != nil {
		return nil, err
	}

	settings, err := s.effective(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	resp := models.FromDomainSettings(settings)
	s.logger.Info("Get: resolved settings for business=%d on level %s", req.BusinessID, resp.Level)
	return resp, nil
}

// Update создает или обновляет настройки на уровне бизнеса или услуги.
// Поддерживает частичное обновление: непереданные поля берутся из действующих настроек.
func (s *Service) Update(ctx context.Context, req *models.UpdateSettingsRequest) (*models.SettingsResponse, error) {
	s.logger.Info("Update: updating settings for business=%d, service=%v by user=%d",
		req.BusinessID, req.ServiceID, req.RequestedBy)

	// 1. Валидируем входные данные
	if err := validateUpdate(req); err != nil {
		s.logger.Warn("Update: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем существование бизнеса и услуги
	if err := s.checkTarget(ctx, req.BusinessID, req.ServiceID); err != nil {
		return nil, err
	}

	var saved *domain.ScheduleSettings

	// 3. Сливаем с действующими настройками и сохраняем
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		current, err := s.effective(txCtx, req.BusinessID, req.ServiceID)
		if err != nil {
			return err
		}

		next := &domain.ScheduleSettings{
			BusinessID:              req.BusinessID,
			ServiceID:               req.ServiceID,
			SlotStepMinutes:         current.SlotStepMinutes,
			AdvanceBookingDays:      current.AdvanceBookingDays,
			MinBookingNoticeMinutes: current.MinBookingNoticeMinutes,
		}
		if req.SlotStepMinutes != nil {
			next.SlotStepMinutes = *req.SlotStepMinutes
		}
		if req.AdvanceBookingDays != nil {
			next.AdvanceBookingDays = *req.AdvanceBookingDays
		}
		if req.MinBookingNoticeMinutes != nil {
			next.MinBookingNoticeMinutes = *req.MinBookingNoticeMinutes
		}

		saved, err = s.settingsRepo.Upsert(txCtx, next)
		if err != nil {
			s.logger.Error("Update: repository error: %v", err)
			return fmt.Errorf("%w: Update - repository error: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Update: successfully saved settings id=%d", saved.ID)
	return models.FromDomainSettings(saved), nil
}

func (s *Service) effective(ctx context.Context, businessID int64, serviceID *int64) (*domain.ScheduleSettings, error) {
	settings, err := s.settingsRepo.GetWithHierarchy(ctx, businessID, serviceID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return domain.DefaultScheduleSettings(businessID), nil
	}
	if err != nil {
		s.logger.Error("failed to get settings for business=%d: %v", businessID, err)
		return nil, fmt.Errorf("%w: get settings: %w", ErrInternal, err)
	}
	return settings, nil
}

// checkTarget проверяет, что бизнес и услуга (если указана) есть в каталоге
func (s *Service) checkTarget(ctx context.Context, businessID int64, serviceID *int64) error {
	if _, err := s.catalog.GetBusiness(ctx, businessID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("business id=%d not found", businessID)
			return ErrBusinessNotFound
		}
		s.logger.Error("failed to get business id=%d: %v", businessID, err)
		return fmt.Errorf("%w: failed to get business: %v", ErrInternal, err)
	}

	if serviceID == nil {
		return nil
	}

	if _, err := s.catalog.GetService(ctx, businessID, *serviceID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("service id=%d not found in business=%d", *serviceID, businessID)
			return ErrServiceNotFound
		}
		s.logger.Error("failed to get service id=%d: %v", *serviceID, err)
		return fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	return nil
}

func validateUpdate(req *models.UpdateSettingsRequest) error {
	if req.BusinessID <= 0 {
		return fmt.Errorf("%w: businessId must be positive", ErrInvalidInput)
	}
	if req.ServiceID != nil && *req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceId must be positive", ErrInvalidInput)
	}

	if v := req.SlotStepMinutes; v != nil && (*v < domain.MinSlotStepMinutes || *v > domain.MaxSlotStepMinutes) {
		return fmt.Errorf("%w: slotStepMinutes must be between %d and %d",
			ErrInvalidInput, domain.MinSlotStepMinutes, domain.MaxSlotStepMinutes)
	}
	if v := req.AdvanceBookingDays; v != nil && (*v < domain.MinAdvanceBookingDays || *v > domain.MaxAdvanceBookingDays) {
		return fmt.Errorf("%w: advanceBookingDays must be between %d and %d",
			ErrInvalidInput, domain.MinAdvanceBookingDays, domain.MaxAdvanceBookingDays)
	}
	if v := req.MinBookingNoticeMinutes; v != nil && (*v < domain.MinBookingNoticeMinutes || *v > domain.MaxBookingNoticeMinutes) {
		return fmt.Errorf("%w: minBookingNoticeMinutes must be between %d and %d",
			ErrInvalidInput, domain.MinBookingNoticeMinutes, domain.MaxBookingNoticeMinutes)
	}

	return nil
}
