package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

type settingsKey struct {
	businessID int64
	serviceID  int64 // 0 = для всех услуг
}

func keyOf(businessID int64, serviceID *int64) settingsKey {
	key := settingsKey{businessID: businessID}
	if serviceID != nil {
		key.serviceID = *serviceID
	}
	return key
}

// SettingsStore in-memory хранилище настроек расписания
type SettingsStore struct {
	mu       sync.RWMutex
	settings map[settingsKey]domain.ScheduleSettings
	nextID   int64
	now      func() time.Time
}

// NewSettingsStore создает пустое хранилище настроек
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		settings: make(map[settingsKey]domain.ScheduleSettings),
		now:      time.Now,
	}
}

// GetWithHierarchy получает настройки с учетом иерархии:
// 1. Для конкретной услуги (businessID, serviceID)
// 2. Для всех услуг бизнеса (businessID, NULL)
func (s *SettingsStore) GetWithHierarchy(_ context.Context, businessID int64, serviceID *int64) (*domain.ScheduleSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if serviceID != nil {
		if settings, ok := s.settings[keyOf(businessID, serviceID)]; ok {
			return &settings, nil
		}
	}
	if settings, ok := s.settings[keyOf(businessID, nil)]; ok {
		return &settings, nil
	}

	return nil, domain.ErrSettingsNotFound
}

// Upsert создает или обновляет настройки для (businessID, serviceID)
func (s *SettingsStore) Upsert(_ context.Context, settings *domain.ScheduleSettings) (*domain.ScheduleSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(settings.BusinessID, settings.ServiceID)
	now := s.now()

	saved := *settings
	if settings.ServiceID != nil {
		serviceID := *settings.ServiceID
		saved.ServiceID = &serviceID
	}
	if existing, ok := s.settings[key]; ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		saved.ID = s.nextID
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	s.settings[key] = saved

	result := saved
	return &result, nil
}
