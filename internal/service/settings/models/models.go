package models

import (
	"time"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

// Уровни, с которых получены настройки
const (
	LevelService  = "service"
	LevelBusiness = "business"
	LevelDefault  = "default"
)

// Request модели

// GetSettingsRequest запрос на получение действующих настроек
type GetSettingsRequest struct {
	BusinessID int64  `json:"businessId"`
	ServiceID  *int64 `json:"serviceId,omitempty"` // nil = настройки бизнеса
}

// UpdateSettingsRequest запрос на обновление настроек расписания.
// Все поля опциональны - непереданные берутся из действующих настроек.
type UpdateSettingsRequest struct {
	RequestedBy             int64  `json:"-"`
	BusinessID              int64  `json:"-"`
	ServiceID               *int64 `json:"serviceId,omitempty"` // NULL = для всех услуг
	SlotStepMinutes         *int   `json:"slotStepMinutes,omitempty"`
	AdvanceBookingDays      *int   `json:"advanceBookingDays,omitempty"`
	MinBookingNoticeMinutes *int   `json:"minBookingNoticeMinutes,omitempty"`
}

// Response модели

// SettingsResponse ответ с настройками расписания
type SettingsResponse struct {
	BusinessID              int64      `json:"businessId"`
	ServiceID               *int64     `json:"serviceId,omitempty"`
	Level                   string     `json:"level"` // service | business | default
	SlotStepMinutes         int        `json:"slotStepMinutes"`
	AdvanceBookingDays      int        `json:"advanceBookingDays"`
	MinBookingNoticeMinutes int        `json:"minBookingNoticeMinutes"`
	UpdatedAt               *time.Time `json:"updatedAt,omitempty"`
}

// FromDomainSettings конвертирует domain модель в DTO
func FromDomainSettings(s *domain.ScheduleSettings) *SettingsResponse {
	if s == nil {
		return nil
	}

	resp := &SettingsResponse{
		BusinessID:              s.BusinessID,
		ServiceID:               s.ServiceID,
		Level:                   levelOf(s),
		SlotStepMinutes:         s.SlotStepMinutes,
		AdvanceBookingDays:      s.AdvanceBookingDays,
		MinBookingNoticeMinutes: s.MinBookingNoticeMinutes,
	}
	if !s.UpdatedAt.IsZero() {
		updatedAt := s.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}

	return resp
}

func levelOf(s *domain.ScheduleSettings) string {
	switch {
	case s.ID == 0:
		return LevelDefault
	case s.IsBusinessWide():
		return LevelBusiness
	default:
		return LevelService
	}
}
