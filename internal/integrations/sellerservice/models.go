package sellerservice

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// DaySchedule расписание работы на день ("HH:MM")
type DaySchedule struct {
	IsOpen    bool             `json:"is_open" toml:"is_open"`
	OpenTime  types.TimeString `json:"open_time,omitempty" toml:"open_time"`
	CloseTime types.TimeString `json:"close_time,omitempty" toml:"close_time"`
}

// WorkingHours расписание работы по дням недели
type WorkingHours struct {
	Monday    DaySchedule `json:"monday" toml:"monday"`
	Tuesday   DaySchedule `json:"tuesday" toml:"tuesday"`
	Wednesday DaySchedule `json:"wednesday" toml:"wednesday"`
	Thursday  DaySchedule `json:"thursday" toml:"thursday"`
	Friday    DaySchedule `json:"friday" toml:"friday"`
	Saturday  DaySchedule `json:"saturday" toml:"saturday"`
	Sunday    DaySchedule `json:"sunday" toml:"sunday"`
}

// Business модель бизнеса из SellerService
type Business struct {
	ID                int64        `json:"id" toml:"id"`
	Name              string       `json:"name" toml:"name"`
	IsActive          bool         `json:"is_active" toml:"is_active"`
	Timezone          string       `json:"timezone,omitempty" toml:"timezone"`
	CancellationHours int          `json:"cancellation_hours" toml:"cancellation_hours"`
	WorkingHours      WorkingHours `json:"working_hours" toml:"working_hours"`
}

// Service модель услуги из SellerService
type Service struct {
	ID              int64   `json:"id" toml:"id"`
	BusinessID      int64   `json:"business_id" toml:"business_id"`
	Name            string  `json:"name" toml:"name"`
	DurationMinutes int     `json:"duration_minutes" toml:"duration_minutes"`
	Price           float64 `json:"price" toml:"price"`
	IsActive        bool    `json:"is_active" toml:"is_active"`
}

// ErrorResponse модель ошибки от SellerService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toDomain конвертирует бизнес в доменную модель.
// Пустой Timezone означает defaultLoc.
func (b *Business) toDomain(defaultLoc *time.Location) (*domain.Business, error) {
	loc := defaultLoc
	if b.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(b.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: business id=%d timezone %q: %v", ErrInvalidCatalog, b.ID, b.Timezone, err)
		}
	}

	hours, err := b.WorkingHours.toDomain()
	if err != nil {
		return nil, fmt.Errorf("%w: business id=%d: %v", ErrInvalidCatalog, b.ID, err)
	}

	return &domain.Business{
		ID:                b.ID,
		Name:              b.Name,
		IsActive:          b.IsActive,
		CancellationHours: b.CancellationHours,
		WorkingHours:      hours,
		Location:          loc,
	}, nil
}

func (w WorkingHours) toDomain() (domain.WorkingHours, error) {
	days := map[time.Weekday]DaySchedule{
		time.Sunday:    w.Sunday,
		time.Monday:    w.Monday,
		time.Tuesday:   w.Tuesday,
		time.Wednesday: w.Wednesday,
		time.Thursday:  w.Thursday,
		time.Friday:    w.Friday,
		time.Saturday:  w.Saturday,
	}

	hours := make(domain.WorkingHours, len(days))
	for weekday, schedule := range days {
		if !schedule.IsOpen {
			hours[weekday] = domain.DayHours{}
			continue
		}

		open, err := schedule.OpenTime.Minutes()
		if err != nil {
			return nil, fmt.Errorf("%s open_time: %w", weekday, err)
		}
		closing, err := schedule.CloseTime.Minutes()
		if err != nil {
			return nil, fmt.Errorf("%s close_time: %w", weekday, err)
		}

		hours[weekday] = domain.DayHours{IsOpen: true, OpenMinute: open, CloseMinute: closing}
	}

	return hours, nil
}

func (s *Service) toDomain() *domain.Service {
	return &domain.Service{
		ID:              s.ID,
		BusinessID:      s.BusinessID,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		IsActive:        s.IsActive,
	}
}
