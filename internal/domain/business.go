package domain

import "time"

// DayHours is the operating window of one weekday, in minutes since midnight
type DayHours struct {
	IsOpen      bool
	OpenMinute  int
	CloseMinute int
}

// Window returns the operating interval
func (d DayHours) Window() Interval {
	return Interval{Start: d.OpenMinute, End: d.CloseMinute}
}

// WorkingHours maps weekday (0 = Sunday ... 6 = Saturday) to its schedule.
// A missing weekday means the business is closed that day.
type WorkingHours map[time.Weekday]DayHours

// Business is the subset of a business record the booking engine needs
type Business struct {
	ID                int64
	Name              string
	IsActive          bool
	CancellationHours int
	WorkingHours      WorkingHours
	Location          *time.Location // business timezone; never nil after resolution
}

// CancellationWindow returns the minimum lead time required to cancel
func (b *Business) CancellationWindow() time.Duration {
	return time.Duration(b.CancellationHours) * time.Hour
}

// Service is the subset of a service record the booking engine needs
type Service struct {
	ID              int64
	BusinessID      int64
	Name            string
	DurationMinutes int
	Price           float64
	IsActive        bool
}

// BelongsTo returns true if the service is offered by the business
func (s *Service) BelongsTo(businessID int64) bool {
	return s.BusinessID == businessID
}
