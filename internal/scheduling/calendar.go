package scheduling

import (
	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// OperatingWindow resolves the business schedule for a calendar date.
// The weekday comes from the date itself, never from locale formatting.
// Missing weekdays and inconsistent windows (open >= close) are closed days.
func OperatingWindow(hours domain.WorkingHours, date types.Date) domain.DayHours {
	day, ok := hours[date.Weekday()]
	if !ok || !day.IsOpen || day.OpenMinute >= day.CloseMinute {
		return domain.DayHours{IsOpen: false}
	}
	return day
}

// WithinWindow reports whether the interval lies inside an open day's window
func WithinWindow(day domain.DayHours, interval domain.Interval) bool {
	if !day.IsOpen {
		return false
	}
	return day.OpenMinute <= interval.Start && interval.End <= day.CloseMinute
}
