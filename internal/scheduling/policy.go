package scheduling

import (
	"time"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
	"github.com/m04kA/SMC-BookingEngine/pkg/types"
)

// WithinAdvanceWindow reports whether date is no further than AdvanceBookingDays
// after today. Zero days means unlimited.
func WithinAdvanceWindow(settings *domain.ScheduleSettings, today, date types.Date) bool {
	if !settings.HasAdvanceBookingLimit() {
		return true
	}
	return !date.After(today.AddDays(settings.AdvanceBookingDays))
}

// MeetsNotice reports whether a booking starting at startMinute on date,
// in the business location, begins at least MinBookingNoticeMinutes after now.
// A start in the past never meets the notice.
func MeetsNotice(settings *domain.ScheduleSettings, date types.Date, startMinute int, loc *time.Location, now time.Time) bool {
	earliest := now.Add(time.Duration(settings.MinBookingNoticeMinutes) * time.Minute)
	return !date.At(startMinute, loc).Before(earliest)
}

// TimeUntilStart returns the time left before the booking begins
func TimeUntilStart(b *domain.Booking, loc *time.Location, now time.Time) time.Duration {
	return b.StartsAt(loc).Sub(now)
}

// CancellationAllowed reports whether the cancellation window is still open
func CancellationAllowed(business *domain.Business, b *domain.Booking, now time.Time) bool {
	return TimeUntilStart(b, business.Location, now) >= business.CancellationWindow()
}
