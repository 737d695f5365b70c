package scheduling

import "github.com/m04kA/SMC-BookingEngine/internal/domain"

// Overlaps reports whether two half-open intervals intersect.
// Touching intervals (one ends exactly where the other starts) do not overlap.
func Overlaps(a, b domain.Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// FindConflict returns the first occupying booking that overlaps the candidate
// interval within the same conflict partition. Cancelled, completed and
// no-show bookings never block.
func FindConflict(
	candidate domain.Interval,
	scope domain.ConflictScope,
	staffID *int64,
	existing []*domain.Booking,
) (*domain.Booking, bool) {
	key := scope.Key(staffID)

	for _, booking := range existing {
		if !booking.IsOccupying() {
			continue
		}
		if scope.Key(booking.StaffID) != key {
			continue
		}
		if Overlaps(candidate, booking.Interval()) {
			return booking, true
		}
	}

	return nil, false
}
