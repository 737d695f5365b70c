package scheduling

import (
	"iter"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

// Candidates enumerates slots [s, s+duration) for s = open, open+step, ...
// while the slot still ends by closing time. Every range over the returned
// sequence starts again from the opening minute. Closed days and
// non-positive durations produce an empty sequence; a non-positive step
// falls back to domain.DefaultSlotStepMinutes.
//
// Slots are emitted with Available=true; availability filtering is the caller's job.
func Candidates(day domain.DayHours, duration, step int) iter.Seq[domain.Slot] {
	if step <= 0 {
		step = domain.DefaultSlotStepMinutes
	}

	return func(yield func(domain.Slot) bool) {
		if !day.IsOpen || duration <= 0 {
			return
		}
		for start := day.OpenMinute; start+duration <= day.CloseMinute; start += step {
			slot := domain.Slot{StartMinute: start, EndMinute: start + duration, Available: true}
			if !yield(slot) {
				return
			}
		}
	}
}
