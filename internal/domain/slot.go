package domain

// Interval is a half-open [Start, End) range in minutes since midnight
type Interval struct {
	Start int
	End   int
}

// Duration returns the interval length in minutes
func (i Interval) Duration() int {
	return i.End - i.Start
}

// Slot is a bookable candidate produced for a service on a given day.
// Slots are ephemeral and never persisted.
type Slot struct {
	StartMinute int
	EndMinute   int
	Available   bool
}

// Interval returns the slot interval
func (s Slot) Interval() Interval {
	return Interval{Start: s.StartMinute, End: s.EndMinute}
}
