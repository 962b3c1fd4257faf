package scheduling

// Interval is a half-open span [Start, End) in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// NewInterval builds the interval a booking of durationMinutes occupies.
func NewInterval(start TimeOfDay, durationMinutes int) Interval {
	s := start.Minutes()
	return Interval{Start: s, End: s + durationMinutes}
}

// Overlaps reports whether a and b share any minute. Touching endpoints do
// not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

func (a Interval) overlapsAny(busy []Interval) bool {
	for _, b := range busy {
		if a.Overlaps(b) {
			return true
		}
	}
	return false
}
