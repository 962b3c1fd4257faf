package scheduling

// AvailableSlots returns the intervals of length duration, starting every
// step minutes from window.Start, that fit inside window and overlap none of
// busy. Starts before notBefore are skipped.
func AvailableSlots(window Interval, duration, step int, busy []Interval, notBefore int) []Interval {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if window.End <= window.Start || window.Start+duration > window.End {
		return nil
	}

	var slots []Interval
	for t := window.Start; t+duration <= window.End; t += step {
		if t < notBefore {
			continue
		}
		slot := Interval{Start: t, End: t + duration}
		if !slot.overlapsAny(busy) {
			slots = append(slots, slot)
		}
	}
	return slots
}
