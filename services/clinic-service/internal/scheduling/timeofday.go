package scheduling

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTime = errors.New("invalid time, expected HH:MM or HH:MM:SS")

	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2}))?$`)
)

const DateLayout = "2006-01-02"

// TimeOfDay is a wall-clock time in seconds since midnight. There is no
// timezone; the clinic has one.
type TimeOfDay int

// ParseTimeOfDay accepts HH:MM or HH:MM:SS. A missing seconds part is zero.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	m := timeRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, ErrInvalidTime
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	ss := 0
	if m[3] != "" {
		ss, _ = strconv.Atoi(m[3])
	}
	if h > 23 || mm > 59 || ss > 59 {
		return 0, ErrInvalidTime
	}
	return TimeOfDay(h*3600 + mm*60 + ss), nil
}

// MustTimeOfDay is ParseTimeOfDay for constants and tests.
func MustTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func TimeOfDayFromMinutes(m int) TimeOfDay {
	return TimeOfDay(m * 60)
}

// Minutes since midnight, seconds truncated.
func (t TimeOfDay) Minutes() int {
	return int(t) / 60
}

func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Duration since midnight, for storage drivers.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// ParseDate accepts YYYY-MM-DD only and returns midnight UTC of that day.
func ParseDate(raw string) (time.Time, error) {
	if !dateRe.MatchString(raw) {
		return time.Time{}, ErrInvalidDate
	}
	d, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// DateOf truncates t to its calendar day in t's location, returned as
// midnight UTC so it compares equal to ParseDate results.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
