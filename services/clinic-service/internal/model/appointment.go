package model

import (
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusCompleted},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return s, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether s may move to next. Cancelled and
// completed are terminal, and a status never transitions to itself.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

type Appointment struct {
	ID        int64
	UserID    int64
	ServiceID int64
	Date      time.Time
	Time      scheduling.TimeOfDay
	Status    Status
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentDetail is an appointment joined with its service and owner, as
// the listing endpoints return it.
type AppointmentDetail struct {
	Appointment
	ServiceName     string
	DurationMinutes int
	Price           float64
	UserName        string
	UserEmail       string
}

// EndTime is the time-of-day the appointment ends, seconds truncated.
func (a AppointmentDetail) EndTime() scheduling.TimeOfDay {
	iv := scheduling.NewInterval(a.Time, a.DurationMinutes)
	return scheduling.TimeOfDayFromMinutes(iv.End)
}
