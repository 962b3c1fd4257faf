package model

import (
	"testing"

	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusPending, StatusCompleted}:   true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusConfirmed, StatusCompleted}: true,
	}
	all := []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("confirmed")
	assert.True(t, ok)
	assert.Equal(t, StatusConfirmed, s)

	_, ok = ParseStatus("CONFIRMED")
	assert.False(t, ok)
	_, ok = ParseStatus("no_show")
	assert.False(t, ok)
}

func TestAppointmentEndTime(t *testing.T) {
	d := AppointmentDetail{
		Appointment:     Appointment{Time: scheduling.MustTimeOfDay("09:45:30")},
		DurationMinutes: 30,
	}
	assert.Equal(t, "10:15:00", d.EndTime().String())
}
