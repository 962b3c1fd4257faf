package booking

import "errors"

var (
	ErrPastDate           = errors.New("cannot book an appointment in the past")
	ErrServiceUnavailable = errors.New("service is not available")
	ErrSlotTaken          = errors.New("you already have an appointment at this date and time")
	ErrTimeConflict       = errors.New("the requested time conflicts with an existing appointment")
	ErrAppointmentMissing = errors.New("appointment not found")
	ErrForbidden          = errors.New("you can only modify your own appointments")
	ErrAlreadyCancelled   = errors.New("appointment is already cancelled")
	ErrInvalidTransition  = errors.New("status transition not allowed")
)
