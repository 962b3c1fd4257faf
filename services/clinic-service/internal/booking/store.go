package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

// Store is the persistence the booking workflow runs on. Reads outside a
// transaction go straight to the store; writes go through WithinTx or
// WithinDateLock.
type Store interface {
	scheduling.Store

	// WithinDateLock runs fn in a transaction that holds an exclusive lock on
	// date, so bookings for one day are checked and inserted one at a time.
	WithinDateLock(ctx context.Context, date time.Time, fn func(context.Context, Tx) error) error
	WithinTx(ctx context.Context, fn func(context.Context, Tx) error) error

	GetService(ctx context.Context, id int64) (model.Service, error)
	GetAppointment(ctx context.Context, id int64) (model.Appointment, error)
	ListAppointmentsByUser(ctx context.Context, userID int64) ([]model.AppointmentDetail, error)
	ListAppointments(ctx context.Context) ([]model.AppointmentDetail, error)
}

// Tx is the transactional view handed to WithinTx and WithinDateLock
// callbacks. The scheduling reads see the transaction's own writes.
type Tx interface {
	scheduling.Store

	GetService(ctx context.Context, id int64) (model.Service, error)
	GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error)
	// InsertAppointment returns model.ErrDuplicate when the user already
	// holds an active appointment at the same date and time.
	InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status model.Status) (model.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
	InsertEvent(ctx context.Context, evt outbox.Event) error
}
