package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

// dateLockNamespace is the first key of the two-key advisory lock taken per
// booking date. The second key is the day number since the Unix epoch.
const dateLockNamespace int32 = 0x0C11

// AppointmentRepository is the Postgres implementation of booking.Store.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ booking.Store = (*AppointmentRepository)(nil)

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

func (r *AppointmentRepository) WithinTx(ctx context.Context, fn func(context.Context, booking.Tx) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx, outbox: r.outbox})
	})
}

// WithinDateLock serialises transactions touching the same date. The lock is
// released when the transaction ends.
func (r *AppointmentRepository) WithinDateLock(ctx context.Context, date time.Time, fn func(context.Context, booking.Tx) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1::int4, $2::int4)`, dateLockNamespace, dayNumber(date)); err != nil {
			return err
		}
		return fn(ctx, &txStore{tx: tx, outbox: r.outbox})
	})
}

func (r *AppointmentRepository) ListActiveOnDate(ctx context.Context, date time.Time, excludeID int64) ([]scheduling.Booked, error) {
	return listActiveOnDate(ctx, r.pool, date, excludeID)
}

func (r *AppointmentRepository) ServiceDuration(ctx context.Context, serviceID int64) (int, error) {
	return serviceDuration(ctx, r.pool, serviceID)
}

func (r *AppointmentRepository) CountActiveAtSlot(ctx context.Context, userID int64, date time.Time, at scheduling.TimeOfDay, excludeID int64) (int, error) {
	return countActiveAtSlot(ctx, r.pool, userID, date, at, excludeID)
}

func (r *AppointmentRepository) GetService(ctx context.Context, id int64) (model.Service, error) {
	return getService(ctx, r.pool, id)
}

func (r *AppointmentRepository) GetAppointment(ctx context.Context, id int64) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
}

func (r *AppointmentRepository) ListAppointmentsByUser(ctx context.Context, userID int64) ([]model.AppointmentDetail, error) {
	return r.listDetails(ctx, `WHERE a.user_id = $1`, userID)
}

func (r *AppointmentRepository) ListAppointments(ctx context.Context) ([]model.AppointmentDetail, error) {
	return r.listDetails(ctx, ``)
}

func (r *AppointmentRepository) listDetails(ctx context.Context, where string, args ...any) ([]model.AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.user_id, a.service_id, a.appt_date, a.appt_time, a.status, a.notes, a.created_at, a.updated_at,
			s.name, s.duration_minutes, s.price::float8, u.name, u.email
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		JOIN users u ON u.id = a.user_id
		`+where+`
		ORDER BY a.appt_date DESC, a.appt_time DESC, a.id DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []model.AppointmentDetail{}
	for rows.Next() {
		var (
			d  model.AppointmentDetail
			at pgtype.Time
		)
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.ServiceID, &d.Date, &at, &d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
			&d.ServiceName, &d.DurationMinutes, &d.Price, &d.UserName, &d.UserEmail,
		); err != nil {
			return nil, err
		}
		d.Time = fromPgTime(at)
		details = append(details, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return details, nil
}

// txStore is the booking.Tx view over one pgx transaction.
type txStore struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *txStore) ListActiveOnDate(ctx context.Context, date time.Time, excludeID int64) ([]scheduling.Booked, error) {
	return listActiveOnDate(ctx, t.tx, date, excludeID)
}

func (t *txStore) ServiceDuration(ctx context.Context, serviceID int64) (int, error) {
	return serviceDuration(ctx, t.tx, serviceID)
}

func (t *txStore) CountActiveAtSlot(ctx context.Context, userID int64, date time.Time, at scheduling.TimeOfDay, excludeID int64) (int, error) {
	return countActiveAtSlot(ctx, t.tx, userID, date, at, excludeID)
}

func (t *txStore) GetService(ctx context.Context, id int64) (model.Service, error) {
	return getService(ctx, t.tx, id)
}

func (t *txStore) GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error) {
	return scanAppointment(t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

func (t *txStore) InsertAppointment(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	return scanAppointment(t.tx.QueryRow(ctx, `
		INSERT INTO appointments (user_id, service_id, appt_date, appt_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+appointmentColumns,
		appt.UserID, appt.ServiceID, appt.Date, toPgTime(appt.Time), string(appt.Status), appt.Notes))
}

func (t *txStore) UpdateAppointmentStatus(ctx context.Context, id int64, status model.Status) (model.Appointment, error) {
	return scanAppointment(t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		id, string(status)))
}

func (t *txStore) DeleteAppointment(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *txStore) InsertEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

const appointmentColumns = `id, user_id, service_id, appt_date, appt_time, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a  model.Appointment
		at pgtype.Time
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.ServiceID, &a.Date, &at, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Appointment{}, translate(err)
	}
	a.Time = fromPgTime(at)
	return a, nil
}

func listActiveOnDate(ctx context.Context, q querier, date time.Time, excludeID int64) ([]scheduling.Booked, error) {
	rows, err := q.Query(ctx, `
		SELECT a.id, a.appt_time, s.duration_minutes
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.appt_date = $1
			AND a.status <> 'cancelled'
			AND a.id <> $2
		ORDER BY a.appt_time ASC, a.id ASC
	`, date, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var booked []scheduling.Booked
	for rows.Next() {
		var (
			b  scheduling.Booked
			at pgtype.Time
		)
		if err := rows.Scan(&b.ID, &at, &b.DurationMinutes); err != nil {
			return nil, err
		}
		b.Time = fromPgTime(at)
		booked = append(booked, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return booked, nil
}

func serviceDuration(ctx context.Context, q querier, serviceID int64) (int, error) {
	var minutes int
	err := q.QueryRow(ctx, `SELECT duration_minutes FROM services WHERE id = $1`, serviceID).Scan(&minutes)
	if err != nil {
		if IsNotFound(err) {
			return 0, scheduling.ErrServiceNotFound
		}
		return 0, err
	}
	return minutes, nil
}

func countActiveAtSlot(ctx context.Context, q querier, userID int64, date time.Time, at scheduling.TimeOfDay, excludeID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE user_id = $1
			AND appt_date = $2
			AND appt_time = $3
			AND status <> 'cancelled'
			AND id <> $4
	`, userID, date, toPgTime(at), excludeID).Scan(&n)
	return n, err
}

func toPgTime(t scheduling.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t.Duration() / time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) scheduling.TimeOfDay {
	return scheduling.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond / time.Second)
}

func dayNumber(date time.Time) int32 {
	y, m, d := date.Date()
	return int32(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
