package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	otelx "github.com/md-rashed-zaman/clinicbook/libs/otel"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Hours is the daily window slots are offered in, plus the slot grid step.
type Hours struct {
	Open  scheduling.TimeOfDay
	Close scheduling.TimeOfDay
	Step  int
}

type Service struct {
	store   Store
	checker *scheduling.Checker
	hours   Hours
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewService(store Store, hours Hours, logger *slog.Logger, m *metrics.Metrics) *Service {
	if hours.Step <= 0 {
		hours.Step = 15
	}
	return &Service{
		store:   store,
		checker: scheduling.NewChecker(store),
		hours:   hours,
		logger:  logger,
		metrics: m,
		tracer:  otelx.Tracer("clinic-service/booking"),
		now:     time.Now,
	}
}

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

type CreateInput struct {
	UserID    int64
	ServiceID int64
	Date      time.Time
	Time      scheduling.TimeOfDay
	Notes     string
}

// Create books a pending appointment. The duplicate-slot and overlap checks
// run under the date lock, in that order, in the same transaction as the
// insert.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.AppointmentDetail, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Create", trace.WithAttributes(
		attribute.Int64("service.id", in.ServiceID),
		attribute.String("appointment.date", in.Date.Format(scheduling.DateLayout)),
		attribute.String("appointment.time", in.Time.String()),
	))
	defer span.End()

	if in.Date.Before(scheduling.DateOf(s.now())) {
		s.metrics.IncRejection("past_date")
		return model.AppointmentDetail{}, ErrPastDate
	}

	var created model.AppointmentDetail
	err := s.store.WithinDateLock(ctx, in.Date, func(ctx context.Context, tx Tx) error {
		svc, err := tx.GetService(ctx, in.ServiceID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return scheduling.ErrServiceNotFound
			}
			return fmt.Errorf("load service: %w", err)
		}
		if !svc.Available {
			return ErrServiceUnavailable
		}

		checker := scheduling.NewChecker(tx)

		start := time.Now()
		free, err := checker.IsSlotFree(ctx, in.UserID, in.Date, in.Time, 0)
		s.metrics.ObserveCheck("slot_free", start)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotTaken
		}

		start = time.Now()
		clash, found, err := checker.FirstConflict(ctx, in.ServiceID, in.Date, in.Time, 0)
		s.metrics.ObserveCheck("conflict", start)
		if err != nil {
			return err
		}
		if found {
			s.logger.Info("booking rejected by time conflict",
				"service_id", in.ServiceID,
				"date", in.Date.Format(scheduling.DateLayout),
				"time", in.Time.String(),
				"conflicting_appointment_id", clash.ID,
			)
			return ErrTimeConflict
		}

		appt, err := tx.InsertAppointment(ctx, model.Appointment{
			UserID:    in.UserID,
			ServiceID: in.ServiceID,
			Date:      in.Date,
			Time:      in.Time,
			Status:    model.StatusPending,
			Notes:     in.Notes,
		})
		if err != nil {
			if errors.Is(err, model.ErrDuplicate) {
				return ErrSlotTaken
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		if err := s.emit(ctx, tx, outbox.AppointmentBooked, appt, map[string]any{
			"service_name":     svc.Name,
			"duration_minutes": svc.DurationMinutes,
		}); err != nil {
			return err
		}

		created = model.AppointmentDetail{
			Appointment:     appt,
			ServiceName:     svc.Name,
			DurationMinutes: svc.DurationMinutes,
			Price:           svc.Price,
		}
		return nil
	})
	if err != nil {
		s.reject(span, err)
		return model.AppointmentDetail{}, err
	}

	s.metrics.AppointmentsBooked.Inc()
	span.SetAttributes(attribute.Int64("appointment.id", created.ID))
	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"user_id", created.UserID,
		"service_id", created.ServiceID,
		"date", created.Date.Format(scheduling.DateLayout),
		"time", created.Time.String(),
	)
	return created, nil
}

// Cancel moves an appointment to cancelled. Clients may only cancel their
// own appointments; admins may cancel any.
func (s *Service) Cancel(ctx context.Context, actor Actor, id int64) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(attribute.Int64("appointment.id", id)))
	defer span.End()

	var updated model.Appointment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := s.lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && appt.UserID != actor.UserID {
			return ErrForbidden
		}
		if appt.Status == model.StatusCancelled {
			return ErrAlreadyCancelled
		}
		updated, err = s.transition(ctx, tx, appt, model.StatusCancelled)
		return err
	})
	if err != nil {
		s.reject(span, err)
		return model.Appointment{}, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id, "user_id", actor.UserID)
	return updated, nil
}

// UpdateStatus applies an admin-driven status change.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next model.Status) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.UpdateStatus", trace.WithAttributes(
		attribute.Int64("appointment.id", id),
		attribute.String("appointment.status", string(next)),
	))
	defer span.End()

	var updated model.Appointment
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := s.lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		updated, err = s.transition(ctx, tx, appt, next)
		return err
	})
	if err != nil {
		s.reject(span, err)
		return model.Appointment{}, err
	}
	s.logger.Info("appointment status updated", "appointment_id", id, "status", next)
	return updated, nil
}

// Delete removes an appointment outright.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "booking.Delete", trace.WithAttributes(attribute.Int64("appointment.id", id)))
	defer span.End()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		appt, err := s.lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, id); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return ErrAppointmentMissing
			}
			return fmt.Errorf("delete appointment: %w", err)
		}
		return s.emit(ctx, tx, outbox.AppointmentDeleted, appt, nil)
	})
	if err != nil {
		s.reject(span, err)
		return err
	}
	s.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

func (s *Service) ListMine(ctx context.Context, userID int64) ([]model.AppointmentDetail, error) {
	return s.store.ListAppointmentsByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]model.AppointmentDetail, error) {
	return s.store.ListAppointments(ctx)
}

type CheckInput struct {
	ServiceID int64
	Date      time.Time
	Time      scheduling.TimeOfDay
	ExcludeID int64
}

type CheckResult struct {
	SlotFree     bool
	ConflictFree bool
}

// Check runs both checkers without booking anything. ExcludeID, when set,
// must name one of the actor's own appointments unless the actor is an
// admin. An admin excluding someone else's appointment gets the slot check
// for that appointment's owner.
func (s *Service) Check(ctx context.Context, actor Actor, in CheckInput) (CheckResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Check")
	defer span.End()

	slotUser := actor.UserID
	if in.ExcludeID != 0 {
		appt, err := s.store.GetAppointment(ctx, in.ExcludeID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return CheckResult{}, ErrAppointmentMissing
			}
			return CheckResult{}, fmt.Errorf("load excluded appointment: %w", err)
		}
		if !actor.IsAdmin() && appt.UserID != actor.UserID {
			return CheckResult{}, ErrForbidden
		}
		slotUser = appt.UserID
	}

	var res CheckResult
	var err error
	if res.SlotFree, err = s.checker.IsSlotFree(ctx, slotUser, in.Date, in.Time, in.ExcludeID); err != nil {
		return CheckResult{}, err
	}
	if res.ConflictFree, err = s.checker.HasNoConflict(ctx, in.ServiceID, in.Date, in.Time, in.ExcludeID); err != nil {
		return CheckResult{}, err
	}
	return res, nil
}

// Slots lists bookable intervals for a service on date within clinic hours.
// Past days yield nothing; on the current day starts before now are dropped.
func (s *Service) Slots(ctx context.Context, serviceID int64, date time.Time) ([]scheduling.Interval, error) {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, scheduling.ErrServiceNotFound
		}
		return nil, fmt.Errorf("load service: %w", err)
	}
	if !svc.Available {
		return nil, ErrServiceUnavailable
	}

	now := s.now()
	today := scheduling.DateOf(now)
	notBefore := -1
	switch {
	case date.Before(today):
		return nil, nil
	case date.Equal(today):
		notBefore = now.Hour()*60 + now.Minute()
	}

	window := scheduling.Interval{Start: s.hours.Open.Minutes(), End: s.hours.Close.Minutes()}
	return s.checker.FreeSlots(ctx, serviceID, date, window, s.hours.Step, notBefore)
}

func (s *Service) lockAppointment(ctx context.Context, tx Tx, id int64) (model.Appointment, error) {
	appt, err := tx.GetAppointmentForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Appointment{}, ErrAppointmentMissing
		}
		return model.Appointment{}, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) transition(ctx context.Context, tx Tx, appt model.Appointment, next model.Status) (model.Appointment, error) {
	if appt.Status.Terminal() {
		return model.Appointment{}, fmt.Errorf("%w: appointment is already %s", ErrInvalidTransition, appt.Status)
	}
	if !appt.Status.CanTransitionTo(next) {
		return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, next)
	}
	updated, err := tx.UpdateAppointmentStatus(ctx, appt.ID, next)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("update status: %w", err)
	}

	eventType := outbox.AppointmentStatusChanged
	if next == model.StatusCancelled {
		eventType = outbox.AppointmentCancelled
	}
	if err := s.emit(ctx, tx, eventType, updated, map[string]any{"previous_status": appt.Status}); err != nil {
		return model.Appointment{}, err
	}
	s.metrics.IncStatusChange(string(appt.Status), string(next))
	return updated, nil
}

func (s *Service) emit(ctx context.Context, tx Tx, eventType string, appt model.Appointment, extra map[string]any) error {
	body := map[string]any{
		"appointment_id": appt.ID,
		"user_id":        appt.UserID,
		"service_id":     appt.ServiceID,
		"date":           appt.Date.Format(scheduling.DateLayout),
		"time":           appt.Time.String(),
		"status":         appt.Status,
		"occurred_at":    s.now().UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	if err := tx.InsertEvent(ctx, outbox.Event{
		AggregateType: outbox.AggregateAppointment,
		AggregateID:   strconv.FormatInt(appt.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}

func (s *Service) reject(span trace.Span, err error) {
	if reason := rejectionReason(err); reason != "" {
		s.metrics.IncRejection(reason)
		span.SetAttributes(attribute.String("booking.rejection", reason))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, scheduling.ErrServiceNotFound):
		return "service_not_found"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrTimeConflict):
		return "time_conflict"
	case errors.Is(err, ErrAppointmentMissing):
		return "appointment_not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return ""
	}
}
