package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

// Bookings is the booking workflow AppointmentHandler drives.
type Bookings interface {
	Create(ctx context.Context, in booking.CreateInput) (model.AppointmentDetail, error)
	Cancel(ctx context.Context, actor booking.Actor, id int64) (model.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, next model.Status) (model.Appointment, error)
	Delete(ctx context.Context, id int64) error
	ListMine(ctx context.Context, userID int64) ([]model.AppointmentDetail, error)
	ListAll(ctx context.Context) ([]model.AppointmentDetail, error)
	Check(ctx context.Context, actor booking.Actor, in booking.CheckInput) (booking.CheckResult, error)
}

type AppointmentHandler struct {
	bookings Bookings
	logger   *slog.Logger
}

func NewAppointmentHandler(bookings Bookings, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{bookings: bookings, logger: logger}
}

type createAppointmentRequest struct {
	ServiceID int64  `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Notes     string `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var req createAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	if req.ServiceID <= 0 || req.Date == "" || req.Time == "" {
		httpx.WriteError(w, http.StatusBadRequest, "service_id, date and time are required")
		return
	}
	date, at, msg := parseSlot(req.Date, req.Time)
	if msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	appt, err := h.bookings.Create(r.Context(), booking.CreateInput{
		UserID:    actor.UserID,
		ServiceID: req.ServiceID,
		Date:      date,
		Time:      at,
		Notes:     strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeError(w, r, h.logger, "create appointment", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":     "appointment created successfully",
		"appointment": toAppointmentDetailResponse(appt),
	})
}

func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	appts, err := h.bookings.ListMine(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, h.logger, "list appointments", err)
		return
	}
	writeAppointmentList(w, appts)
}

func (h *AppointmentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	appts, err := h.bookings.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.logger, "list all appointments", err)
		return
	}
	writeAppointmentList(w, appts)
}

func writeAppointmentList(w http.ResponseWriter, appts []model.AppointmentDetail) {
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentDetailResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointments": out, "total": len(out)})
}

// Check answers whether the caller could book service_id at date/time,
// optionally ignoring one of their appointments (exclude_id), without
// booking anything.
func (h *AppointmentHandler) Check(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	q := r.URL.Query()
	serviceID, err := strconv.ParseInt(q.Get("service_id"), 10, 64)
	if err != nil || serviceID <= 0 || q.Get("date") == "" || q.Get("time") == "" {
		httpx.WriteError(w, http.StatusBadRequest, "service_id, date and time are required")
		return
	}
	date, at, msg := parseSlot(q.Get("date"), q.Get("time"))
	if msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	var excludeID int64
	if raw := q.Get("exclude_id"); raw != "" {
		excludeID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || excludeID < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid exclude_id")
			return
		}
	}

	res, err := h.bookings.Check(r.Context(), actor, booking.CheckInput{
		ServiceID: serviceID,
		Date:      date,
		Time:      at,
		ExcludeID: excludeID,
	})
	if err != nil {
		writeError(w, r, h.logger, "check slot", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"service_id":    serviceID,
		"date":          date.Format(scheduling.DateLayout),
		"time":          at.String(),
		"slot_free":     res.SlotFree,
		"conflict_free": res.ConflictFree,
	})
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	appt, err := h.bookings.Cancel(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, h.logger, "cancel appointment", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     "appointment cancelled successfully",
		"appointment": toAppointmentResponse(appt),
	})
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	next, ok := model.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid status, expected pending, confirmed, cancelled or completed")
		return
	}

	appt, err := h.bookings.UpdateStatus(r.Context(), id, next)
	if err != nil {
		writeError(w, r, h.logger, "update appointment status", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message":     "appointment status updated successfully",
		"appointment": toAppointmentResponse(appt),
	})
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	if err := h.bookings.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, "delete appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseSlot returns a non-empty message when either part is malformed.
func parseSlot(rawDate, rawTime string) (time.Time, scheduling.TimeOfDay, string) {
	date, err := scheduling.ParseDate(strings.TrimSpace(rawDate))
	if err != nil {
		return time.Time{}, 0, "invalid date format, expected YYYY-MM-DD"
	}
	at, err := scheduling.ParseTimeOfDay(strings.TrimSpace(rawTime))
	if err != nil {
		return time.Time{}, 0, "invalid time format, expected HH:MM or HH:MM:SS"
	}
	return date, at, ""
}
