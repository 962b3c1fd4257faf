package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

// statusFor maps workflow and storage errors onto HTTP status codes. Zero
// means the error is unexpected.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduling.ErrServiceNotFound),
		errors.Is(err, booking.ErrAppointmentMissing),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrMissingReference):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrPastDate),
		errors.Is(err, booking.ErrServiceUnavailable),
		errors.Is(err, booking.ErrAlreadyCancelled):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrTimeConflict),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, model.ErrDuplicate),
		errors.Is(err, model.ErrInUse):
		return http.StatusConflict
	default:
		return 0
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "resource not found"
	case errors.Is(err, model.ErrMissingReference):
		return "the referenced user or service no longer exists"
	case errors.Is(err, model.ErrInUse):
		return "service has appointments and cannot be deleted"
	case errors.Is(err, model.ErrDuplicate):
		return "resource already exists"
	default:
		return err.Error()
	}
}

// writeError answers with the mapped status, or logs err and answers 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	if status := statusFor(err); status != 0 {
		httpx.WriteError(w, status, messageFor(err))
		return
	}
	logger.Error(op+" failed",
		"request_id", httpx.RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// actorFrom reads the caller from the claims RequireAuth stored.
func actorFrom(r *http.Request) (booking.Actor, bool) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		return booking.Actor{}, false
	}
	id, err := strconv.ParseInt(claims.Sub, 10, 64)
	if err != nil || id <= 0 {
		return booking.Actor{}, false
	}
	return booking.Actor{UserID: id, Role: claims.Role}, true
}
