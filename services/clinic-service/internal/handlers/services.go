package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

// ServiceStore is the catalog persistence ServiceHandler needs.
type ServiceStore interface {
	List(ctx context.Context, onlyAvailable bool) ([]model.Service, error)
	Get(ctx context.Context, id int64) (model.Service, error)
	Create(ctx context.Context, s model.Service) (model.Service, error)
	Update(ctx context.Context, s model.Service) (model.Service, error)
	Delete(ctx context.Context, id int64) error
}

// SlotFinder lists free slots for a service on a date.
type SlotFinder interface {
	Slots(ctx context.Context, serviceID int64, date time.Time) ([]scheduling.Interval, error)
}

type ServiceHandler struct {
	services ServiceStore
	slots    SlotFinder
	logger   *slog.Logger
}

func NewServiceHandler(services ServiceStore, slots SlotFinder, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{services: services, slots: slots, logger: logger}
}

// serviceRequest fields are pointers so PUT can leave fields unchanged.
type serviceRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	DurationMinutes *int     `json:"duration_minutes"`
	Price           *float64 `json:"price"`
	Available       *bool    `json:"available"`
}

func (req serviceRequest) applyTo(s *model.Service) {
	if req.Name != nil {
		s.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		s.Description = strings.TrimSpace(*req.Description)
	}
	if req.DurationMinutes != nil {
		s.DurationMinutes = *req.DurationMinutes
	}
	if req.Price != nil {
		s.Price = *req.Price
	}
	if req.Available != nil {
		s.Available = *req.Available
	}
}

func validateService(s model.Service) string {
	switch {
	case s.Name == "":
		return "name is required"
	case s.DurationMinutes <= 0:
		return "duration_minutes must be a positive integer"
	case s.DurationMinutes >= 24*60:
		return "duration_minutes must be shorter than a day"
	case s.Price <= 0:
		return "price must be positive"
	case math.Round(s.Price*100) < 1:
		return "price must be at least 0.01"
	case s.Price >= 1e8:
		return "price must be less than 100000000"
	default:
		return ""
	}
}

func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := r.URL.Query().Get("available") == "true"
	services, err := h.services.List(r.Context(), onlyAvailable)
	if err != nil {
		writeError(w, r, h.logger, "list services", err)
		return
	}
	out := make([]serviceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, toServiceResponse(s))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": out, "total": len(out)})
}

func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	svc, err := h.services.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get service", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"service": toServiceResponse(svc)})
}

func (h *ServiceHandler) Slots(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if rawDate == "" {
		httpx.WriteError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := scheduling.ParseDate(rawDate)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	slots, err := h.slots.Slots(r.Context(), id, date)
	if err != nil {
		writeError(w, r, h.logger, "list slots", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"date":       date.Format(scheduling.DateLayout),
		"service_id": id,
		"slots":      toSlotResponses(slots),
	})
}

func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	svc := model.Service{Available: true}
	req.applyTo(&svc)
	if msg := validateService(svc); msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.services.Create(r.Context(), svc)
	if err != nil {
		writeError(w, r, h.logger, "create service", err)
		return
	}
	h.logger.Info("service created", "service_id", created.ID, "name", created.Name)
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "service created successfully",
		"service": toServiceResponse(created),
	})
}

func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	var req serviceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}

	svc, err := h.services.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "get service", err)
		return
	}
	req.applyTo(&svc)
	if msg := validateService(svc); msg != "" {
		httpx.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.services.Update(r.Context(), svc)
	if err != nil {
		h.writeServiceError(w, r, "update service", err)
		return
	}
	h.logger.Info("service updated", "service_id", updated.ID)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "service updated successfully",
		"service": toServiceResponse(updated),
	})
}

func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	if err := h.services.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, "delete service", err)
		return
	}
	h.logger.Info("service deleted", "service_id", id)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"message": "service deleted successfully"})
}

func (h *ServiceHandler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if statusFor(err) == http.StatusNotFound {
		httpx.WriteError(w, http.StatusNotFound, "service not found")
		return
	}
	writeError(w, r, h.logger, op, err)
}
