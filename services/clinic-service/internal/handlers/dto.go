package handlers

import (
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type serviceResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           float64   `json:"price"`
	Available       bool      `json:"available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toServiceResponse(s model.Service) serviceResponse {
	return serviceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		Available:       s.Available,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type appointmentResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ServiceID int64     `json:"service_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EndTime         string  `json:"end_time,omitempty"`
	ServiceName     string  `json:"service_name,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Price           float64 `json:"price,omitempty"`
	UserName        string  `json:"user_name,omitempty"`
	UserEmail       string  `json:"user_email,omitempty"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		ServiceID: a.ServiceID,
		Date:      a.Date.Format(scheduling.DateLayout),
		Time:      a.Time.String(),
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAppointmentDetailResponse(d model.AppointmentDetail) appointmentResponse {
	resp := toAppointmentResponse(d.Appointment)
	resp.ServiceName = d.ServiceName
	resp.DurationMinutes = d.DurationMinutes
	resp.Price = d.Price
	resp.UserName = d.UserName
	resp.UserEmail = d.UserEmail
	if d.DurationMinutes > 0 {
		resp.EndTime = d.EndTime().String()
	}
	return resp
}

type slotResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSlotResponses(slots []scheduling.Interval) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			Start: scheduling.TimeOfDayFromMinutes(s.Start).String(),
			End:   scheduling.TimeOfDayFromMinutes(s.End).String(),
		})
	}
	return out
}
