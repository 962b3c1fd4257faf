package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
)

type Routes struct {
	Auth         *AuthHandler
	Services     *ServiceHandler
	Appointments *AppointmentHandler
	JWTSecret    string
}

// Register mounts the public, authenticated and admin API on mux.
func Register(mux *http.ServeMux, rt Routes) {
	authed := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, httpx.RequireAuth(rt.JWTSecret))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, httpx.RequireAuth(rt.JWTSecret), httpx.RequireRole(model.RoleAdmin))
	}

	mux.HandleFunc("POST /api/v1/auth/register", rt.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", rt.Auth.Login)
	mux.Handle("GET /api/v1/auth/profile", authed(rt.Auth.Profile))

	mux.HandleFunc("GET /api/v1/services", rt.Services.List)
	mux.HandleFunc("GET /api/v1/services/{id}", rt.Services.Get)
	mux.HandleFunc("GET /api/v1/services/{id}/slots", rt.Services.Slots)
	mux.Handle("POST /api/v1/services", admin(rt.Services.Create))
	mux.Handle("PUT /api/v1/services/{id}", admin(rt.Services.Update))
	mux.Handle("DELETE /api/v1/services/{id}", admin(rt.Services.Delete))

	mux.Handle("GET /api/v1/appointments", authed(rt.Appointments.ListMine))
	mux.Handle("POST /api/v1/appointments", authed(rt.Appointments.Create))
	mux.Handle("GET /api/v1/appointments/check", authed(rt.Appointments.Check))
	mux.Handle("PATCH /api/v1/appointments/{id}/cancel", authed(rt.Appointments.Cancel))

	mux.Handle("GET /api/v1/admin/appointments", admin(rt.Appointments.ListAll))
	mux.Handle("PATCH /api/v1/admin/appointments/{id}/status", admin(rt.Appointments.UpdateStatus))
	mux.Handle("DELETE /api/v1/admin/appointments/{id}", admin(rt.Appointments.Delete))
}
