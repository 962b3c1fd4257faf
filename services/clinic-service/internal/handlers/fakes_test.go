package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/booking"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]model.User
	next  int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]model.User{}, next: 1}
}

func (f *fakeUsers) Create(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return model.User{}, model.ErrDuplicate
		}
	}
	u.ID = f.next
	u.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.next++
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

type fakeServices struct {
	services  map[int64]model.Service
	inUse     map[int64]bool
	next      int64
	listedAll *bool
}

func newFakeServices(services ...model.Service) *fakeServices {
	f := &fakeServices{services: map[int64]model.Service{}, inUse: map[int64]bool{}, next: 100}
	for _, s := range services {
		f.services[s.ID] = s
	}
	return f
}

func (f *fakeServices) List(_ context.Context, onlyAvailable bool) ([]model.Service, error) {
	all := !onlyAvailable
	f.listedAll = &all
	var out []model.Service
	for _, s := range f.services {
		if onlyAvailable && !s.Available {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeServices) Get(_ context.Context, id int64) (model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return s, nil
}

func (f *fakeServices) Create(_ context.Context, s model.Service) (model.Service, error) {
	s.ID = f.next
	f.next++
	f.services[s.ID] = s
	return s, nil
}

func (f *fakeServices) Update(_ context.Context, s model.Service) (model.Service, error) {
	if _, ok := f.services[s.ID]; !ok {
		return model.Service{}, model.ErrNotFound
	}
	f.services[s.ID] = s
	return s, nil
}

func (f *fakeServices) Delete(_ context.Context, id int64) error {
	if _, ok := f.services[id]; !ok {
		return model.ErrNotFound
	}
	if f.inUse[id] {
		return model.ErrInUse
	}
	delete(f.services, id)
	return nil
}

// fakeBookings records the last call and returns canned results.
type fakeBookings struct {
	createIn booking.CreateInput
	checkIn  booking.CheckInput
	actor    booking.Actor
	status   model.Status
	deleted  int64

	detail model.AppointmentDetail
	appt   model.Appointment
	list   []model.AppointmentDetail
	check  booking.CheckResult
	slots  []scheduling.Interval
	err    error
}

func (f *fakeBookings) Create(_ context.Context, in booking.CreateInput) (model.AppointmentDetail, error) {
	f.createIn = in
	return f.detail, f.err
}

func (f *fakeBookings) Cancel(_ context.Context, actor booking.Actor, id int64) (model.Appointment, error) {
	f.actor = actor
	f.appt.ID = id
	f.appt.Status = model.StatusCancelled
	return f.appt, f.err
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id int64, next model.Status) (model.Appointment, error) {
	f.status = next
	f.appt.ID = id
	f.appt.Status = next
	return f.appt, f.err
}

func (f *fakeBookings) Delete(_ context.Context, id int64) error {
	f.deleted = id
	return f.err
}

func (f *fakeBookings) ListMine(_ context.Context, userID int64) ([]model.AppointmentDetail, error) {
	f.actor = booking.Actor{UserID: userID}
	return f.list, f.err
}

func (f *fakeBookings) ListAll(context.Context) ([]model.AppointmentDetail, error) {
	return f.list, f.err
}

func (f *fakeBookings) Check(_ context.Context, actor booking.Actor, in booking.CheckInput) (booking.CheckResult, error) {
	f.actor = actor
	f.checkIn = in
	return f.check, f.err
}

func (f *fakeBookings) Slots(_ context.Context, _ int64, _ time.Time) ([]scheduling.Interval, error) {
	return f.slots, f.err
}

type testServer struct {
	users    *fakeUsers
	services *fakeServices
	bookings *fakeBookings
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := &testServer{
		users:    newFakeUsers(),
		services: newFakeServices(),
		bookings: &fakeBookings{},
	}
	mux := http.NewServeMux()
	Register(mux, Routes{
		Auth:         NewAuthHandler(ts.users, testSecret, time.Hour, logger),
		Services:     NewServiceHandler(ts.services, ts.bookings, logger),
		Appointments: NewAppointmentHandler(ts.bookings, logger),
		JWTSecret:    testSecret,
	})
	ts.handler = mux
	return ts
}

func tokenFor(t *testing.T, userID int64, role string) string {
	t.Helper()
	claims := auth.NewClaims(strconv.FormatInt(userID, 10), "user@example.com", role, time.Now(), time.Hour)
	token, err := auth.SignHS256(claims, testSecret)
	require.NoError(t, err)
	return token
}

// do sends body (marshalled unless it is a string) with an optional bearer
// token and decodes a JSON response into a map.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}
