package booking

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/scheduling"
)

// memState is the committed data of memStore. Transactions work on a clone
// and swap it in on success.
type memState struct {
	services     map[int64]model.Service
	users        map[int64]model.User
	appointments map[int64]model.Appointment
	events       []outbox.Event
}

func (s *memState) clone() *memState {
	c := &memState{
		services:     make(map[int64]model.Service, len(s.services)),
		users:        make(map[int64]model.User, len(s.users)),
		appointments: make(map[int64]model.Appointment, len(s.appointments)),
		events:       append([]outbox.Event(nil), s.events...),
	}
	for k, v := range s.services {
		c.services[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	return c
}

type memStore struct {
	mu        sync.Mutex
	dateLocks sync.Map
	state     *memState
	seq       atomic.Int64

	// failEvent makes InsertEvent fail, to check rollback.
	failEvent error
	// beforeInsert runs inside WithinDateLock just before the insert.
	beforeInsert func()
}

func newMemStore() *memStore {
	m := &memStore{state: &memState{
		services:     map[int64]model.Service{},
		users:        map[int64]model.User{},
		appointments: map[int64]model.Appointment{},
	}}
	m.seq.Store(100)
	return m
}

func (m *memStore) addService(svc model.Service) {
	m.state.services[svc.ID] = svc
}

func (m *memStore) addUser(u model.User) {
	m.state.users[u.ID] = u
}

func (m *memStore) addAppointment(a model.Appointment) model.Appointment {
	if a.ID == 0 {
		a.ID = m.seq.Add(1)
	}
	m.state.appointments[a.ID] = a
	return a
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *memStore) WithinDateLock(ctx context.Context, date time.Time, fn func(context.Context, Tx) error) error {
	l, _ := m.dateLocks.LoadOrStore(date.Format(scheduling.DateLayout), &sync.Mutex{})
	lock := l.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()
	return m.WithinTx(ctx, fn)
}

func (m *memStore) WithinTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	m.mu.Lock()
	work := m.state.clone()
	m.mu.Unlock()

	tx := &memTx{state: work, store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Merge: appointments touched by this tx win; untouched ones keep any
	// concurrent commits.
	merged := m.state.clone()
	for id := range tx.touched {
		if a, ok := work.appointments[id]; ok {
			merged.appointments[id] = a
		} else {
			delete(merged.appointments, id)
		}
	}
	merged.events = append(merged.events, tx.events...)
	m.state = merged
	return nil
}

func (m *memStore) ListActiveOnDate(ctx context.Context, date time.Time, excludeID int64) ([]scheduling.Booked, error) {
	return (&memTx{state: m.snapshot()}).ListActiveOnDate(ctx, date, excludeID)
}

func (m *memStore) ServiceDuration(ctx context.Context, serviceID int64) (int, error) {
	return (&memTx{state: m.snapshot()}).ServiceDuration(ctx, serviceID)
}

func (m *memStore) CountActiveAtSlot(ctx context.Context, userID int64, date time.Time, at scheduling.TimeOfDay, excludeID int64) (int, error) {
	return (&memTx{state: m.snapshot()}).CountActiveAtSlot(ctx, userID, date, at, excludeID)
}

func (m *memStore) GetService(ctx context.Context, id int64) (model.Service, error) {
	return (&memTx{state: m.snapshot()}).GetService(ctx, id)
}

func (m *memStore) GetAppointment(_ context.Context, id int64) (model.Appointment, error) {
	a, ok := m.snapshot().appointments[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (m *memStore) ListAppointmentsByUser(_ context.Context, userID int64) ([]model.AppointmentDetail, error) {
	return m.details(func(a model.Appointment) bool { return a.UserID == userID }), nil
}

func (m *memStore) ListAppointments(_ context.Context) ([]model.AppointmentDetail, error) {
	return m.details(func(model.Appointment) bool { return true }), nil
}

func (m *memStore) details(keep func(model.Appointment) bool) []model.AppointmentDetail {
	st := m.snapshot()
	var out []model.AppointmentDetail
	for _, a := range st.appointments {
		if !keep(a) {
			continue
		}
		svc := st.services[a.ServiceID]
		u := st.users[a.UserID]
		out = append(out, model.AppointmentDetail{
			Appointment:     a,
			ServiceName:     svc.Name,
			DurationMinutes: svc.DurationMinutes,
			Price:           svc.Price,
			UserName:        u.Name,
			UserEmail:       u.Email,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Time > out[j].Time
	})
	return out
}

func (m *memStore) events() []outbox.Event {
	return m.snapshot().events
}

type memTx struct {
	state   *memState
	store   *memStore
	touched map[int64]struct{}
	events  []outbox.Event
}

func (t *memTx) touch(id int64) {
	if t.touched == nil {
		t.touched = map[int64]struct{}{}
	}
	t.touched[id] = struct{}{}
}

func (t *memTx) ListActiveOnDate(_ context.Context, date time.Time, excludeID int64) ([]scheduling.Booked, error) {
	var out []scheduling.Booked
	for _, a := range t.state.appointments {
		if a.Status == model.StatusCancelled || !a.Date.Equal(date) || (excludeID != 0 && a.ID == excludeID) {
			continue
		}
		out = append(out, scheduling.Booked{ID: a.ID, Time: a.Time, DurationMinutes: t.state.services[a.ServiceID].DurationMinutes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (t *memTx) ServiceDuration(_ context.Context, serviceID int64) (int, error) {
	svc, ok := t.state.services[serviceID]
	if !ok {
		return 0, scheduling.ErrServiceNotFound
	}
	return svc.DurationMinutes, nil
}

func (t *memTx) CountActiveAtSlot(_ context.Context, userID int64, date time.Time, at scheduling.TimeOfDay, excludeID int64) (int, error) {
	n := 0
	for _, a := range t.state.appointments {
		if a.Status == model.StatusCancelled || a.UserID != userID || !a.Date.Equal(date) || a.Time != at || (excludeID != 0 && a.ID == excludeID) {
			continue
		}
		n++
	}
	return n, nil
}

func (t *memTx) GetService(_ context.Context, id int64) (model.Service, error) {
	svc, ok := t.state.services[id]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return svc, nil
}

func (t *memTx) GetAppointmentForUpdate(_ context.Context, id int64) (model.Appointment, error) {
	a, ok := t.state.appointments[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (t *memTx) InsertAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if t.store != nil && t.store.beforeInsert != nil {
		t.store.beforeInsert()
	}
	if n, _ := t.CountActiveAtSlot(ctx, a.UserID, a.Date, a.Time, 0); n > 0 {
		return model.Appointment{}, model.ErrDuplicate
	}
	a.ID = t.store.seq.Add(1)
	a.CreatedAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	t.state.appointments[a.ID] = a
	t.touch(a.ID)
	return a, nil
}

func (t *memTx) UpdateAppointmentStatus(_ context.Context, id int64, status model.Status) (model.Appointment, error) {
	a, ok := t.state.appointments[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	a.Status = status
	t.state.appointments[id] = a
	t.touch(id)
	return a, nil
}

func (t *memTx) DeleteAppointment(_ context.Context, id int64) error {
	if _, ok := t.state.appointments[id]; !ok {
		return model.ErrNotFound
	}
	delete(t.state.appointments, id)
	t.touch(id)
	return nil
}

func (t *memTx) InsertEvent(_ context.Context, evt outbox.Event) error {
	if t.store != nil && t.store.failEvent != nil {
		return t.store.failEvent
	}
	t.events = append(t.events, evt)
	return nil
}
