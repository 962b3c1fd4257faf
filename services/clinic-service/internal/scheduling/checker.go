package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrServiceNotFound = errors.New("service not found")

// Booked is a non-cancelled appointment as the checkers see it.
type Booked struct {
	ID              int64
	Time            TimeOfDay
	DurationMinutes int
}

func (b Booked) Interval() Interval {
	return NewInterval(b.Time, b.DurationMinutes)
}

// Store is the read access the checkers need. excludeID 0 excludes nothing.
type Store interface {
	// ListActiveOnDate returns every non-cancelled appointment on date, each
	// with the duration of its own service.
	ListActiveOnDate(ctx context.Context, date time.Time, excludeID int64) ([]Booked, error)
	// ServiceDuration returns ErrServiceNotFound for unknown ids.
	ServiceDuration(ctx context.Context, serviceID int64) (int, error)
	CountActiveAtSlot(ctx context.Context, userID int64, date time.Time, at TimeOfDay, excludeID int64) (int, error)
}

// Checker validates a requested slot before it is persisted. It holds no
// state of its own, so one value can be shared across requests.
type Checker struct {
	store Store
}

func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// IsSlotFree reports whether userID has no non-cancelled appointment at
// exactly date and at. Only identical times match; overlap is the job of
// HasNoConflict.
func (c *Checker) IsSlotFree(ctx context.Context, userID int64, date time.Time, at TimeOfDay, excludeID int64) (bool, error) {
	n, err := c.store.CountActiveAtSlot(ctx, userID, date, at, excludeID)
	if err != nil {
		return false, fmt.Errorf("count appointments at slot: %w", err)
	}
	return n == 0, nil
}

// HasNoConflict reports whether a booking of serviceID at date/at would
// overlap no other non-cancelled appointment that day, whoever holds it and
// whatever service it is for. An unknown service yields false together with
// ErrServiceNotFound.
func (c *Checker) HasNoConflict(ctx context.Context, serviceID int64, date time.Time, at TimeOfDay, excludeID int64) (bool, error) {
	_, found, err := c.FirstConflict(ctx, serviceID, date, at, excludeID)
	if err != nil {
		return false, err
	}
	return !found, nil
}

// FirstConflict returns the earliest-listed appointment overlapping the
// requested booking, if any.
func (c *Checker) FirstConflict(ctx context.Context, serviceID int64, date time.Time, at TimeOfDay, excludeID int64) (Booked, bool, error) {
	duration, err := c.store.ServiceDuration(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return Booked{}, false, ErrServiceNotFound
		}
		return Booked{}, false, fmt.Errorf("load service duration: %w", err)
	}
	candidate := NewInterval(at, duration)

	existing, err := c.store.ListActiveOnDate(ctx, date, excludeID)
	if err != nil {
		return Booked{}, false, fmt.Errorf("list appointments on date: %w", err)
	}
	for _, b := range existing {
		if candidate.Overlaps(b.Interval()) {
			return b, true, nil
		}
	}
	return Booked{}, false, nil
}

// FreeSlots lists the intervals inside window where serviceID could be
// booked on date without conflicting. Starts earlier than notBefore minutes
// are skipped; pass a negative value to keep them all.
func (c *Checker) FreeSlots(ctx context.Context, serviceID int64, date time.Time, window Interval, step, notBefore int) ([]Interval, error) {
	duration, err := c.store.ServiceDuration(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("load service duration: %w", err)
	}
	existing, err := c.store.ListActiveOnDate(ctx, date, 0)
	if err != nil {
		return nil, fmt.Errorf("list appointments on date: %w", err)
	}
	busy := make([]Interval, 0, len(existing))
	for _, b := range existing {
		busy = append(busy, b.Interval())
	}
	return AvailableSlots(window, duration, step, busy, notBefore), nil
}
