package models

import (
	"fmt"
	"sort"
	"time"
)

// BookingWindowDays is how far ahead the catalog offers dates, today included.
const BookingWindowDays = 30

// IsDateClosed reports whether the date is in the exception list.
func (e *Entity) IsDateClosed(date string) bool {
	for _, d := range e.ClosedDates {
		if d == date {
			return true
		}
	}
	return false
}

// IsDateOpen applies the recurring rules: the weekday must be open and the date must not be an exception.
func (e *Entity) IsDateOpen(d time.Time) bool {
	day, ok := e.Weekly[d.Weekday().String()]
	if !ok || !day.IsOpen {
		return false
	}
	return !e.IsDateClosed(d.Format(DateLayout))
}

// AvailableDates lists the bookable dates in [today, today+days), in order.
// Slots that already started today are still offered.
func (e *Entity) AvailableDates(today time.Time, days int) []string {
	if days <= 0 {
		days = BookingWindowDays
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days)

	if e.Mode == ModeFixed {
		seen := make(map[string]bool)
		var out []string
		for _, o := range e.Occurrences {
			if !o.Available || seen[o.Date] {
				continue
			}
			d, err := time.Parse(DateLayout, o.Date)
			if err != nil || d.Before(start) || !d.Before(end) {
				continue
			}
			seen[o.Date] = true
			out = append(out, o.Date)
		}
		sort.Strings(out)
		return out
	}

	out := make([]string, 0, days)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if e.IsDateOpen(d) {
			out = append(out, d.Format(DateLayout))
		}
	}
	return out
}

// SlotsFor resolves the catalog for one date. Capacities are nominal, not yet reduced by bookings.
func (e *Entity) SlotsFor(date string) ([]Slot, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrDateNotBookable, date)
	}
	entityID := e.ID.String()

	if e.Mode == ModeFixed {
		capacity := e.TotalTierCapacity()
		var slots []Slot
		for _, o := range e.Occurrences {
			if o.Date != date || !o.Available {
				continue
			}
			slots = append(slots, Slot{
				Key:      SlotKey{EntityID: entityID, Date: date, Start: o.Start, End: o.End},
				Capacity: capacity,
			})
		}
		if len(slots) == 0 {
			return nil, fmt.Errorf("%w: no occurrence on %s", ErrDateNotBookable, date)
		}
		return slots, nil
	}

	if !e.IsDateOpen(d) {
		return nil, fmt.Errorf("%w: %s is closed", ErrDateNotBookable, date)
	}
	day := e.Weekly[d.Weekday().String()]
	slots := make([]Slot, 0, len(day.Slots))
	for _, w := range day.Slots {
		slots = append(slots, Slot{
			Key:      SlotKey{EntityID: entityID, Date: date, Start: w.Start, End: w.End},
			Capacity: w.Capacity,
		})
	}
	return slots, nil
}

// FindSlot returns the catalog slot matching the key exactly.
func (e *Entity) FindSlot(key SlotKey) (Slot, error) {
	slots, err := e.SlotsFor(key.Date)
	if err != nil {
		return Slot{}, err
	}
	for _, s := range slots {
		if s.Key == key {
			return s, nil
		}
	}
	return Slot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, key)
}
