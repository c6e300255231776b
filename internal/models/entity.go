package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type EntityKind string

const (
	KindEvent    EntityKind = "event"
	KindActivity EntityKind = "activity"
)

type ScheduleMode string

const (
	ModeFixed     ScheduleMode = "fixed"
	ModeRecurring ScheduleMode = "recurring"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Occurrence is one dated instance of a fixed-mode entity.
type Occurrence struct {
	Date      string `bson:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Start     string `bson:"start" json:"start" validate:"required,datetime=15:04"`
	End       string `bson:"end" json:"end" validate:"required,datetime=15:04"`
	Available bool   `bson:"available" json:"available"`
}

// Tier capacity is shared by every occurrence of the entity.
type Tier struct {
	Name     string  `bson:"name" json:"name" validate:"required"`
	Capacity int     `bson:"capacity" json:"capacity" validate:"min=1"`
	Price    float64 `bson:"price" json:"price" validate:"min=0"`
	Sold     int     `bson:"sold" json:"sold"`
}

type TimeWindow struct {
	Start    string `bson:"start" json:"start" validate:"required,datetime=15:04"`
	End      string `bson:"end" json:"end" validate:"required,datetime=15:04"`
	Capacity int    `bson:"capacity" json:"capacity" validate:"min=1"`
}

type DaySchedule struct {
	IsOpen bool         `bson:"isOpen" json:"isOpen"`
	Slots  []TimeWindow `bson:"slots" json:"slots" validate:"dive"`
}

// Entity is a bookable product (event or activity) together with its slot catalog.
type Entity struct {
	ID          uuid.UUID    `bson:"_id" json:"id"`
	OrganizerID uuid.UUID    `bson:"organizer_id" json:"organizer_id"`
	Kind        EntityKind   `bson:"kind" json:"kind" validate:"required,oneof=event activity"`
	Title       string       `bson:"title" json:"title" validate:"required,max=200"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64      `bson:"price" json:"price"`
	Currency    string       `bson:"currency,omitempty" json:"currency,omitempty"`
	Timezone    string       `bson:"timezone,omitempty" json:"timezone,omitempty"`
	Mode        ScheduleMode `bson:"mode" json:"mode" validate:"required,oneof=fixed recurring"`

	// fixed mode
	Occurrences []Occurrence `bson:"occurrences,omitempty" json:"occurrences,omitempty" validate:"dive"`
	Tiers       []Tier       `bson:"tiers,omitempty" json:"tiers,omitempty" validate:"dive"`

	// recurring mode
	Weekly      map[string]DaySchedule `bson:"weekly,omitempty" json:"weekly,omitempty" validate:"dive"`
	ClosedDates []string               `bson:"closedDates,omitempty" json:"closedDates,omitempty" validate:"dive,datetime=2006-01-02"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Slot is one bookable (date, start, end) instance with its nominal capacity.
type Slot struct {
	Key      SlotKey `json:"key"`
	Capacity int     `json:"capacity"`
}

// SlotKey identifies one bookable instance. Matching is plain string equality on every field.
type SlotKey struct {
	EntityID string `bson:"entity_id" json:"entity_id"`
	Date     string `bson:"date" json:"date"`
	Start    string `bson:"start" json:"start"`
	End      string `bson:"end" json:"end"`
}

func (k SlotKey) String() string {
	return k.EntityID + "|" + k.Date + "|" + k.Start + "|" + k.End
}

// TierPoolKey addresses the counter shared by every occurrence of a fixed-mode tier. Its Date
// is never a calendar date, so it cannot collide with a slot counter.
func TierPoolKey(entityID, tier string) SlotKey {
	return SlotKey{EntityID: entityID, Date: "tier", End: tier}
}

func (k SlotKey) Matches(b *Booking) bool {
	return b.EntityID == k.EntityID && b.Date == k.Date && b.Start == k.Start && b.End == k.End
}

var weekdays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (e *Entity) Validate() error {
	if err := Validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntity, err)
	}
	if math.IsNaN(e.Price) || math.IsInf(e.Price, 0) || e.Price < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrInvalidPrice)
	}
	if e.Timezone != "" {
		if _, err := time.LoadLocation(e.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidEntity, e.Timezone)
		}
	}

	switch e.Mode {
	case ModeFixed:
		if len(e.Occurrences) == 0 {
			return fmt.Errorf("%w: fixed mode needs at least one occurrence", ErrInvalidEntity)
		}
		if len(e.Tiers) == 0 {
			return fmt.Errorf("%w: fixed mode needs at least one ticket tier", ErrInvalidEntity)
		}
		for _, o := range e.Occurrences {
			if o.Start >= o.End {
				return fmt.Errorf("%w: occurrence %s %s-%s ends before it starts", ErrInvalidEntity, o.Date, o.Start, o.End)
			}
		}
	case ModeRecurring:
		if len(e.Weekly) == 0 {
			return fmt.Errorf("%w: recurring mode needs a weekly schedule", ErrInvalidEntity)
		}
		for day, sched := range e.Weekly {
			if !weekdays[day] {
				return fmt.Errorf("%w: unknown weekday %q", ErrInvalidEntity, day)
			}
			for _, w := range sched.Slots {
				if w.Start >= w.End {
					return fmt.Errorf("%w: %s window %s-%s ends before it starts", ErrInvalidEntity, day, w.Start, w.End)
				}
			}
		}
	}
	return nil
}

// Location resolves the entity timezone, falling back to UTC.
func (e *Entity) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TotalTierCapacity is the capacity of one fixed-mode occurrence.
func (e *Entity) TotalTierCapacity() int {
	total := 0
	for _, t := range e.Tiers {
		total += t.Capacity
	}
	return total
}

func (e *Entity) TierByName(name string) (Tier, bool) {
	for _, t := range e.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}
