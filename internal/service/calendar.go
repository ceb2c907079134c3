package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// Calendar is the fixed daily grid of bookable slots.  Slot i starts at
// open + i*step in the restaurant's time zone.
type Calendar struct {
	open  time.Duration
	step  time.Duration
	count int
	loc   *time.Location
}

// NewCalendar builds the grid from "HH:MM" bounds.  last is the start of
// the final bookable slot and must sit on the step grid.
func NewCalendar(open, last string, step time.Duration, loc *time.Location) (*Calendar, error) {
	if step <= 0 {
		return nil, fmt.Errorf("slot step must be positive")
	}
	if loc == nil {
		loc = time.UTC
	}
	o, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("opening time: %w", err)
	}
	l, err := parseClock(last)
	if err != nil {
		return nil, fmt.Errorf("last slot: %w", err)
	}
	if l < o {
		return nil, fmt.Errorf("last slot %s before opening %s", last, open)
	}
	if (l-o)%step != 0 {
		return nil, fmt.Errorf("last slot %s is not on the %s grid from %s", last, step, open)
	}
	return &Calendar{open: o, step: step, count: int((l-o)/step) + 1, loc: loc}, nil
}

// DefaultCalendar is 11:00 to 20:30 every half hour in UTC.
func DefaultCalendar() *Calendar {
	c, _ := NewCalendar("11:00", "20:30", 30*time.Minute, time.UTC)
	return c
}

func parseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("%q: bad minute", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// ListSlots returns every slot of the day in order.
func (c *Calendar) ListSlots() []model.TimeSlot {
	out := make([]model.TimeSlot, c.count)
	for i := range out {
		out[i] = model.TimeSlot(i)
	}
	return out
}

// Valid reports whether s is one of the calendar's slots.
func (c *Calendar) Valid(s model.TimeSlot) bool {
	return s >= 0 && int(s) < c.count
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) offset(s model.TimeSlot) time.Duration {
	return c.open + time.Duration(s)*c.step
}

// Label renders the slot's start as "HH:MM".
func (c *Calendar) Label(s model.TimeSlot) string {
	off := c.offset(s)
	return fmt.Sprintf("%02d:%02d", int(off/time.Hour), int(off%time.Hour/time.Minute))
}

// Parse maps a "HH:MM" label back to its slot.
func (c *Calendar) Parse(label string) (model.TimeSlot, error) {
	off, err := parseClock(label)
	if err != nil {
		return 0, err
	}
	if off < c.open || (off-c.open)%c.step != 0 {
		return 0, fmt.Errorf("%q is not a bookable slot", label)
	}
	s := model.TimeSlot((off - c.open) / c.step)
	if !c.Valid(s) {
		return 0, fmt.Errorf("%q is not a bookable slot", label)
	}
	return s, nil
}

// Start is the wall-clock instant the slot begins on date.
func (c *Calendar) Start(date civil.Date, s model.TimeSlot) time.Time {
	off := c.offset(s)
	return time.Date(date.Year, date.Month, date.Day,
		int(off/time.Hour), int(off%time.Hour/time.Minute), 0, 0, c.loc)
}

// IsPast reports whether the slot on date started strictly before now.
func (c *Calendar) IsPast(date civil.Date, s model.TimeSlot, now time.Time) bool {
	return c.Start(date, s).Before(now)
}

// Today is the restaurant's calendar date at now.
func (c *Calendar) Today(now time.Time) civil.Date {
	return civil.DateOf(now.In(c.loc))
}
