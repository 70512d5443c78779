// Package clock supplies "now" in the facility's local time zone.
//
// Every buffer and calendar comparison in the booking engine goes through
// this package. The canonical representation of a calendar day is the
// facility-zone date string, never a UTC-normalized instant: converting a
// local date through UTC can shift the calendar day near midnight.
package clock

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-date format used in the store.
const DateLayout = "2006-01-02"

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

// realClock implements Clock using the system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now.
func System() Clock { return realClock{} }

// Facility is a Clock pinned to the facility's time zone.
type Facility struct {
	clock Clock
	loc   *time.Location
}

// NewFacility wires a facility clock for the given IANA zone name.
func NewFacility(clock Clock, zone string) (*Facility, error) {
	if clock == nil {
		clock = realClock{}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading facility timezone %q: %w", zone, err)
	}
	return &Facility{clock: clock, loc: loc}, nil
}

// Now returns the current instant in the facility zone.
func (f *Facility) Now() time.Time {
	return f.clock.Now().In(f.loc)
}

// Location returns the facility zone.
func (f *Facility) Location() *time.Location { return f.loc }

// Today returns the facility-zone calendar date as DateLayout.
func (f *Facility) Today() string {
	return f.Now().Format(DateLayout)
}

// MinuteOfDay returns minutes elapsed since facility-zone midnight.
func (f *Facility) MinuteOfDay() int {
	now := f.Now()
	return now.Hour()*60 + now.Minute()
}

// ParseDate parses a DateLayout date in the facility zone.
func (f *Facility) ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, f.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// SlotStart returns the facility-zone instant a slot begins.
func (f *Facility) SlotStart(date string, startHour int) (time.Time, error) {
	day, err := f.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(startHour) * time.Hour), nil
}
