// Package clock provides the local-time source used for slot days and the
// same-day availability cut-off.
package clock

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now() }

// Fixed always reports the same instant; used by tests.
type Fixed time.Time

// Now implements Clock.
func (f Fixed) Now() time.Time { return time.Time(f) }

// LoadLocation resolves an IANA zone name, falling back to a fixed +05:30 offset
// for Asia/Kolkata when the zone database is unavailable.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == "Asia/Kolkata" {
		return time.FixedZone("IST", 5*60*60+30*60), nil
	}
	return nil, fmt.Errorf("load location %q: %w", name, err)
}

// DateLayout is the calendar-date format accepted on the wire.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as local midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return d, nil
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// StorageDate maps a local calendar day onto the UTC-midnight instant stored in
// booking rows, so persisted dates compare equal to query day-strings.
func StorageDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
