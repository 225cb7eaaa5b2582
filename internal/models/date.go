// internal/models/date.go
package models

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// WireDateLayout is the day-first text form written back to the store.
const WireDateLayout = "02/01/2006 15:04:05"

// dayFirstLayouts are tried in order; day-first forms come before ISO so
// that "03/04/2024" is the 3rd of April.
var dayFirstLayouts = []string{
	WireDateLayout,
	"02/01/2006 15:04",
	"02/01/2006",
	"2/1/2006 15:04:05",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var wireLocation atomic.Pointer[time.Location]

// SetLocation sets the zone wall-clock store dates are read and written in.
// nil resets it to UTC.
func SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	wireLocation.Store(loc)
}

// Location is the zone set by SetLocation, UTC by default.
func Location() *time.Location {
	if loc := wireLocation.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// Date is an optional calendar timestamp. The zero value is absent.
type Date struct {
	Time  time.Time
	Valid bool
}

// NewDate wraps t as a present date.
func NewDate(t time.Time) Date {
	return Date{Time: t, Valid: true}
}

// ParseDate parses s with the day-first convention. Failure is soft: an
// unparseable or empty value yields an absent Date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	loc := Location()
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Date{Time: t, Valid: true}
		}
	}
	return Date{}
}

// Wire renders the date for the store; absent dates become "".
func (d Date) Wire() string {
	if !d.Valid {
		return ""
	}
	return d.Time.In(Location()).Format(WireDateLayout)
}

// Label renders the date for display, or fallback when absent.
func (d Date) Label(fallback string) string {
	if !d.Valid {
		return fallback
	}
	return d.Time.In(Location()).Format("02/01/2006")
}

// Before reports whether d is present and strictly before t.
func (d Date) Before(t time.Time) bool {
	return d.Valid && d.Time.Before(t)
}

// After reports whether d is present and strictly after t.
func (d Date) After(t time.Time) bool {
	return d.Valid && d.Time.After(t)
}

// Within reports from < d <= to. Absent dates never satisfy it.
func (d Date) Within(from, to time.Time) bool {
	return d.Valid && d.Time.After(from) && !d.Time.After(to)
}

// AddDays shifts a present date; absent stays absent.
func (d Date) AddDays(n int) Date {
	if !d.Valid {
		return d
	}
	return Date{Time: d.Time.AddDate(0, 0, n), Valid: true}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*d = Date{}
		return nil
	}
	*d = ParseDate(*s)
	return nil
}

// DaysUntil returns the calendar-day difference between d and ref, ignoring
// the time of day. Both days are taken in ref's zone. Negative means d is in
// the past. The bool is false when d is absent.
func DaysUntil(d Date, ref time.Time) (int, bool) {
	if !d.Valid {
		return 0, false
	}
	t := d.Time.In(ref.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(refDay).Hours() / 24), true
}
