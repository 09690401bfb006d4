package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	SlotTimeLayout = "15:04"
	LocalISOLayout = "2006-01-02T15:04:05"
	localISONoSecs = "2006-01-02T15:04"
	localISOMillis = "2006-01-02T15:04:05.000"
)

// Date is a calendar date without a time-of-day component. The zero value means "unset".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateIn returns the calendar date of t as seen in loc. A nil loc keeps t's own location.
func DateIn(t time.Time, loc *time.Location) Date {
	if loc == nil {
		return DateOf(t)
	}
	return DateOf(t.In(loc))
}

var naiveLocation atomic.Pointer[time.Location]

// SetNaiveLocation sets the zone used when decoding timestamps without an offset.
// nil restores time.Local.
func SetNaiveLocation(loc *time.Location) {
	naiveLocation.Store(loc)
}

// NaiveLocation returns the zone for offset-less timestamps, time.Local by default.
func NaiveLocation() *time.Location {
	if loc := naiveLocation.Load(); loc != nil {
		return loc
	}
	return time.Local
}

// NewDate normalizes out-of-range values the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d Date) Equal(other Date) bool {
	return d == other
}

func (d Date) Before(other Date) bool {
	return d.In(time.UTC).Before(other.In(time.UTC))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp is an instant as the backend sends it: RFC 3339, or naive local ISO without offset.
type Timestamp struct {
	time.Time
}

// ParseTimestamp accepts RFC 3339 and naive local ISO strings. Naive values are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{LocalISOLayout, localISOMillis, localISONoSecs} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s, NaiveLocation())
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ValidSlotTime reports whether s is a zero-padded 24h "HH:MM" value.
func ValidSlotTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse(SlotTimeLayout, s)
	return err == nil
}

// NaiveLocalISO formats the date and "HH:MM" slot as a timezone-less ISO timestamp.
func NaiveLocalISO(d Date, slot string) (string, error) {
	t, err := time.Parse(SlotTimeLayout, slot)
	if err != nil {
		return "", fmt.Errorf("invalid slot time %q: %w", slot, err)
	}
	at := time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, time.UTC)
	return at.Format(LocalISOLayout), nil
}
