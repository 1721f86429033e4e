package core

import (
	"encoding/json"
	"errors"
	"time"
)

// Beijing is the single fixed zone the ledger operates in. Record dates and
// the "today" used by the calendar are wall-clock days in this zone; the
// store itself keeps timestamps in UTC.
var Beijing = time.FixedZone("UTC+8", 8*60*60)

const dateLayout = "2006-01-02"

// Date is one calendar day, the unique key of a DailyRecord.
type Date struct {
	time.Time
}

var ErrInvalidDate = errors.New("invalid date")

// NewDate builds a Date from year, month (1-12) and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the ISO YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current day in the ledger zone.
func Today() Date {
	now := time.Now().In(Beijing)
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

// Month returns the calendar month, 1-12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// AddDays returns the date shifted by n days (negative n goes back).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

func (d Date) Equal(other Date) bool { return d.Time.Equal(other.Time) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Tolerate timestamps from clients that serialize full instants.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ShiftedUTC converts a millisecond epoch carrying a UTC+8 wall-clock
// reading into the equivalent UTC instant. Clients send local timestamps;
// the store compares against UTC creation times, so the 8 hour offset is
// subtracted here and nowhere else.
func ShiftedUTC(ms int64) time.Time {
	return time.UnixMilli(ms - 8*60*60*1000).UTC()
}

// WallClockMillis is the inverse of ShiftedUTC: it renders an instant as
// the millisecond value a UTC+8 client would put on the wire.
func WallClockMillis(t time.Time) int64 {
	return t.UnixMilli() + 8*60*60*1000
}
