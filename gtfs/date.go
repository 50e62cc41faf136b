package gtfs

import (
	"fmt"
	"time"
)

const dateLayout = "20060102"

// DateError reports a value that is not a valid YYYYMMDD date.
type DateError struct {
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date string: %q", e.Value)
}

// Date is a calendar date without a time zone, as used by calendar.txt and
// calendar_dates.txt.
type Date struct {
	Y    uint16
	M, D uint8
}

// ParseDate parses the fixed-width GTFS date format YYYYMMDD. Out of range
// months and days are rejected.
func ParseDate(s string) (Date, error) {
	if len(s) != len(dateLayout) {
		return Date{}, &DateError{Value: s}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Date{}, &DateError{Value: s}
		}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, &DateError{Value: s}
	}
	return DateFromTime(t), nil
}

// DateFromTime returns the date of t in t's location.
func DateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Y: uint16(y), M: uint8(m), D: uint8(d)}
}

// noon anchors the date in UTC; noon keeps arithmetic clear of any day edge.
func (d Date) noon() time.Time {
	return time.Date(int(d.Y), time.Month(d.M), int(d.D), 12, 0, 0, 0, time.UTC)
}

// IsValid reports whether the date names a real day; time.Date normalises
// an impossible one into a different date.
func (d Date) IsValid() bool {
	return d.M != 0 && d.D != 0 && DateFromTime(d.noon()) == d
}

// String formats the date as YYYYMMDD. Lexicographic order of these strings
// equals chronological order.
func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Y, d.M, d.D)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Weekday() time.Weekday {
	return d.noon().Weekday()
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return DateFromTime(d.noon().AddDate(0, 0, 1))
}

// AddYears shifts the date by n years; Feb 29 falls back to Feb 28 in
// non-leap target years.
func (d Date) AddYears(n int) Date {
	out := Date{Y: uint16(int(d.Y) + n), M: d.M, D: d.D}
	if last := lastDay(out.Y, out.M); out.D > last {
		out.D = last
	}
	return out
}

// Compare returns -1, 0 or +1 as d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	a, b := d.ordinal(), o.ordinal()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

func (d Date) ordinal() uint32 {
	return uint32(d.Y)<<9 | uint32(d.M)<<5 | uint32(d.D)
}

// lastDay is the number of days in month m of year y.
func lastDay(y uint16, m uint8) uint8 {
	return uint8(time.Date(int(y), time.Month(m)+1, 0, 12, 0, 0, 0, time.UTC).Day())
}
