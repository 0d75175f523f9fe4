package domain

import (
	"fmt"
	"strings"
	"time"

	"covidanalyzer/pkg/serrors"
)

// DateLayout is the layout accepted for caller-supplied dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time zone. The zero value is not a valid date.
type Date struct {
	t time.Time // always midnight UTC
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate strictly parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, serrors.Wrap(serrors.ErrValidation, err, "invalid date %q, expected YYYY-MM-DD", s)
	}

	return Date{t: t}, nil
}

// sourceDateLayouts are tried in order when reading dates out of upstream data.
var sourceDateLayouts = []string{ //nolint: gochecknoglobals
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseSourceDate parses the date formats found in upstream payloads and
// keeps the calendar date as written, ignoring any offset.
func ParseSourceDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sourceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}

	return Date{}, fmt.Errorf("unsupported date: %q", s)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same calendar date.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// String formats d as YYYY-MM-DD.
func (d Date) String() string { return d.t.Format(DateLayout) }

// Compact formats d as YYYYMMDD.
func (d Date) Compact() string { return d.t.Format("20060102") }

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed

	return nil
}

// DateWindow is an inclusive range of calendar dates.
type DateWindow struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewDateWindow validates start <= end and returns the window.
func NewDateWindow(start, end Date) (DateWindow, error) {
	if start.IsZero() || end.IsZero() {
		return DateWindow{}, serrors.With(serrors.ErrValidation, "date window bounds must be set")
	}
	if start.After(end) {
		return DateWindow{}, serrors.With(serrors.ErrValidation,
			"date_start %s is greater than date_end %s, the end date must be after the start date", start, end)
	}

	return DateWindow{Start: start, End: end}, nil
}

// ParseDateWindow builds a window from optional YYYY-MM-DD strings. Each empty
// bound defaults independently to today.
func ParseDateWindow(start, end string, today Date) (DateWindow, error) {
	s, e := today, today
	var err error
	if strings.TrimSpace(start) != "" {
		if s, err = ParseDate(start); err != nil {
			return DateWindow{}, serrors.Wrap(serrors.ErrValidation, err, "invalid date_start")
		}
	}
	if strings.TrimSpace(end) != "" {
		if e, err = ParseDate(end); err != nil {
			return DateWindow{}, serrors.Wrap(serrors.ErrValidation, err, "invalid date_end")
		}
	}

	return NewDateWindow(s, e)
}

// Contains reports whether d falls within the window, bounds included.
func (w DateWindow) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// SingleDay reports whether the window spans exactly one date.
func (w DateWindow) SingleDay() bool { return w.Start.Equal(w.End) }

// String formats the window as "start" or "start -> end".
func (w DateWindow) String() string {
	if w.SingleDay() {
		return w.Start.String()
	}

	return w.Start.String() + " -> " + w.End.String()
}
