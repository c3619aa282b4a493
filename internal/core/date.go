package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the day/month/year form used by expense records (single-digit day and month).
const DateLayout = "2/1/2006"

// KeyLayout is the zero-padded form used wherever dates must order chronologically as text.
const KeyLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar day with no time of day and no zone.
// It is stored as midnight UTC so that day arithmetic never crosses a DST shift.
type Date struct {
	t time.Time
}

// NewDate returns the normalized date for year, month, day (overflowing values roll over).
func NewDate(year int, month time.Month, dayOfMonth int) Date {
	return Date{t: time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// Epoch is the date malformed records fall back to when ordering.
func Epoch() Date {
	return NewDate(1970, time.January, 1)
}

// ParseDate parses the d/M/yyyy text form. Zero-padded day and month are accepted.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q want format d/M/yyyy: %v", ErrInvalidDate, s, err)
	}
	return DateOf(t), nil
}

// ParseDateOrEpoch parses s and falls back to Epoch for unparsable input.
func ParseDateOrEpoch(s string) (Date, bool) {
	d, err := ParseDate(s)
	if err != nil {
		return Epoch(), false
	}
	return d, true
}

func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }
func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Before(x Date) bool { return d.t.Before(x.t) }
func (d Date) After(x Date) bool { return d.t.After(x.t) }
func (d Date) Equal(x Date) bool { return d.t.Equal(x.t) }
func (d Date) AddDays(n int) Date { return NewDate(d.t.Year(), d.t.Month(), d.t.Day()+n) }
func (d Date) Compare(x Date) int { return d.t.Compare(x.t) }

// String renders the canonical d/M/yyyy form.
func (d Date) String() string { return d.t.Format(DateLayout) }

// Key renders yyyy-MM-dd, whose lexical order is chronological.
func (d Date) Key() string { return d.t.Format(KeyLayout) }

// DaysUntil returns the number of whole calendar days from d to x (negative when x is earlier).
func (d Date) DaysUntil(x Date) int {
	return int((x.t.Unix() - d.t.Unix()) / secondsPerDay)
}
