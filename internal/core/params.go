package core

import (
	"fmt"
	"strings"
)

const (
	SortByAmount SortKey = "amount"
	SortByDate   SortKey = "date"
	SortByName   SortKey = "name"

	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

const (
	Today     TimeWindow = "today"
	Yesterday TimeWindow = "yesterday"
	Week      TimeWindow = "week"
	Month     TimeWindow = "month"
	Year      TimeWindow = "year"
	All       TimeWindow = "all"
)

type (
	SortKey    string
	Direction  string
	TimeWindow string

	// SortOrder pairs a key with a direction, e.g. amount:asc.
	SortOrder struct {
		Key       SortKey
		Direction Direction
	}

	// AmountBounds holds optional inclusive limits; nil means unbounded on that side.
	AmountBounds struct {
		Min *float64
		Max *float64
	}
)

// TimeWindows lists the selectable windows in display order.
var TimeWindows = []TimeWindow{Today, Yesterday, Week, Month, Year, All}

func (o SortOrder) String() string {
	return string(o.Key) + ":" + string(o.Direction)
}

// Descending reports whether the order is reversed.
func (o SortOrder) Descending() bool {
	return o.Direction == Descending
}

// ParseSortOrder parses "key" or "key:dir"; the direction defaults to ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	key, dir, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	o := SortOrder{Key: SortKey(key), Direction: Direction(dir)}
	if o.Direction == "" {
		o.Direction = Ascending
	}
	switch o.Key {
	case SortByAmount, SortByDate, SortByName:
	default:
		return SortOrder{}, fmt.Errorf("invalid sort key %q: must be one of amount, date, name", key)
	}
	switch o.Direction {
	case Ascending, Descending:
	default:
		return SortOrder{}, fmt.Errorf("invalid sort direction %q: must be asc or desc", dir)
	}
	return o, nil
}

// ParseTimeWindow parses a window name; an empty string selects Today.
func ParseTimeWindow(s string) (TimeWindow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Today, nil
	}
	for _, w := range TimeWindows {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("invalid time window %q: must be one of %v", s, TimeWindows)
}

// Contains reports whether a record diffDays before the reference day falls in the window.
func (w TimeWindow) Contains(diffDays int) bool {
	switch w {
	case Today:
		return diffDays == 0
	case Yesterday:
		return diffDays == 1
	case Week:
		return diffDays >= 0 && diffDays <= 7
	case Month:
		return diffDays >= 0 && diffDays <= 30
	case Year:
		return diffDays >= 0 && diffDays <= 365
	case All:
		return true
	default:
		return false
	}
}

// IsZero reports whether neither side is bounded.
func (b AmountBounds) IsZero() bool {
	return b.Min == nil && b.Max == nil
}

// Admits reports whether amount lies within the inclusive bounds.
func (b AmountBounds) Admits(amount float64) bool {
	if b.Min != nil && amount < *b.Min {
		return false
	}
	if b.Max != nil && amount > *b.Max {
		return false
	}
	return true
}
