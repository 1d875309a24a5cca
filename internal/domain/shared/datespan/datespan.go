package datespan

import (
	"errors"
	"time"
)

var (
	ErrInvalidSpan = errors.New("datespan: end date must not be before start date")
)

// DateSpan represents an inclusive calendar-date interval [start, end].
// Both bounds are normalized to UTC midnight; time-of-day is ignored.
type DateSpan struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateSpan, error) {
	ds := DateSpan{Start: DateOf(start), End: DateOf(end)}
	if err := ds.Validate(); err != nil {
		return DateSpan{}, err
	}
	return ds, nil
}

// Must builds a span and panics on invalid input; useful in tests and fixtures.
func Must(start, end time.Time) DateSpan {
	ds, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return ds
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (ds DateSpan) Validate() error {
	if ds.Start.IsZero() || ds.End.IsZero() {
		return ErrInvalidSpan
	}
	if ds.End.Before(ds.Start) {
		return ErrInvalidSpan
	}
	return nil
}

// Days returns the number of calendar days covered, counting both bounds.
func (ds DateSpan) Days() int {
	return int(ds.End.Sub(ds.Start).Hours()/24) + 1
}

// Overlaps reports whether two inclusive spans share at least one date:
// a.start <= b.end AND a.end >= b.start.
func (ds DateSpan) Overlaps(other DateSpan) bool {
	return !ds.Start.After(other.End) && !ds.End.Before(other.Start)
}

// ContainsDate reports whether the given date falls inside the span.
func (ds DateSpan) ContainsDate(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(ds.Start) && !d.After(ds.End)
}

// ClampDays shortens the span so it covers at most maxDays dates from start.
func (ds DateSpan) ClampDays(maxDays int) DateSpan {
	if maxDays <= 0 || ds.Days() <= maxDays {
		return ds
	}
	return DateSpan{Start: ds.Start, End: ds.Start.AddDate(0, 0, maxDays-1)}
}
