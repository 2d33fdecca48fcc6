package allotment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const wallClockLayout = "2006-01-02 15:04"

// ErrUnparseableTime is returned when a date or HH:MM value cannot be read.
var ErrUnparseableTime = errors.New("unparseable date or time")

// Instant is a point in time in milliseconds since the Unix epoch.
type Instant int64

// ParseInstant combines a YYYY-MM-DD date and an HH:MM wall clock in loc.
func ParseInstant(date, hhmm string, loc *time.Location) (Instant, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(wallClockLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(hhmm), loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %q %q", ErrUnparseableTime, date, hhmm)
	}
	return Instant(t.UnixMilli()), nil
}

// Time converts the instant back to a time.Time in UTC.
func (i Instant) Time() time.Time {
	return time.UnixMilli(int64(i)).UTC()
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Instant
	End   Instant
}

// ParseInterval reads start and end on the same date.
func ParseInterval(date, start, end string, loc *time.Location) (Interval, error) {
	s, err := ParseInstant(date, start, loc)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseInstant(date, end, loc)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}

// Valid reports whether the interval has a positive length.
func (iv Interval) Valid() bool {
	return iv.Start < iv.End
}

// DurationMinutes is never negative; inverted intervals yield 0.
func (iv Interval) DurationMinutes() int {
	if iv.End <= iv.Start {
		return 0
	}
	return int((iv.End - iv.Start) / Instant(time.Minute/time.Millisecond))
}

// Overlaps applies the overlap predicate against another interval.
func (iv Interval) Overlaps(other Interval, gapMinutes int) bool {
	return Overlaps(iv.Start, iv.End, other.Start, other.End, gapMinutes)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) collide once
// each end is pushed out by gapMinutes. Touching endpoints do not collide
// with a zero gap. Negative gaps count as zero.
func Overlaps(aStart, aEnd, bStart, bEnd Instant, gapMinutes int) bool {
	if gapMinutes < 0 {
		gapMinutes = 0
	}
	gap := Instant(gapMinutes) * Instant(time.Minute/time.Millisecond)
	if aEnd+gap <= bStart || bEnd+gap <= aStart {
		return false
	}
	return true
}
