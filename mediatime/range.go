package mediatime

import "fmt"

// Range is a half-open interval [Start, Start+Duration) on a timeline.
type Range struct {
	Start    Time `json:"start" yaml:"start"`
	Duration Time `json:"duration" yaml:"duration"`
}

// NewRange returns the range starting at start lasting duration.
func NewRange(start, duration Time) Range {
	return Range{Start: start, Duration: duration}
}

// RangeFromEnds returns the range [start, end).
func RangeFromEnds(start, end Time) Range {
	return Range{Start: start, Duration: end.Sub(start)}
}

// End returns Start + Duration.
func (r Range) End() Time {
	return r.Start.Add(r.Duration)
}

// IsValid reports whether both times are valid and the duration is not
// negative.
func (r Range) IsValid() bool {
	return r.Start.IsValid() && r.Duration.IsValid() && r.Duration.Sign() >= 0
}

// IsEmpty reports whether the range has zero duration.
func (r Range) IsEmpty() bool {
	return r.Duration.IsZero()
}

// Contains reports whether t lies in [Start, End).
func (r Range) Contains(t Time) bool {
	return !t.Before(r.Start) && t.Before(r.End())
}

// ContainsRange reports whether o lies entirely within r.
func (r Range) ContainsRange(o Range) bool {
	return !o.Start.Before(r.Start) && !o.End().After(r.End())
}

// Overlaps reports whether r and o share any instant.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End()) && o.Start.Before(r.End())
}

// Shift returns r moved by d.
func (r Range) Shift(d Time) Range {
	return Range{Start: r.Start.Add(d), Duration: r.Duration}
}

// Equal reports whether both ranges cover the same interval.
func (r Range) Equal(o Range) bool {
	return r.Start.Equal(o.Start) && r.Duration.Equal(o.Duration)
}

// String returns "start - end" in debug form, e.g. "006/30 - 011/30".
func (r Range) String() string {
	if !r.Start.IsValid() || !r.Duration.IsValid() {
		return fmt.Sprintf("%s + %s (invalid)", r.Start, r.Duration)
	}
	return fmt.Sprintf("%s - %s", r.Start, r.End())
}
