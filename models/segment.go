// Package models provides core data structures for the compositor.
package models

import (
	"fmt"

	"compositor/mediatime"
)

// Segment maps one source range of a clip onto one target range of a
// composition.
//
// Segments are produced by the planner in a fixed order and consumed by the
// composition builder, which inserts Source at Target.Start. Source and
// Target always have the same duration.
//
// Use NewSegment to create a validated Segment instance.
type Segment struct {
	Index  int             `json:"index"`
	Source mediatime.Range `json:"source"`
	Target mediatime.Range `json:"target"`
}

// NewSegment creates a new Segment with validation.
//
// Example:
//
//	d := mediatime.New(5, 30)
//	seg, err := models.NewSegment(1,
//	    mediatime.NewRange(mediatime.New(6, 30), d),
//	    mediatime.NewRange(mediatime.New(6, 30), d))
func NewSegment(index int, source, target mediatime.Range) (*Segment, error) {
	s := &Segment{
		Index:  index,
		Source: source,
		Target: target,
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segment: %w", err)
	}
	return s, nil
}

// Validate checks if the Segment has valid data.
//
// Returns an error if:
//   - Index is negative
//   - either range has an invalid timescale
//   - either range starts before zero
//   - the source duration is not positive
//   - source and target durations differ
func (s *Segment) Validate() error {
	if s.Index < 0 {
		return fmt.Errorf("index cannot be negative")
	}

	if !s.Source.IsValid() {
		return fmt.Errorf("source range %v is invalid", s.Source)
	}
	if !s.Target.IsValid() {
		return fmt.Errorf("target range %v is invalid", s.Target)
	}

	if s.Source.Start.Sign() < 0 {
		return fmt.Errorf("source start must not be negative")
	}
	if s.Target.Start.Sign() < 0 {
		return fmt.Errorf("target start must not be negative")
	}

	if s.Source.Duration.Sign() <= 0 {
		return fmt.Errorf("duration must be greater than 0")
	}

	if !s.Source.Duration.Equal(s.Target.Duration) {
		return fmt.Errorf("source duration %v differs from target duration %v",
			s.Source.Duration, s.Target.Duration)
	}

	return nil
}

// String returns the debug form "source 000/30 - 005/30 | target 000/30 - 005/30".
func (s *Segment) String() string {
	return fmt.Sprintf("source %s | target %s", s.Source, s.Target)
}
