package planner

import (
	"fmt"

	"compositor/mediatime"
	"compositor/models"
)

// SourceInfo is the minimal source metadata needed for bounds checking.
//
// This interface decouples the planner from specific probing
// implementations; ffprobe.ProbeResult satisfies it.
type SourceInfo interface {
	// GetDuration returns the exact duration of the source clip.
	GetDuration() (mediatime.Time, error)
}

// BoundsError reports the first segment whose source range runs past the
// end of the source clip.
type BoundsError struct {
	Index    int
	Source   mediatime.Range
	Duration mediatime.Time
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("segment %d: source range %s exceeds clip duration %s",
		e.Index, e.Source, e.Duration)
}

// ValidatePlan checks a plan for ordering and overlap problems.
//
// Every segment must validate on its own, indices must run 0..N-1, and
// target ranges must be strictly increasing without overlapping.
func ValidatePlan(plan []models.Segment) error {
	if len(plan) == 0 {
		return fmt.Errorf("plan is empty")
	}

	for i := range plan {
		if err := plan[i].Validate(); err != nil {
			return fmt.Errorf("segment %d is invalid: %w", i, err)
		}
		if plan[i].Index != i {
			return fmt.Errorf("segment %d has incorrect index: expected %d, got %d",
				i, i, plan[i].Index)
		}
	}

	for i := 0; i < len(plan)-1; i++ {
		cur, next := plan[i].Target, plan[i+1].Target

		if !next.Start.After(cur.Start) {
			return fmt.Errorf("segments %d and %d are out of order: target %s then %s",
				i, i+1, cur, next)
		}

		if cur.Overlaps(next) {
			return fmt.Errorf("segments %d and %d overlap: target %s and %s",
				i, i+1, cur, next)
		}
	}

	return nil
}

// CheckSourceBounds returns a *BoundsError for the first segment whose
// source range is not inside [0, duration). A range ending exactly at the
// clip end is in bounds.
func CheckSourceBounds(plan []models.Segment, duration mediatime.Time) error {
	clip := mediatime.NewRange(mediatime.Zero, duration)
	for _, seg := range plan {
		if !clip.ContainsRange(seg.Source) {
			return &BoundsError{Index: seg.Index, Source: seg.Source, Duration: duration}
		}
	}
	return nil
}

// CheckSource is CheckSourceBounds against a probed source.
func CheckSource(plan []models.Segment, info SourceInfo) error {
	if info == nil {
		return fmt.Errorf("source info cannot be nil")
	}
	duration, err := info.GetDuration()
	if err != nil {
		return fmt.Errorf("failed to get duration: %w", err)
	}
	return CheckSourceBounds(plan, duration)
}
