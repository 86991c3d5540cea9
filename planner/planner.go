// Package planner computes segment plans: the ordered (source range, target
// range) pairs that slice a source clip into a composition timeline.
package planner

import (
	"fmt"
	"strings"

	"compositor/mediatime"
	"compositor/models"
)

const (
	// DefaultSegmentCount is the number of segments when none is set.
	DefaultSegmentCount = 11

	// MaxSegmentCount bounds the plan size.
	MaxSegmentCount = 100000
)

var (
	// DefaultSegmentDuration is five frames at 30 fps.
	DefaultSegmentDuration = mediatime.MustParse("5/30")

	// DefaultGap is one frame at 30 fps.
	DefaultGap = mediatime.MustParse("1/30")
)

// Planner lays out N segments of duration D separated by a gap.
//
// Target range i starts at i*(D+TargetGap). The source cursor starts at
// SourceStart and advances by D+SourceGap after every segment. Both gaps
// default to the shared gap G; overriding one of them keeps the other at G.
type Planner struct {
	segmentDuration mediatime.Time
	count           int
	gap             mediatime.Time
	sourceGap       *mediatime.Time
	targetGap       *mediatime.Time
	sourceStart     mediatime.Time
}

// NewPlanner creates a Planner with the default 5/30s x 11 layout and a
// 1/30s gap.
func NewPlanner() *Planner {
	return &Planner{
		segmentDuration: DefaultSegmentDuration,
		count:           DefaultSegmentCount,
		gap:             DefaultGap,
		sourceStart:     mediatime.New(0, DefaultSegmentDuration.Timescale),
	}
}

// SetSegmentDuration sets D.
func (p *Planner) SetSegmentDuration(d mediatime.Time) *Planner {
	p.segmentDuration = d
	return p
}

// SetCount sets N.
func (p *Planner) SetCount(n int) *Planner {
	p.count = n
	return p
}

// SetGap sets the shared gap G.
func (p *Planner) SetGap(g mediatime.Time) *Planner {
	p.gap = g
	return p
}

// SetSourceGap overrides the gap applied to the source cursor.
func (p *Planner) SetSourceGap(g mediatime.Time) *Planner {
	p.sourceGap = &g
	return p
}

// SetTargetGap overrides the gap applied between target ranges.
// A zero target gap with a non-zero source gap lays segments back to back
// on the timeline while skipping source time between them.
func (p *Planner) SetTargetGap(g mediatime.Time) *Planner {
	p.targetGap = &g
	return p
}

// SetSourceStart sets where the source cursor begins.
func (p *Planner) SetSourceStart(t mediatime.Time) *Planner {
	p.sourceStart = t
	return p
}

// SourceGap returns the effective source gap.
func (p *Planner) SourceGap() mediatime.Time {
	if p.sourceGap != nil {
		return *p.sourceGap
	}
	return p.gap
}

// TargetGap returns the effective target gap.
func (p *Planner) TargetGap() mediatime.Time {
	if p.targetGap != nil {
		return *p.targetGap
	}
	return p.gap
}

// Plan computes the segment plan.
//
// Example (D=5/30, G=1/30, N=11):
//
//	segment 0: source 000/30 - 005/30 | target 000/30 - 005/30
//	segment 1: source 006/30 - 011/30 | target 006/30 - 011/30
//	...
//	segment 10: source 060/30 - 065/30 | target 060/30 - 065/30
func (p *Planner) Plan() ([]models.Segment, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	sourceStride, err := p.segmentDuration.AddChecked(p.SourceGap())
	if err != nil {
		return nil, fmt.Errorf("source stride %s + %s: %w", p.segmentDuration, p.SourceGap(), err)
	}
	targetStride, err := p.segmentDuration.AddChecked(p.TargetGap())
	if err != nil {
		return nil, fmt.Errorf("target stride %s + %s: %w", p.segmentDuration, p.TargetGap(), err)
	}

	plan := make([]models.Segment, 0, p.count)
	cursor := p.sourceStart
	if c, ok := cursor.ConvertScale(p.segmentDuration.Timescale); ok {
		cursor = c
	}

	for i := 0; i < p.count; i++ {
		targetStart, err := targetStride.MulChecked(int64(i))
		if err != nil {
			return nil, fmt.Errorf("segment %d target start: %w", i, err)
		}
		seg := models.Segment{
			Index:  i,
			Source: mediatime.NewRange(cursor, p.segmentDuration),
			Target: mediatime.NewRange(targetStart, p.segmentDuration),
		}

		if _, err := cursor.AddChecked(p.segmentDuration); err != nil {
			return nil, fmt.Errorf("segment %d source end: %w", i, err)
		}
		if _, err := targetStart.AddChecked(p.segmentDuration); err != nil {
			return nil, fmt.Errorf("segment %d target end: %w", i, err)
		}
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid segment %d: %w", i, err)
		}

		plan = append(plan, seg)
		if i+1 == p.count {
			break
		}
		if cursor, err = cursor.AddChecked(sourceStride); err != nil {
			return nil, fmt.Errorf("segment %d source cursor: %w", i+1, err)
		}
	}

	return plan, nil
}

func (p *Planner) validate() error {
	var errs []string

	if !p.segmentDuration.IsValid() {
		errs = append(errs, "segment duration has an invalid timescale")
	} else if p.segmentDuration.Sign() <= 0 {
		errs = append(errs, "segment duration must be positive")
	}

	if p.count <= 0 {
		errs = append(errs, "segment count must be positive")
	} else if p.count > MaxSegmentCount {
		errs = append(errs, fmt.Sprintf("segment count cannot exceed %d", MaxSegmentCount))
	}

	for _, g := range []struct {
		name string
		t    mediatime.Time
	}{
		{"gap", p.gap},
		{"source gap", p.SourceGap()},
		{"target gap", p.TargetGap()},
		{"source start", p.sourceStart},
	} {
		if !g.t.IsValid() {
			errs = append(errs, g.name+" has an invalid timescale")
		} else if g.t.Sign() < 0 {
			errs = append(errs, g.name+" cannot be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid plan parameters: %s", strings.Join(errs, ", "))
	}
	return nil
}

// TotalDuration returns the end of the last target range, or zero for an
// empty plan.
func TotalDuration(plan []models.Segment) mediatime.Time {
	if len(plan) == 0 {
		return mediatime.Zero
	}
	return plan[len(plan)-1].Target.End()
}

// SourceExtent returns the end of the last source range, or zero for an
// empty plan.
func SourceExtent(plan []models.Segment) mediatime.Time {
	end := mediatime.Zero
	for _, seg := range plan {
		end = mediatime.Max(end, seg.Source.End())
	}
	return end
}
