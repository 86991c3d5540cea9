package planner

import (
	"errors"
	"strings"
	"testing"

	"compositor/mediatime"
	"compositor/models"
)

func TestPlanDefaults(t *testing.T) {
	plan, err := NewPlanner().Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}

	if len(plan) != DefaultSegmentCount {
		t.Fatalf("len(plan) = %d; want %d", len(plan), DefaultSegmentCount)
	}

	if err := ValidatePlan(plan); err != nil {
		t.Errorf("ValidatePlan() error: %v", err)
	}

	tests := []struct {
		index  int
		source string
		target string
	}{
		{0, "000/30 - 005/30", "000/30 - 005/30"},
		{1, "006/30 - 011/30", "006/30 - 011/30"},
		{2, "012/30 - 017/30", "012/30 - 017/30"},
		{10, "060/30 - 065/30", "060/30 - 065/30"},
	}

	for _, tt := range tests {
		seg := plan[tt.index]
		if got := seg.Source.String(); got != tt.source {
			t.Errorf("segment %d source = %s; want %s", tt.index, got, tt.source)
		}
		if got := seg.Target.String(); got != tt.target {
			t.Errorf("segment %d target = %s; want %s", tt.index, got, tt.target)
		}
	}

	if got := TotalDuration(plan); !got.Equal(mediatime.New(65, 30)) {
		t.Errorf("TotalDuration() = %v; want 065/30", got)
	}
}

func TestPlanSpacing(t *testing.T) {
	d := mediatime.New(5, 30)
	g := mediatime.New(1, 30)

	plan, err := NewPlanner().SetSegmentDuration(d).SetGap(g).SetCount(25).Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}

	stride := d.Add(g)
	for i, seg := range plan {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
		if !seg.Source.Duration.Equal(d) || !seg.Target.Duration.Equal(d) {
			t.Errorf("segment %d durations = %v, %v; want %v", i,
				seg.Source.Duration, seg.Target.Duration, d)
		}
		if !seg.Target.Start.Equal(stride.Mul(int64(i))) {
			t.Errorf("segment %d target start = %v; want %v", i,
				seg.Target.Start, stride.Mul(int64(i)))
		}
		if i > 0 {
			spacing := seg.Target.Start.Sub(plan[i-1].Target.Start)
			if !spacing.Equal(stride) {
				t.Errorf("segment %d spacing = %v; want %v", i, spacing, stride)
			}
		}
	}
}

func TestPlanSeparateGaps(t *testing.T) {
	plan, err := NewPlanner().
		SetTargetGap(mediatime.Zero).
		SetCount(3).
		Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}

	want := []struct {
		source string
		target string
	}{
		{"000/30 - 005/30", "000/30 - 005/30"},
		{"006/30 - 011/30", "005/30 - 010/30"},
		{"012/30 - 017/30", "010/30 - 015/30"},
	}

	for i, w := range want {
		if got := plan[i].Source.String(); got != w.source {
			t.Errorf("segment %d source = %s; want %s", i, got, w.source)
		}
		if got := plan[i].Target.String(); got != w.target {
			t.Errorf("segment %d target = %s; want %s", i, got, w.target)
		}
	}

	if err := ValidatePlan(plan); err != nil {
		t.Errorf("back-to-back targets should validate: %v", err)
	}
}

func TestPlanSourceStart(t *testing.T) {
	plan, err := NewPlanner().SetSourceStart(mediatime.New(1, 1)).SetCount(2).Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}

	if !plan[0].Source.Start.Equal(mediatime.New(30, 30)) {
		t.Errorf("first source start = %v; want 1s", plan[0].Source.Start)
	}
	if !plan[1].Source.Start.Equal(mediatime.New(36, 30)) {
		t.Errorf("second source start = %v; want 36/30", plan[1].Source.Start)
	}
	if !plan[0].Target.Start.IsZero() {
		t.Errorf("first target start = %v; want 0", plan[0].Target.Start)
	}
}

func TestPlanSegmentTimescale(t *testing.T) {
	plan, err := NewPlanner().SetSourceStart(mediatime.Zero).SetTargetGap(mediatime.Zero).SetCount(2).Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	for _, seg := range plan {
		if seg.Source.Start.Timescale != 30 || seg.Target.Start.Timescale != 30 {
			t.Errorf("segment %d = %s; want timescale 30 throughout", seg.Index, seg.String())
		}
	}
	if got := plan[0].String(); got != "source 000/30 - 005/30 | target 000/30 - 005/30" {
		t.Errorf("segment 0 = %q", got)
	}
}

func TestPlanOverflow(t *testing.T) {
	tests := []struct {
		name    string
		planner *Planner
	}{
		{"gap timescale past int32", NewPlanner().SetGap(mediatime.MustParse("0.033333333"))},
		{"nanosecond gap", NewPlanner().SetSegmentDuration(mediatime.New(1, 9)).SetGap(mediatime.MustParse("0.000000001"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.planner.Plan()
			if !errors.Is(err, mediatime.ErrOverflow) {
				t.Fatalf("Plan() error = %v with %d segments; want ErrOverflow", err, len(plan))
			}
		})
	}

	// Mixed but representable timescales still lay out exactly.
	plan, err := NewPlanner().SetSegmentDuration(mediatime.New(1, 9)).SetGap(mediatime.MustParse("0.001")).SetCount(3).Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	if want := mediatime.New(2*1009, 9000); !plan[2].Target.Start.Equal(want) {
		t.Errorf("target 2 start = %v; want %v", plan[2].Target.Start, want)
	}
}

func TestPlanInvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		planner *Planner
		want    string
	}{
		{"zero duration", NewPlanner().SetSegmentDuration(mediatime.New(0, 30)), "segment duration must be positive"},
		{"negative duration", NewPlanner().SetSegmentDuration(mediatime.New(-5, 30)), "segment duration must be positive"},
		{"bad timescale", NewPlanner().SetSegmentDuration(mediatime.New(5, 0)), "invalid timescale"},
		{"zero count", NewPlanner().SetCount(0), "segment count must be positive"},
		{"huge count", NewPlanner().SetCount(MaxSegmentCount + 1), "cannot exceed"},
		{"negative gap", NewPlanner().SetGap(mediatime.New(-1, 30)), "gap cannot be negative"},
		{"negative source gap", NewPlanner().SetSourceGap(mediatime.New(-1, 30)), "source gap cannot be negative"},
		{"negative start", NewPlanner().SetSourceStart(mediatime.New(-1, 1)), "source start cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.planner.Plan()
			if err == nil {
				t.Fatalf("Plan() expected error, got %d segments", len(plan))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestValidatePlan(t *testing.T) {
	seg := func(i int, src, dst int64) models.Segment {
		return models.Segment{
			Index:  i,
			Source: mediatime.NewRange(mediatime.New(src, 30), mediatime.New(5, 30)),
			Target: mediatime.NewRange(mediatime.New(dst, 30), mediatime.New(5, 30)),
		}
	}

	tests := []struct {
		name    string
		plan    []models.Segment
		wantErr bool
	}{
		{"valid", []models.Segment{seg(0, 0, 0), seg(1, 6, 6)}, false},
		{"empty", nil, true},
		{"bad index", []models.Segment{seg(0, 0, 0), seg(2, 6, 6)}, true},
		{"overlap", []models.Segment{seg(0, 0, 0), seg(1, 6, 3)}, true},
		{"out of order", []models.Segment{seg(0, 0, 6), seg(1, 6, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlan(tt.plan)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePlan() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckSourceBounds(t *testing.T) {
	plan, err := NewPlanner().Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}

	// The default plan reads up to 65/30.
	if err := CheckSourceBounds(plan, mediatime.New(65, 30)); err != nil {
		t.Errorf("plan ending exactly at clip end should pass: %v", err)
	}
	if err := CheckSourceBounds(plan, mediatime.New(3, 1)); err != nil {
		t.Errorf("3s clip should hold the default plan: %v", err)
	}
	if err := CheckSourceBounds(plan, mediatime.New(2, 1)); err == nil {
		t.Error("2s clip is shorter than the 65/30 the default plan reads")
	}

	err = CheckSourceBounds(plan, mediatime.New(64, 30))
	var be *BoundsError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BoundsError, got %v", err)
	}
	if be.Index != 10 {
		t.Errorf("BoundsError.Index = %d; want 10", be.Index)
	}

	err = CheckSourceBounds(plan, mediatime.New(1, 2))
	if !errors.As(err, &be) || be.Index != 2 {
		t.Errorf("expected first failing segment 2, got %v", err)
	}
}

type fakeSource struct {
	duration mediatime.Time
	err      error
}

func (f fakeSource) GetDuration() (mediatime.Time, error) {
	return f.duration, f.err
}

func TestCheckSource(t *testing.T) {
	plan, _ := NewPlanner().SetCount(2).Plan()

	if err := CheckSource(plan, fakeSource{duration: mediatime.New(1, 1)}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckSource(plan, nil); err == nil {
		t.Error("expected error for nil source")
	}
	if err := CheckSource(plan, fakeSource{err: errors.New("probe failed")}); err == nil {
		t.Error("expected probe error to propagate")
	}
}
