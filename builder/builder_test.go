package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"compositor/composition"
	"compositor/mediatime"
	"compositor/models"
	"compositor/planner"
)

// clipDuration holds the default plan, which reads up to 65/30.
var clipDuration = mediatime.New(3, 1)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAsset(duration mediatime.Time, tracks ...models.MediaType) *models.SourceAsset {
	a := &models.SourceAsset{Name: "clip", Path: "/media/clip.mov", Duration: duration}
	for i, mt := range tracks {
		a.Tracks = append(a.Tracks, models.AssetTrack{ID: i + 1, MediaType: mt})
	}
	return a
}

func defaultPlan(t *testing.T) []models.Segment {
	t.Helper()
	plan, err := planner.NewPlanner().Plan()
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	return plan
}

func TestBuild(t *testing.T) {
	asset := testAsset(clipDuration, models.MediaTypeVideo, models.MediaTypeAudio)
	plan := defaultPlan(t)

	var updates int
	b := New(
		WithLogger(quietLogger()),
		WithBuildID("test"),
		WithProgress(func(p *models.BuildProgress) {
			updates++
			if p.BuildID != "test" || p.State != models.ProgressStateBuilding {
				t.Errorf("unexpected progress %+v", p)
			}
		}),
	)

	comp, err := b.Build(context.Background(), asset, plan)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if updates != len(plan) {
		t.Errorf("progress updates = %d; want %d", updates, len(plan))
	}

	tracks := comp.Tracks()
	if len(tracks) != 1 || tracks[0].MediaType != models.MediaTypeVideo {
		t.Fatalf("expected a single video track, got %d tracks", len(tracks))
	}

	video := comp.VideoTrack()
	if err := video.Validate(); err != nil {
		t.Errorf("video track invalid: %v", err)
	}

	media := video.MediaEdits()
	if len(media) != len(plan) {
		t.Fatalf("media edits = %d; want %d", len(media), len(plan))
	}
	for i, e := range media {
		if !e.Target.Equal(plan[i].Target) || !e.Source.Equal(plan[i].Source) {
			t.Errorf("edit %d = %s; want %s", i, e, plan[i].String())
		}
	}

	// Ten one-frame gaps between eleven segments.
	if got := len(video.Edits()) - len(media); got != 10 {
		t.Errorf("empty edits = %d; want 10", got)
	}
	if !comp.Duration().Equal(mediatime.New(65, 30)) {
		t.Errorf("Duration() = %v; want 065/30", comp.Duration())
	}
}

func TestBuildContiguousTarget(t *testing.T) {
	plan, err := planner.NewPlanner().SetTargetGap(mediatime.Zero).Plan()
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}

	comp, err := New(WithLogger(quietLogger())).Build(context.Background(),
		testAsset(clipDuration, models.MediaTypeVideo), plan)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	video := comp.VideoTrack()
	if len(video.Edits()) != len(plan) {
		t.Errorf("expected no empty edits, got %d edits", len(video.Edits()))
	}
	if !comp.Duration().Equal(mediatime.New(55, 30)) {
		t.Errorf("Duration() = %v; want 055/30", comp.Duration())
	}
}

func TestBuildFailFast(t *testing.T) {
	// 1s holds segments 0-3 (0..23/30); segment 4 reads 24/30..29/30 and
	// segment 5 reads 30/30..35/30.
	asset := testAsset(mediatime.New(1, 1), models.MediaTypeVideo)

	var updates int
	b := New(WithLogger(quietLogger()), WithProgress(func(*models.BuildProgress) { updates++ }))

	comp, err := b.Build(context.Background(), asset, defaultPlan(t))
	if comp != nil {
		t.Error("failed build must not return a composition")
	}

	var se *SegmentError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SegmentError, got %v", err)
	}
	if se.Index != 5 {
		t.Errorf("SegmentError.Index = %d; want 5", se.Index)
	}
	if !errors.Is(err, composition.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange cause, got %v", se.Err)
	}
	if updates != 5 {
		t.Errorf("progress updates = %d; want 5", updates)
	}
}

func TestBuildClipEnd(t *testing.T) {
	tests := []struct {
		name      string
		duration  mediatime.Time
		wantIndex int
	}{
		{"exactly at clip end", mediatime.New(65, 30), -1},
		{"one frame short", mediatime.New(64, 30), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := New(WithLogger(quietLogger())).Build(context.Background(),
				testAsset(tt.duration, models.MediaTypeVideo), defaultPlan(t))

			if tt.wantIndex < 0 {
				if err != nil {
					t.Fatalf("Build() error: %v", err)
				}
				if !comp.Duration().Equal(mediatime.New(65, 30)) {
					t.Errorf("Duration() = %v; want 065/30", comp.Duration())
				}
				return
			}

			var se *SegmentError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SegmentError, got %v", err)
			}
			if se.Index != tt.wantIndex {
				t.Errorf("SegmentError.Index = %d; want %d", se.Index, tt.wantIndex)
			}
		})
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var inserted int
	b := New(WithLogger(quietLogger()), WithProgress(func(*models.BuildProgress) {
		inserted++
		if inserted == 3 {
			cancel()
		}
	}))

	comp, err := b.Build(ctx, testAsset(clipDuration, models.MediaTypeVideo), defaultPlan(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if comp != nil {
		t.Error("cancelled build must not return a composition")
	}
	if inserted != 3 {
		t.Errorf("inserted = %d; want 3", inserted)
	}
}

func TestBuildNoVideo(t *testing.T) {
	_, err := New(WithLogger(quietLogger())).Build(context.Background(),
		testAsset(clipDuration, models.MediaTypeAudio), defaultPlan(t))
	if !errors.Is(err, ErrNoVideoTrack) {
		t.Errorf("expected ErrNoVideoTrack, got %v", err)
	}
}

func TestBuildInvalidInput(t *testing.T) {
	b := New(WithLogger(quietLogger()))
	if _, err := b.Build(context.Background(), nil, defaultPlan(t)); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := b.Build(context.Background(), testAsset(clipDuration, models.MediaTypeVideo), nil); err == nil {
		t.Error("expected error for empty plan")
	}
}
