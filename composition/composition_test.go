package composition

import (
	"errors"
	"testing"

	"compositor/mediatime"
	"compositor/models"
)

func testAsset() *models.SourceAsset {
	return &models.SourceAsset{
		Name:     "clip",
		Path:     "/media/clip.mov",
		Duration: mediatime.New(2, 1),
		Tracks: []models.AssetTrack{
			{ID: 1, MediaType: models.MediaTypeVideo, Codec: "h264", Width: 640, Height: 360, FrameDuration: mediatime.New(1, 30)},
			{ID: 2, MediaType: models.MediaTypeAudio, Codec: "aac"},
		},
	}
}

var zero = mediatime.New(0, 30)

func rng(start, dur int64) mediatime.Range {
	return mediatime.NewRange(mediatime.New(start, 30), mediatime.New(dur, 30))
}

func TestInsertAppendsWithEmptyFill(t *testing.T) {
	c := New()
	asset := testAsset()

	if err := c.InsertTimeRange(rng(0, 5), asset, zero); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := c.InsertTimeRange(rng(6, 5), asset, mediatime.New(6, 30)); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	if len(c.Tracks()) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(c.Tracks()))
	}

	video := c.VideoTrack()
	if video == nil {
		t.Fatal("expected a video track")
	}

	edits := video.Edits()
	want := []string{
		"source 000/30 - 005/30 | target 000/30 - 005/30",
		"empty | target 005/30 - 006/30",
		"source 006/30 - 011/30 | target 006/30 - 011/30",
	}
	if len(edits) != len(want) {
		t.Fatalf("expected %d edits, got %d: %v", len(want), len(edits), edits)
	}
	for i, w := range want {
		if got := edits[i].String(); got != w {
			t.Errorf("edit %d = %q; want %q", i, got, w)
		}
	}

	if err := video.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if !c.Duration().Equal(mediatime.New(11, 30)) {
		t.Errorf("Duration() = %v; want 011/30", c.Duration())
	}
	if len(video.MediaEdits()) != 2 {
		t.Errorf("expected 2 media edits, got %d", len(video.MediaEdits()))
	}
}

func TestInsertInsideShiftsLaterEdits(t *testing.T) {
	c := New()
	asset := testAsset()

	if err := c.InsertTimeRange(rng(0, 10), asset, zero); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := c.InsertTimeRange(rng(30, 3), asset, mediatime.New(4, 30)); err != nil {
		t.Fatalf("insert inside: %v", err)
	}

	edits := c.VideoTrack().Edits()
	want := []string{
		"source 000/30 - 004/30 | target 000/30 - 004/30",
		"source 030/30 - 033/30 | target 004/30 - 007/30",
		"source 004/30 - 010/30 | target 007/30 - 013/30",
	}
	if len(edits) != len(want) {
		t.Fatalf("expected %d edits, got %d: %v", len(want), len(edits), edits)
	}
	for i, w := range want {
		if got := edits[i].String(); got != w {
			t.Errorf("edit %d = %q; want %q", i, got, w)
		}
	}
	if err := c.VideoTrack().Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestInsertAtEditBoundary(t *testing.T) {
	c := New()
	asset := testAsset()

	_ = c.InsertTimeRange(rng(0, 5), asset, zero)
	_ = c.InsertTimeRange(rng(10, 5), asset, mediatime.New(5, 30))
	if err := c.InsertTimeRange(rng(20, 2), asset, mediatime.New(5, 30)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	edits := c.VideoTrack().Edits()
	if len(edits) != 3 {
		t.Fatalf("expected 3 edits without a split, got %d", len(edits))
	}
	if got := edits[2].Target.String(); got != "007/30 - 012/30" {
		t.Errorf("shifted edit target = %s", got)
	}
}

func TestInsertErrors(t *testing.T) {
	asset := testAsset()

	tests := []struct {
		name  string
		src   mediatime.Range
		at    mediatime.Time
		asset *models.SourceAsset
		want  error
	}{
		{"past end", rng(58, 5), mediatime.Zero, asset, ErrOutOfRange},
		{"negative start", rng(-1, 5), mediatime.Zero, asset, ErrInvalidRange},
		{"zero duration", rng(0, 0), mediatime.Zero, asset, ErrInvalidRange},
		{"bad timescale", mediatime.NewRange(mediatime.New(0, 0), mediatime.New(5, 30)), mediatime.Zero, asset, ErrInvalidRange},
		{"negative at", rng(0, 5), mediatime.New(-1, 30), asset, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			err := c.InsertTimeRange(tt.src, tt.asset, tt.at)
			if !errors.Is(err, tt.want) {
				t.Errorf("InsertTimeRange() error = %v; want %v", err, tt.want)
			}
			if len(c.Tracks()) != 0 {
				t.Error("failed insert must not create tracks")
			}
		})
	}

	if err := New().InsertTimeRange(rng(0, 5), nil, mediatime.Zero); err == nil {
		t.Error("expected error for nil asset")
	}
}

func TestInsertEndingAtClipEnd(t *testing.T) {
	c := New()
	if err := c.InsertTimeRange(rng(55, 5), testAsset(), mediatime.Zero); err != nil {
		t.Errorf("range ending exactly at clip end should insert: %v", err)
	}
}

func TestRemoveTracks(t *testing.T) {
	c := New()
	if err := c.InsertTimeRange(rng(0, 5), testAsset(), mediatime.Zero); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if removed := c.RemoveNonVideoTracks(); removed != 1 {
		t.Errorf("RemoveNonVideoTracks() = %d; want 1", removed)
	}
	tracks := c.Tracks()
	if len(tracks) != 1 || tracks[0].MediaType != models.MediaTypeVideo {
		t.Fatalf("expected only the video track, got %+v", tracks)
	}

	at := c.AssetTracks()
	if len(at) != 1 || at[0].Width != 640 {
		t.Errorf("AssetTracks() = %+v", at)
	}

	if err := c.RemoveTrack(99); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("RemoveTrack(99) error = %v", err)
	}
	if err := c.RemoveTrack(tracks[0].ID); err != nil {
		t.Errorf("RemoveTrack() error: %v", err)
	}
	if c.VideoTrack() != nil {
		t.Error("expected no video track after removal")
	}
	if !c.Duration().IsZero() {
		t.Errorf("empty composition duration = %v", c.Duration())
	}
}
