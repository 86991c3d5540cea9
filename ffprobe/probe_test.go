package ffprobe

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"compositor/mediatime"
	"compositor/models"
)

const sampleOutput = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 640,
      "height": 360,
      "r_frame_rate": "30/1",
      "time_base": "1/15360",
      "duration_ts": 30720,
      "duration": "2.000000"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "time_base": "1/48000",
      "duration_ts": 96000,
      "duration": "2.000000"
    }
  ],
  "format": {
    "filename": "clip.mp4",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "2.000000",
    "size": "123456"
  }
}`

func TestProbe_EmptyPath(t *testing.T) {
	_, err := Probe(context.Background(), "")
	if err == nil {
		t.Fatal("Expected error for empty path")
	}
	if !strings.Contains(err.Error(), "cannot be empty") {
		t.Errorf("Expected 'cannot be empty' error, got: %v", err)
	}
}

func TestProbe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Probe(ctx, "/nonexistent/file.mp4"); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestProbe_NonExistentFile(t *testing.T) {
	_, err := Probe(context.Background(), "/nonexistent/file.mp4")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestParseProbeOutput(t *testing.T) {
	result, err := parseProbeOutput([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}

	if len(result.Streams) != 2 {
		t.Fatalf("Expected 2 streams, got %d", len(result.Streams))
	}
	if len(result.GetVideoStreams()) != 1 {
		t.Errorf("Expected 1 video stream, got %d", len(result.GetVideoStreams()))
	}

	duration, err := result.GetDuration()
	if err != nil {
		t.Fatalf("GetDuration failed: %v", err)
	}
	if !duration.Equal(mediatime.New(2, 1)) {
		t.Errorf("Expected 2s, got %v", duration)
	}

	if _, err := parseProbeOutput([]byte("not json")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestProbeResult_GetDuration(t *testing.T) {
	tests := []struct {
		name        string
		result      ProbeResult
		expected    mediatime.Time
		expectError bool
	}{
		{
			name: "Stream duration_ts",
			result: ProbeResult{Streams: []Stream{
				{CodecType: "video", TimeBase: "1/600", DurationTS: 1300},
			}},
			expected: mediatime.New(1300, 600),
		},
		{
			name: "Audio stream ignored",
			result: ProbeResult{
				Streams: []Stream{{CodecType: "audio", TimeBase: "1/48000", DurationTS: 1}},
				Format:  Format{Duration: "2.5"},
			},
			expected: mediatime.New(5, 2),
		},
		{
			name:     "Format fallback",
			result:   ProbeResult{Format: Format{Duration: "2.166667"}},
			expected: mediatime.New(2166667, 1000000),
		},
		{
			name:        "Missing duration",
			result:      ProbeResult{},
			expectError: true,
		},
		{
			name:        "Invalid duration",
			result:      ProbeResult{Format: Format{Duration: "invalid"}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			duration, err := tt.result.GetDuration()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !duration.Equal(tt.expected) {
				t.Errorf("Expected duration %v, got %v", tt.expected, duration)
			}
		})
	}
}

func TestToSourceAsset(t *testing.T) {
	result, err := parseProbeOutput([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("parseProbeOutput failed: %v", err)
	}

	asset, err := result.ToSourceAsset("clip", "/media/clip.mp4")
	if err != nil {
		t.Fatalf("ToSourceAsset failed: %v", err)
	}

	if asset.Name != "clip" || asset.Path != "/media/clip.mp4" {
		t.Errorf("Unexpected name/path: %s %s", asset.Name, asset.Path)
	}
	if len(asset.Tracks) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(asset.Tracks))
	}

	video := asset.Tracks[0]
	if video.MediaType != models.MediaTypeVideo || video.ID != 1 {
		t.Errorf("Unexpected video track: %+v", video)
	}
	if !video.FrameDuration.Equal(mediatime.New(1, 30)) {
		t.Errorf("Expected frame duration 1/30, got %v", video.FrameDuration)
	}
	if asset.Tracks[1].MediaType != models.MediaTypeAudio {
		t.Errorf("Expected audio track, got %s", asset.Tracks[1].MediaType)
	}

	if _, err := (&ProbeResult{}).ToSourceAsset("x", "/x"); err == nil {
		t.Error("Expected error for probe result without duration")
	}
}

func TestFrameDuration(t *testing.T) {
	tests := []struct {
		rate string
		want mediatime.Time
		ok   bool
	}{
		{"30/1", mediatime.New(1, 30), true},
		{"30000/1001", mediatime.New(1001, 30000), true},
		{"0/0", mediatime.Time{}, false},
		{"", mediatime.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := frameDuration(tt.rate)
		if ok != tt.ok || (ok && !got.Equal(tt.want)) {
			t.Errorf("frameDuration(%q) = %v, %v; want %v, %v", tt.rate, got, ok, tt.want, tt.ok)
		}
	}
}

func TestProbe_WithGeneratedFile(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	gen := exec.Command("ffmpeg", "-v", "error", "-f", "lavfi", "-i", "testsrc=duration=2:size=320x240:rate=30",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", path)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("could not generate test clip: %v (%s)", err, out)
	}

	asset, err := ProbeAsset(context.Background(), "clip", path)
	if err != nil {
		t.Fatalf("ProbeAsset failed: %v", err)
	}

	if !asset.Duration.Equal(mediatime.New(2, 1)) {
		t.Errorf("Expected 2s duration, got %v", asset.Duration)
	}
	if len(asset.VideoTracks()) != 1 {
		t.Errorf("Expected one video track, got %d", len(asset.VideoTracks()))
	}
}
