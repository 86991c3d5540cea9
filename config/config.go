package config

import (
	"fmt"

	"compositor/mediatime"
)

// Config holds all compositor configuration options
type Config struct {
	// Source selection
	Source    string            `yaml:"source"`     // catalog name of the source clip
	BundleDir string            `yaml:"bundle_dir"` // directory holding the bundled clips
	Sources   map[string]string `yaml:"sources"`    // extra catalog entries, name -> file

	// Output
	Output   string `yaml:"output"`
	Renderer string `yaml:"renderer"` // "ffmpeg" or "fcpxml"

	// Segment layout
	Segment SegmentConfig `yaml:"segment"`

	// Video settings
	Video VideoConfig `yaml:"video"`

	// Execution settings
	Workers   int    `yaml:"workers"`    // 0 = auto-detect
	WorkDir   string `yaml:"work_dir"`   // parent of the temporary parts directory
	KeepParts bool   `yaml:"keep_parts"` // keep rendered parts after the concat

	// Behavioral flags
	Play    bool `yaml:"play"`    // open the result in ffplay
	Verbose bool `yaml:"verbose"` // debug logging
	DryRun  bool `yaml:"dry_run"` // print the plan and commands only
}

// SegmentConfig holds the planner settings. Times are rationals such as
// "5/30", "5/30s" or "2".
type SegmentConfig struct {
	Duration    string `yaml:"duration"`
	Count       int    `yaml:"count"`
	Gap         string `yaml:"gap"`
	SourceGap   string `yaml:"source_gap"` // empty = gap
	TargetGap   string `yaml:"target_gap"` // empty = gap
	SourceStart string `yaml:"source_start"`
}

// VideoConfig holds video encoding settings
type VideoConfig struct {
	Codec       string `yaml:"codec"`        // e.g., "libx264", "libx265"
	CRF         int    `yaml:"crf"`          // Constant Rate Factor (0-51, lower = better quality)
	Preset      string `yaml:"preset"`       // e.g., "ultrafast", "veryfast", "medium"
	PixelFormat string `yaml:"pixel_format"` // e.g., "yuv420p"
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source:    "IMG_HDR",
		BundleDir: "./assets",

		Output:   "./output/composed.mp4",
		Renderer: "ffmpeg",

		// Five frames, eleven times, one frame apart at 30 fps
		Segment: SegmentConfig{
			Duration:    "5/30",
			Count:       11,
			Gap:         "1/30",
			SourceStart: "0",
		},

		Video: VideoConfig{
			Codec:       "libx264",
			CRF:         18,
			Preset:      "veryfast",
			PixelFormat: "yuv420p",
		},

		Workers:   0, // Auto-detect CPU count
		WorkDir:   "",
		KeepParts: false,

		Play:    false,
		Verbose: false,
		DryRun:  false,
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	cp := *c
	if c.Sources != nil {
		cp.Sources = make(map[string]string, len(c.Sources))
		for k, v := range c.Sources {
			cp.Sources[k] = v
		}
	}
	return &cp
}

// RendererValues returns valid renderer values
func RendererValues() []string {
	return []string{"ffmpeg", "fcpxml"}
}

// IsValidRenderer checks if renderer is valid
func IsValidRenderer(renderer string) bool {
	for _, valid := range RendererValues() {
		if renderer == valid {
			return true
		}
	}
	return false
}

// Timing is a SegmentConfig with its times parsed. SourceGap and TargetGap
// are nil when they fall back to Gap.
type Timing struct {
	Duration    mediatime.Time
	Count       int
	Gap         mediatime.Time
	SourceGap   *mediatime.Time
	TargetGap   *mediatime.Time
	SourceStart mediatime.Time
}

// Timing parses the segment times.
func (s *SegmentConfig) Timing() (*Timing, error) {
	t := &Timing{Count: s.Count, SourceStart: mediatime.Zero}
	var err error

	if t.Duration, err = mediatime.Parse(s.Duration); err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	if t.Gap, err = mediatime.Parse(s.Gap); err != nil {
		return nil, fmt.Errorf("gap: %w", err)
	}
	if s.SourceGap != "" {
		g, err := mediatime.Parse(s.SourceGap)
		if err != nil {
			return nil, fmt.Errorf("source_gap: %w", err)
		}
		t.SourceGap = &g
	}
	if s.TargetGap != "" {
		g, err := mediatime.Parse(s.TargetGap)
		if err != nil {
			return nil, fmt.Errorf("target_gap: %w", err)
		}
		t.TargetGap = &g
	}
	if s.SourceStart != "" {
		if t.SourceStart, err = mediatime.Parse(s.SourceStart); err != nil {
			return nil, fmt.Errorf("source_start: %w", err)
		}
	}
	return t, nil
}

// Extent returns the end of the last target range and of the last source
// range. It fails with mediatime.ErrOverflow when the layout cannot be laid
// out exactly.
func (t *Timing) Extent() (target, source mediatime.Time, err error) {
	if t.Count <= 0 {
		return mediatime.Zero, mediatime.Zero, nil
	}
	sourceGap, targetGap := t.Gap, t.Gap
	if t.SourceGap != nil {
		sourceGap = *t.SourceGap
	}
	if t.TargetGap != nil {
		targetGap = *t.TargetGap
	}
	last := int64(t.Count - 1)

	if target, err = extent(mediatime.Zero, t.Duration, targetGap, last); err != nil {
		return mediatime.Invalid, mediatime.Invalid, fmt.Errorf("target extent: %w", err)
	}
	if source, err = extent(t.SourceStart, t.Duration, sourceGap, last); err != nil {
		return mediatime.Invalid, mediatime.Invalid, fmt.Errorf("source extent: %w", err)
	}
	return target, source, nil
}

// extent is start + (d+gap)*last + d.
func extent(start, d, gap mediatime.Time, last int64) (mediatime.Time, error) {
	stride, err := d.AddChecked(gap)
	if err != nil {
		return mediatime.Invalid, err
	}
	offset, err := stride.MulChecked(last)
	if err != nil {
		return mediatime.Invalid, err
	}
	end, err := start.AddChecked(offset)
	if err != nil {
		return mediatime.Invalid, err
	}
	return end.AddChecked(d)
}
