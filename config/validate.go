package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxSegmentCount bounds segment.count.
const MaxSegmentCount = 100000

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.Source) == "" {
		errors = append(errors, "source is required")
	}
	if strings.TrimSpace(c.BundleDir) == "" {
		errors = append(errors, "bundle directory is required")
	}
	for name, file := range c.Sources {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(file) == "" {
			errors = append(errors, fmt.Sprintf("sources entry %q -> %q must have a name and a file", name, file))
		}
	}

	if c.Output == "" {
		errors = append(errors, "output file is required")
	}

	if !IsValidRenderer(c.Renderer) {
		errors = append(errors, fmt.Sprintf("invalid renderer '%s', must be one of: %s",
			c.Renderer, strings.Join(RendererValues(), ", ")))
	} else if c.Renderer == "fcpxml" && !strings.EqualFold(filepath.Ext(c.Output), ".fcpxml") {
		errors = append(errors, "fcpxml renderer needs an output ending in .fcpxml")
	}

	if err := c.Segment.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("segment config: %v", err))
	}

	if err := c.Video.Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("video config: %v", err))
	}

	// 0 is valid, means auto-detect
	if c.Workers < 0 {
		errors = append(errors, "workers cannot be negative (use 0 for auto-detect)")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks if segment configuration is valid
func (sc *SegmentConfig) Validate() error {
	var errors []string

	if sc.Count <= 0 {
		errors = append(errors, "count must be positive")
	} else if sc.Count > MaxSegmentCount {
		errors = append(errors, fmt.Sprintf("count cannot exceed %d", MaxSegmentCount))
	}

	t, err := sc.Timing()
	if err != nil {
		errors = append(errors, err.Error())
	} else {
		if t.Duration.Sign() <= 0 {
			errors = append(errors, "duration must be positive")
		}
		if t.Gap.Sign() < 0 {
			errors = append(errors, "gap cannot be negative")
		}
		if t.SourceGap != nil && t.SourceGap.Sign() < 0 {
			errors = append(errors, "source_gap cannot be negative")
		}
		if t.TargetGap != nil && t.TargetGap.Sign() < 0 {
			errors = append(errors, "target_gap cannot be negative")
		}
		if t.SourceStart.Sign() < 0 {
			errors = append(errors, "source_start cannot be negative")
		}
		if len(errors) == 0 {
			if _, _, err := t.Extent(); err != nil {
				errors = append(errors, fmt.Sprintf("segment times cannot be laid out exactly: %v", err))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if video configuration is valid
func (vc *VideoConfig) Validate() error {
	var errors []string

	if vc.Codec == "" {
		errors = append(errors, "codec is required")
	}

	if vc.CRF < 0 || vc.CRF > 51 {
		errors = append(errors, "CRF must be between 0 and 51")
	}

	if vc.Preset == "" {
		errors = append(errors, "preset is required")
	}

	if vc.PixelFormat == "" {
		errors = append(errors, "pixel format is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}
