package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by MergeFromEnv.
const EnvPrefix = "COMPOSITOR_"

// LoadDotEnv loads the first of paths that exists into the process
// environment. Variables that are already set are left alone.
func LoadDotEnv(paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", fmt.Errorf("failed to load %s: %w", p, err)
		}
		return p, nil
	}
	return "", nil
}

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// MergeFromEnv overrides config values with COMPOSITOR_* variables.
func (c *Config) MergeFromEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errors []string

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errors = append(errors, fmt.Sprintf("%s%s: %q is not a number", EnvPrefix, key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errors = append(errors, fmt.Sprintf("%s%s: %q is not a boolean", EnvPrefix, key, v))
				return
			}
			*dst = b
		}
	}

	str("SOURCE", &c.Source)
	str("BUNDLE_DIR", &c.BundleDir)
	str("OUTPUT", &c.Output)
	str("RENDERER", &c.Renderer)

	str("SEGMENT_DURATION", &c.Segment.Duration)
	num("SEGMENT_COUNT", &c.Segment.Count)
	str("SEGMENT_GAP", &c.Segment.Gap)
	str("SOURCE_GAP", &c.Segment.SourceGap)
	str("TARGET_GAP", &c.Segment.TargetGap)
	str("SOURCE_START", &c.Segment.SourceStart)

	str("VIDEO_CODEC", &c.Video.Codec)
	num("VIDEO_CRF", &c.Video.CRF)
	str("VIDEO_PRESET", &c.Video.Preset)
	str("VIDEO_PIXEL_FORMAT", &c.Video.PixelFormat)

	num("WORKERS", &c.Workers)
	str("WORK_DIR", &c.WorkDir)
	flag("KEEP_PARTS", &c.KeepParts)
	flag("PLAY", &c.Play)
	flag("VERBOSE", &c.Verbose)
	flag("DRY_RUN", &c.DryRun)

	if len(errors) > 0 {
		return fmt.Errorf("invalid environment:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}
