package config

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/pflag"
)

// Flag names shared by RegisterFlags and MergeFromFlags.
const (
	FlagConfig          = "config"
	FlagSource          = "source"
	FlagBundleDir       = "bundle-dir"
	FlagOutput          = "output"
	FlagRenderer        = "renderer"
	FlagSegmentDuration = "segment-duration"
	FlagSegmentCount    = "segment-count"
	FlagGap             = "gap"
	FlagSourceGap       = "source-gap"
	FlagTargetGap       = "target-gap"
	FlagSourceStart     = "source-start"
	FlagVideoCodec      = "video-codec"
	FlagVideoCRF        = "video-crf"
	FlagVideoPreset     = "video-preset"
	FlagPixelFormat     = "pixel-format"
	FlagWorkers         = "workers"
	FlagWorkDir         = "work-dir"
	FlagKeepParts       = "keep-parts"
	FlagPlay            = "play"
	FlagVerbose         = "verbose"
	FlagDryRun          = "dry-run"
)

// RegisterFlags defines every configuration flag on fs. The defaults shown
// in help are the built-in defaults; only flags the user sets override the
// other layers.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.String(FlagConfig, "", "Path to config file (default: search ./compositor.yaml, ~/.compositor/config.yaml, /etc/compositor/config.yaml)")

	// Source and output
	fs.String(FlagSource, d.Source, "Source clip name from the bundle catalog")
	fs.String(FlagBundleDir, d.BundleDir, "Directory holding the bundled source clips")
	fs.StringP(FlagOutput, "o", d.Output, "Output file path")
	fs.String(FlagRenderer, d.Renderer, "Renderer: ffmpeg or fcpxml")

	// Segment layout
	fs.String(FlagSegmentDuration, d.Segment.Duration, "Segment duration as a rational, e.g. 5/30")
	fs.IntP(FlagSegmentCount, "n", d.Segment.Count, "Number of segments")
	fs.String(FlagGap, d.Segment.Gap, "Gap between segments, e.g. 1/30")
	fs.String(FlagSourceGap, "", "Gap applied to the source cursor (default: --gap)")
	fs.String(FlagTargetGap, "", "Gap applied between target ranges (default: --gap)")
	fs.String(FlagSourceStart, d.Segment.SourceStart, "Where the source cursor starts")

	// Video settings
	fs.String(FlagVideoCodec, d.Video.Codec, "Video codec")
	fs.Int(FlagVideoCRF, d.Video.CRF, "Video CRF (0-51, lower = better quality)")
	fs.String(FlagVideoPreset, d.Video.Preset, "Encoder preset")
	fs.String(FlagPixelFormat, d.Video.PixelFormat, "Output pixel format")

	// Execution
	fs.IntP(FlagWorkers, "w", d.Workers, "Parallel cut workers (0 = auto-detect)")
	fs.String(FlagWorkDir, d.WorkDir, "Directory for temporary parts (default: system temp)")
	fs.Bool(FlagKeepParts, d.KeepParts, "Keep rendered parts after concatenation")

	// Behavioral flags
	fs.Bool(FlagPlay, d.Play, "Play the result with ffplay")
	fs.BoolP(FlagVerbose, "v", d.Verbose, "Enable debug logging")
	fs.Bool(FlagDryRun, d.DryRun, "Print the plan and ffmpeg commands without running them")
}

// MergeFromFlags overrides config values with the flags that were set
// explicitly on fs. Flags that are not defined on fs are ignored.
func (c *Config) MergeFromFlags(fs *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		return err == nil && fs.Lookup(name) != nil && fs.Changed(name)
	}
	str := func(name string, dst *string) {
		if changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	flag := func(name string, dst *bool) {
		if changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}

	str(FlagSource, &c.Source)
	str(FlagBundleDir, &c.BundleDir)
	str(FlagOutput, &c.Output)
	str(FlagRenderer, &c.Renderer)

	str(FlagSegmentDuration, &c.Segment.Duration)
	num(FlagSegmentCount, &c.Segment.Count)
	str(FlagGap, &c.Segment.Gap)
	str(FlagSourceGap, &c.Segment.SourceGap)
	str(FlagTargetGap, &c.Segment.TargetGap)
	str(FlagSourceStart, &c.Segment.SourceStart)

	str(FlagVideoCodec, &c.Video.Codec)
	num(FlagVideoCRF, &c.Video.CRF)
	str(FlagVideoPreset, &c.Video.Preset)
	str(FlagPixelFormat, &c.Video.PixelFormat)

	num(FlagWorkers, &c.Workers)
	str(FlagWorkDir, &c.WorkDir)
	flag(FlagKeepParts, &c.KeepParts)
	flag(FlagPlay, &c.Play)
	flag(FlagVerbose, &c.Verbose)
	flag(FlagDryRun, &c.DryRun)

	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return nil
}

// PrintConfig prints the effective configuration
func (c *Config) PrintConfig(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                 Effective Configuration                  ")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Source:         %s\n", c.Source)
	fmt.Fprintf(w, "Bundle Dir:     %s\n", c.BundleDir)
	fmt.Fprintf(w, "Output:         %s\n", c.Output)
	fmt.Fprintf(w, "Renderer:       %s\n", c.Renderer)
	fmt.Fprintf(w, "Workers:        %d\n", c.Workers)
	if len(c.Sources) > 0 {
		names := make([]string, 0, len(c.Sources))
		for name := range c.Sources {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "Extra Sources:")
		for _, name := range names {
			fmt.Fprintf(w, "  %-12s  %s\n", name, c.Sources[name])
		}
	}

	fmt.Fprintln(w, "\nSegments:")
	fmt.Fprintf(w, "  Duration:     %s\n", c.Segment.Duration)
	fmt.Fprintf(w, "  Count:        %d\n", c.Segment.Count)
	fmt.Fprintf(w, "  Gap:          %s\n", c.Segment.Gap)
	if c.Segment.SourceGap != "" {
		fmt.Fprintf(w, "  Source Gap:   %s\n", c.Segment.SourceGap)
	}
	if c.Segment.TargetGap != "" {
		fmt.Fprintf(w, "  Target Gap:   %s\n", c.Segment.TargetGap)
	}
	fmt.Fprintf(w, "  Source Start: %s\n", c.Segment.SourceStart)

	fmt.Fprintln(w, "\nVideo Settings:")
	fmt.Fprintf(w, "  Codec:        %s\n", c.Video.Codec)
	fmt.Fprintf(w, "  CRF:          %d\n", c.Video.CRF)
	fmt.Fprintf(w, "  Preset:       %s\n", c.Video.Preset)
	fmt.Fprintf(w, "  Pixel Format: %s\n", c.Video.PixelFormat)

	fmt.Fprintln(w, "\nBehavioral Flags:")
	fmt.Fprintf(w, "  Keep Parts:    %v\n", c.KeepParts)
	fmt.Fprintf(w, "  Play:          %v\n", c.Play)
	fmt.Fprintf(w, "  Verbose:       %v\n", c.Verbose)
	fmt.Fprintf(w, "  Dry Run:       %v\n", c.DryRun)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}
