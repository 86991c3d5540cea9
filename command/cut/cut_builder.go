// Package cut builds the ffmpeg command that renders one part of a
// composition's video track: a source range, optionally padded with black.
package cut

import (
	"context"
	"fmt"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"compositor/command"
	ffprogress "compositor/ffmpeg"
	"compositor/internal/timeutil"
	"compositor/mediatime"
)

// CutBuilder renders source[range] of a file to a video-only part.
//
// Empty stretches of the timeline are rendered by padding a neighbouring
// part with black frames (the tpad filter), so every part can be joined
// with a stream copy afterwards.
type CutBuilder struct {
	sourcePath string
	source     mediatime.Range
	outputPath string

	padBefore mediatime.Time
	padAfter  mediatime.Time

	codec       string
	crf         int
	preset      string
	pixelFormat string

	priority         int
	progressCallback ffprogress.ProgressCallback
}

// NewCutBuilder creates a new cut command builder
func NewCutBuilder(sourcePath string, source mediatime.Range, outputPath string) *CutBuilder {
	return &CutBuilder{
		sourcePath:  sourcePath,
		source:      source,
		outputPath:  outputPath,
		padBefore:   mediatime.Zero,
		padAfter:    mediatime.Zero,
		codec:       "libx264",
		crf:         18,
		preset:      "veryfast",
		pixelFormat: "yuv420p",
		priority:    command.PriorityNormal,
	}
}

// SetPadding sets the black padding added before and after the cut.
func (c *CutBuilder) SetPadding(before, after mediatime.Time) *CutBuilder {
	c.padBefore = before
	c.padAfter = after
	return c
}

// SetCodec sets the video codec (e.g., "libx264", "libx265")
func (c *CutBuilder) SetCodec(codec string) *CutBuilder {
	c.codec = codec
	return c
}

// SetCRF sets the Constant Rate Factor (0-51, lower is better quality)
func (c *CutBuilder) SetCRF(crf int) *CutBuilder {
	c.crf = crf
	return c
}

// SetPreset sets the encoding preset (ultrafast ... veryslow)
func (c *CutBuilder) SetPreset(preset string) *CutBuilder {
	c.preset = preset
	return c
}

// SetPixelFormat sets the pixel format (e.g., "yuv420p")
func (c *CutBuilder) SetPixelFormat(pixfmt string) *CutBuilder {
	c.pixelFormat = pixfmt
	return c
}

// SetPriority sets the task priority (higher = started first)
func (c *CutBuilder) SetPriority(priority int) command.Command {
	c.priority = priority
	return c
}

// SetProgressCallback sets a callback for progress updates
func (c *CutBuilder) SetProgressCallback(callback ffprogress.ProgressCallback) *CutBuilder {
	c.progressCallback = callback
	return c
}

// Duration returns the length of the rendered part, padding included.
func (c *CutBuilder) Duration() mediatime.Time {
	return c.padBefore.Add(c.source.Duration).Add(c.padAfter)
}

// Validate checks the builder's parameters.
func (c *CutBuilder) Validate() error {
	if strings.TrimSpace(c.sourcePath) == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	if strings.TrimSpace(c.outputPath) == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if !c.source.IsValid() || c.source.Duration.Sign() <= 0 || c.source.Start.Sign() < 0 {
		return fmt.Errorf("invalid source range %s", c.source)
	}
	if c.padBefore.Sign() < 0 || c.padAfter.Sign() < 0 {
		return fmt.Errorf("padding cannot be negative")
	}
	if c.crf < 0 || c.crf > 51 {
		return fmt.Errorf("crf must be between 0 and 51, got %d", c.crf)
	}
	return nil
}

func (c *CutBuilder) stream() *ffmpeg.Stream {
	input := ffmpeg.Input(c.sourcePath, ffmpeg.KwArgs{
		"ss": timeutil.FormatTimestamp(c.source.Start),
		"t":  timeutil.FormatSeconds(c.source.Duration),
	})

	if c.padBefore.Sign() > 0 || c.padAfter.Sign() > 0 {
		pad := ffmpeg.KwArgs{"color": "black"}
		if c.padBefore.Sign() > 0 {
			pad["start_duration"] = timeutil.FormatSeconds(c.padBefore)
		}
		if c.padAfter.Sign() > 0 {
			pad["stop_duration"] = timeutil.FormatSeconds(c.padAfter)
		}
		input = input.Filter("tpad", ffmpeg.Args{}, pad)
	}

	out := ffmpeg.KwArgs{
		"c:v": c.codec,
		"an":  "",
		"sn":  "",
		"dn":  "",
	}
	if c.preset != "" {
		out["preset"] = c.preset
	}
	if c.pixelFormat != "" {
		out["pix_fmt"] = c.pixelFormat
	}
	out["crf"] = fmt.Sprintf("%d", c.crf)

	return input.Output(c.outputPath, out).OverWriteOutput()
}

// BuildArgs constructs the ffmpeg arguments for the cut.
func (c *CutBuilder) BuildArgs() []string {
	return c.stream().GetArgs()
}

// Run executes the cut.
func (c *CutBuilder) Run(ctx context.Context) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid cut: %w", err)
	}
	if err := command.RunFFmpeg(ctx, c.BuildArgs(), c.progressCallback); err != nil {
		return fmt.Errorf("cut %s from %s: %w", c.source, c.sourcePath, err)
	}
	return nil
}

// DryRun returns the command that would be executed without running it
func (c *CutBuilder) DryRun() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	return "ffmpeg " + strings.Join(c.BuildArgs(), " "), nil
}

// GetPriority returns the task priority
func (c *CutBuilder) GetPriority() int {
	return c.priority
}

// GetTaskType returns the task type identifier
func (c *CutBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeCut
}

// GetInputPath returns the input file path
func (c *CutBuilder) GetInputPath() string {
	return c.sourcePath
}

// GetOutputPath returns the output file path
func (c *CutBuilder) GetOutputPath() string {
	return c.outputPath
}
