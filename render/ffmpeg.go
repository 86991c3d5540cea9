package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"compositor/command"
	"compositor/command/cut"
	"compositor/composition"
	"compositor/concatenator"
	ffprogress "compositor/ffmpeg"
	"compositor/models"
	"compositor/orchestrator"
)

// VideoSettings are the encoder settings for every part.
type VideoSettings struct {
	Codec       string
	CRF         int
	Preset      string
	PixelFormat string
}

// DefaultVideoSettings returns H.264 at CRF 18 with the veryfast preset.
func DefaultVideoSettings() VideoSettings {
	return VideoSettings{Codec: "libx264", CRF: 18, Preset: "veryfast", PixelFormat: "yuv420p"}
}

// FFmpegOptions configures an FFmpegRenderer.
type FFmpegOptions struct {
	Video     VideoSettings
	Workers   int
	WorkDir   string
	KeepParts bool
	BuildID   string
	Progress  models.ProgressCallback
	Logger    *slog.Logger
}

// FFmpegRenderer cuts every part of the video track with ffmpeg and joins
// them with a stream copy. The output carries no audio, subtitle or data
// streams.
type FFmpegRenderer struct {
	opts FFmpegOptions
}

// NewFFmpegRenderer creates an FFmpegRenderer.
func NewFFmpegRenderer(opts FFmpegOptions) *FFmpegRenderer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Video == (VideoSettings{}) {
		opts.Video = DefaultVideoSettings()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &FFmpegRenderer{opts: opts}
}

// Kind returns KindFFmpeg.
func (r *FFmpegRenderer) Kind() Kind {
	return KindFFmpeg
}

// Commands returns the cut commands followed by the concat command that
// render comp to output, writing parts under workDir.
func (r *FFmpegRenderer) Commands(comp *composition.Composition, workDir, output string) ([]command.Command, error) {
	track, err := videoTrack(comp)
	if err != nil {
		return nil, err
	}
	parts, err := PlanParts(track)
	if err != nil {
		return nil, err
	}

	cmds := make([]command.Command, 0, len(parts)+1)
	partPaths := make([]string, 0, len(parts))

	for _, p := range parts {
		partPath := filepath.Join(workDir, fmt.Sprintf("part_%03d.mp4", p.Index))
		partPaths = append(partPaths, partPath)

		c := cut.NewCutBuilder(p.SourcePath, p.Source, partPath).
			SetPadding(p.PadBefore, p.PadAfter).
			SetCRF(r.opts.Video.CRF)
		if r.opts.Video.Codec != "" {
			c.SetCodec(r.opts.Video.Codec)
		}
		if r.opts.Video.Preset != "" {
			c.SetPreset(r.opts.Video.Preset)
		}
		if r.opts.Video.PixelFormat != "" {
			c.SetPixelFormat(r.opts.Video.PixelFormat)
		}
		cmds = append(cmds, c)
	}

	cmds = append(cmds, concatenator.NewConcatBuilder(partPaths, output))
	return cmds, nil
}

// DryRun returns the ffmpeg command lines Render would run.
func (r *FFmpegRenderer) DryRun(comp *composition.Composition, output string) ([]string, error) {
	workDir := r.opts.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	cmds, err := r.Commands(comp, filepath.Join(workDir, "compositor-parts"), output)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(cmds))
	for _, c := range cmds {
		line, err := c.DryRun()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Render renders comp to output.
func (r *FFmpegRenderer) Render(ctx context.Context, comp *composition.Composition, output string) (*models.ComposedAsset, error) {
	log := r.opts.Logger.With("build_id", r.opts.BuildID, "renderer", KindFFmpeg)

	workDir, err := os.MkdirTemp(r.opts.WorkDir, "compositor-parts-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create work directory")
	}
	if r.opts.KeepParts {
		log.InfoContext(ctx, "keeping parts", "dir", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	cmds, err := r.Commands(comp, workDir, output)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.NewDAGOrchestrator([]orchestrator.ResourceConstraint{
		{Type: orchestrator.ResourceCPU, MaxSlots: r.opts.Workers},
		{Type: orchestrator.ResourceIO, MaxSlots: 1},
	})

	cutIDs := make([]string, 0, len(cmds)-1)
	for i, c := range cmds[:len(cmds)-1] {
		id := fmt.Sprintf("cut_%03d", i)
		cutIDs = append(cutIDs, id)

		if cb, ok := c.(*cut.CutBuilder); ok && log.Enabled(ctx, slog.LevelDebug) {
			part := i
			cb.SetProgressCallback(func(p *ffprogress.Progress) {
				log.DebugContext(ctx, "part progress", "part", part, "out_time_us", p.OutTimeUS, "done", p.Done)
			})
		}

		if err := orch.AddTask(&orchestrator.Task{
			ID:        id,
			PartIndex: i,
			Command:   c,
			Resource:  orchestrator.ResourceCPU,
		}); err != nil {
			return nil, err
		}
	}

	if err := orch.AddTask(&orchestrator.Task{
		ID:           "concat",
		PartIndex:    len(cutIDs),
		Command:      cmds[len(cmds)-1],
		Dependencies: cutIDs,
		Resource:     orchestrator.ResourceIO,
	}); err != nil {
		return nil, err
	}

	progress := models.NewBuildProgress(r.opts.BuildID, len(cmds))
	orch.SetProgressCallback(func(completed, total int, task *orchestrator.Task) {
		log.DebugContext(ctx, "task finished", "task", task.ID, "status", task.Status.String(),
			"completed", completed, "total", total)
		progress.Advance(models.ProgressStateRendering)
		if r.opts.Progress != nil {
			r.opts.Progress(progress)
		}
	})

	start := time.Now()
	log.InfoContext(ctx, "rendering", "parts", len(cutIDs), "workers", r.opts.Workers, "output", output)

	if _, err := orch.Execute(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "render failed")
	}

	log.InfoContext(ctx, "render complete", "seconds", time.Since(start).Seconds(), "stats", orch.GetStats())

	asset := &models.ComposedAsset{
		BuildID:   r.opts.BuildID,
		Path:      output,
		Renderer:  string(KindFFmpeg),
		Duration:  comp.Duration(),
		Tracks:    comp.AssetTracks(),
		Segments:  len(cutIDs),
		CreatedAt: time.Now(),
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	return asset, nil
}
