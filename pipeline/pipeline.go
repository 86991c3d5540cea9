// Package pipeline wires the generation steps together: resolve and probe
// the source clip, plan the segments, build the composition and render it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"compositor/builder"
	"compositor/bundle"
	"compositor/composition"
	"compositor/config"
	"compositor/ffprobe"
	"compositor/models"
	"compositor/planner"
	"compositor/render"
	"compositor/session"
)

// ProbeFunc reads a source clip's metadata.
type ProbeFunc func(ctx context.Context, name, path string) (*models.SourceAsset, error)

// Pipeline runs generations for one configuration.
type Pipeline struct {
	cfg      *config.Config
	catalog  *bundle.Catalog
	logger   *slog.Logger
	progress models.ProgressCallback
	probe    ProbeFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithProgress sets a callback for build and render progress.
func WithProgress(cb models.ProgressCallback) Option {
	return func(p *Pipeline) {
		p.progress = cb
	}
}

// WithProbe replaces ffprobe as the source of clip metadata.
func WithProbe(fn ProbeFunc) Option {
	return func(p *Pipeline) {
		p.probe = fn
	}
}

// New creates a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		catalog: bundle.NewCatalog(cfg.BundleDir, cfg.Sources),
		logger:  slog.Default(),
		probe:   ffprobe.ProbeAsset,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Catalog returns the source catalog.
func (p *Pipeline) Catalog() *bundle.Catalog {
	return p.catalog
}

// NewPlanner configures a planner from the segment settings.
func NewPlanner(sc config.SegmentConfig) (*planner.Planner, error) {
	timing, err := sc.Timing()
	if err != nil {
		return nil, fmt.Errorf("invalid segment config: %w", err)
	}

	pl := planner.NewPlanner().
		SetSegmentDuration(timing.Duration).
		SetCount(timing.Count).
		SetGap(timing.Gap).
		SetSourceStart(timing.SourceStart)
	if timing.SourceGap != nil {
		pl.SetSourceGap(*timing.SourceGap)
	}
	if timing.TargetGap != nil {
		pl.SetTargetGap(*timing.TargetGap)
	}
	return pl, nil
}

// Plan computes the segment plan for the configuration.
func (p *Pipeline) Plan() ([]models.Segment, error) {
	pl, err := NewPlanner(p.cfg.Segment)
	if err != nil {
		return nil, err
	}
	plan, err := pl.Plan()
	if err != nil {
		return nil, err
	}
	if err := planner.ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Source resolves name in the catalog and probes it. An empty name selects
// the configured source.
func (p *Pipeline) Source(ctx context.Context, name string) (*models.SourceAsset, error) {
	if name == "" {
		name = p.cfg.Source
	}
	path, err := p.catalog.Resolve(name)
	if err != nil {
		return nil, err
	}
	asset, err := p.probe(ctx, name, path)
	if err != nil {
		return nil, err
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	return asset, nil
}

// Compose probes the source, plans and builds the composition.
func (p *Pipeline) Compose(ctx context.Context, buildID, sourceName string) (*composition.Composition, error) {
	progress := models.NewBuildProgress(buildID, 1)
	p.report(progress, models.ProgressStatePlanning)

	asset, err := p.Source(ctx, sourceName)
	if err != nil {
		return nil, err
	}

	plan, err := p.Plan()
	if err != nil {
		return nil, err
	}

	// Out-of-range segments fail in the builder with a SegmentError.
	if err := planner.CheckSourceBounds(plan, asset.Duration); err != nil {
		p.logger.WarnContext(ctx, "plan exceeds source", "build_id", buildID, "error", err)
	}

	b := builder.New(
		builder.WithLogger(p.logger),
		builder.WithBuildID(buildID),
		builder.WithProgress(p.progress),
	)
	return b.Build(ctx, asset, plan)
}

// Renderer returns the configured renderer.
func (p *Pipeline) Renderer(buildID string) (render.Renderer, error) {
	kind, err := render.ParseKind(p.cfg.Renderer)
	if err != nil {
		return nil, err
	}
	return render.New(kind, render.Options{
		FFmpeg: render.FFmpegOptions{
			Video: render.VideoSettings{
				Codec:       p.cfg.Video.Codec,
				CRF:         p.cfg.Video.CRF,
				Preset:      p.cfg.Video.Preset,
				PixelFormat: p.cfg.Video.PixelFormat,
			},
			Workers:   p.cfg.Workers,
			WorkDir:   p.cfg.WorkDir,
			KeepParts: p.cfg.KeepParts,
			BuildID:   buildID,
			Progress:  p.progress,
			Logger:    p.logger,
		},
		FCPXML: render.FCPXMLOptions{
			ProjectName: strings.TrimSuffix(filepath.Base(p.cfg.Output), filepath.Ext(p.cfg.Output)),
			BuildID:     buildID,
		},
	})
}

// Generate runs one full generation: Stage followed by Commit.
func (p *Pipeline) Generate(ctx context.Context, req session.Request) (*models.ComposedAsset, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	asset, err := p.Stage(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		p.Discard(req, asset)
		return nil, err
	}
	if err := p.Commit(req, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// Stage renders the composition next to its final path. The returned asset
// points at the partial file until Commit moves it into place.
func (p *Pipeline) Stage(ctx context.Context, req session.Request) (*models.ComposedAsset, error) {
	buildID := req.ID
	if buildID == "" {
		buildID = uuid.NewString()
	}

	comp, err := p.Compose(ctx, buildID, req.Source)
	if err != nil {
		return nil, err
	}

	r, err := p.Renderer(buildID)
	if err != nil {
		return nil, err
	}

	tmp := partialPath(p.outputFor(req), buildID)
	asset, err := r.Render(ctx, comp, tmp)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	asset.Path = tmp
	return asset, nil
}

// Commit renames a staged asset over the output path.
func (p *Pipeline) Commit(req session.Request, asset *models.ComposedAsset) error {
	output := p.outputFor(req)
	if err := os.Rename(asset.Path, output); err != nil {
		os.Remove(asset.Path)
		return errors.Wrap(err, "failed to move output into place")
	}
	asset.Path = output

	p.report(models.NewBuildProgress(asset.BuildID, 1), models.ProgressStateCompleted)
	return nil
}

// Discard removes a staged asset that will not be committed.
func (p *Pipeline) Discard(req session.Request, asset *models.ComposedAsset) {
	if asset == nil || asset.Path == p.outputFor(req) {
		return
	}
	if err := os.Remove(asset.Path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("failed to remove staged output", "path", asset.Path, "error", err)
	}
}

func (p *Pipeline) outputFor(req session.Request) string {
	if req.Output != "" {
		return req.Output
	}
	return p.cfg.Output
}

// DryRun builds the composition and returns what would be run: the ffmpeg
// command lines, or the FCPXML document.
func (p *Pipeline) DryRun(ctx context.Context, sourceName string) ([]string, error) {
	buildID := uuid.NewString()
	comp, err := p.Compose(ctx, buildID, sourceName)
	if err != nil {
		return nil, err
	}
	r, err := p.Renderer(buildID)
	if err != nil {
		return nil, err
	}

	switch r := r.(type) {
	case *render.FFmpegRenderer:
		return r.DryRun(comp, p.cfg.Output)
	case *render.FCPXMLRenderer:
		data, err := r.Marshal(comp)
		if err != nil {
			return nil, err
		}
		return []string{string(data)}, nil
	default:
		return nil, fmt.Errorf("renderer %s has no dry run", r.Kind())
	}
}

func (p *Pipeline) report(progress *models.BuildProgress, state models.ProgressState) {
	if p.progress == nil {
		return
	}
	progress.Advance(state)
	p.progress(progress)
}

// partialPath keeps the extension so ffmpeg can pick the muxer.
func partialPath(output, buildID string) string {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	id := buildID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s.%s.partial%s", base, id, ext)
}
