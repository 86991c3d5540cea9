// Package builder splices a segment plan into a composition.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"compositor/composition"
	"compositor/models"
)

// ErrNoVideoTrack is returned when a build ends without a video track.
var ErrNoVideoTrack = errors.New("composition has no video track")

// SegmentError identifies the segment whose insertion failed.
type SegmentError struct {
	Index   int
	Segment models.Segment
	Err     error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (%s): %v", e.Index, e.Segment.String(), e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

// Builder inserts every segment of a plan into a fresh composition.
type Builder struct {
	logger   *slog.Logger
	progress models.ProgressCallback
	buildID  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for per-segment debug output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithProgress sets a callback invoked after every inserted segment.
func WithProgress(cb models.ProgressCallback) Option {
	return func(b *Builder) {
		b.progress = cb
	}
}

// WithBuildID tags progress updates and log lines with id.
func WithBuildID(id string) Option {
	return func(b *Builder) {
		b.buildID = id
	}
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build inserts plan into a new composition, in order, then strips every
// non-video track.
//
// Cancellation is checked before each insertion. A cancelled build returns
// ctx.Err() and no composition. The first failed insertion aborts the build
// with a *SegmentError.
func (b *Builder) Build(ctx context.Context, source *models.SourceAsset, plan []models.Segment) (*composition.Composition, error) {
	if source == nil {
		return nil, fmt.Errorf("source asset cannot be nil")
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("plan is empty")
	}

	log := b.logger.With("build_id", b.buildID, "source", source.Name)
	start := time.Now()
	log.InfoContext(ctx, "Start", "segments", len(plan))

	progress := models.NewBuildProgress(b.buildID, len(plan))
	comp := composition.New()

	for _, seg := range plan {
		if err := ctx.Err(); err != nil {
			log.InfoContext(ctx, "build cancelled", "at_segment", seg.Index)
			return nil, err
		}

		log.DebugContext(ctx, seg.String(), "index", seg.Index)

		if err := comp.InsertTimeRange(seg.Source, source, seg.Target.Start); err != nil {
			return nil, &SegmentError{Index: seg.Index, Segment: seg, Err: err}
		}

		progress.Advance(models.ProgressStateBuilding)
		if b.progress != nil {
			b.progress(progress)
		}
	}

	removed := comp.RemoveNonVideoTracks()
	if comp.VideoTrack() == nil {
		return nil, ErrNoVideoTrack
	}

	log.InfoContext(ctx, "Complete",
		"seconds", time.Since(start).Seconds(),
		"removed_tracks", removed,
	)
	log.InfoContext(ctx, "Tracks count", "count", len(comp.Tracks()))

	return comp, nil
}
