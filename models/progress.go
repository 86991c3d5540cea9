package models

import (
	"fmt"
	"time"
)

// ProgressState represents the current stage of a generation.
type ProgressState string

const (
	ProgressStateQueued    ProgressState = "queued"    // Waiting to start
	ProgressStatePlanning  ProgressState = "planning"  // Computing the segment plan
	ProgressStateBuilding  ProgressState = "building"  // Inserting segments
	ProgressStateRendering ProgressState = "rendering" // Producing the playable asset
	ProgressStateCompleted ProgressState = "completed" // Successfully finished
	ProgressStateFailed    ProgressState = "failed"    // Encountered an error
	ProgressStateCancelled ProgressState = "cancelled" // Superseded or cancelled
)

// BuildProgress reports how far a generation has got.
type BuildProgress struct {
	BuildID string
	State   ProgressState

	// Done and Total count inserted segments while building and finished
	// tasks while rendering.
	Done  int
	Total int

	// RenderedUS is the output position ffmpeg reported last, in microseconds.
	RenderedUS int64

	StartTime time.Time
	UpdatedAt time.Time
}

// ProgressCallback receives progress updates during a generation.
type ProgressCallback func(progress *BuildProgress)

// NewBuildProgress creates a new progress tracker.
func NewBuildProgress(buildID string, total int) *BuildProgress {
	now := time.Now()
	return &BuildProgress{
		BuildID:   buildID,
		State:     ProgressStateQueued,
		Total:     total,
		StartTime: now,
		UpdatedAt: now,
	}
}

// Advance records one more finished unit in the given state.
func (bp *BuildProgress) Advance(state ProgressState) {
	if bp.State != state {
		bp.State = state
		bp.Done = 0
	}
	if bp.Done < bp.Total {
		bp.Done++
	}
	bp.UpdatedAt = time.Now()
}

// Percent returns Done/Total as a percentage.
func (bp *BuildProgress) Percent() float64 {
	if bp.Total <= 0 {
		return 0
	}
	return float64(bp.Done) / float64(bp.Total) * 100
}

// FormatSummary returns a human-readable summary of the progress.
func (bp *BuildProgress) FormatSummary() string {
	return fmt.Sprintf("%s %d/%d (%.0f%%) elapsed %s",
		bp.State, bp.Done, bp.Total, bp.Percent(), formatDuration(time.Since(bp.StartTime)))
}

// formatDuration converts a duration to a human-readable string
func formatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}

	minutes := seconds / 60
	seconds = seconds % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}
