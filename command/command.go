// Package command provides the core Command interface and priority support
// for building and executing FFmpeg commands.
//
// The cut and concat builders implement the Command interface, allowing the
// orchestrator to run render tasks without knowing what they do.
package command

import "context"

// Priority levels for task execution.
// Higher priority tasks are started first when several are ready.
const (
	PriorityLow    = 0  // Low priority tasks (e.g., optional post-processing)
	PriorityNormal = 5  // Normal priority tasks (e.g., cutting a part)
	PriorityHigh   = 10 // High priority tasks (e.g., final concatenation)
)

// TaskType represents the type of render task.
type TaskType string

const (
	TaskTypeCut    TaskType = "cut"    // Cut and re-encode one part of the video track
	TaskTypeConcat TaskType = "concat" // Join parts into the final asset
)

// Command represents an FFmpeg command that can be built, executed, or previewed.
//
// Example usage:
//
//	cmd := cut.NewCutBuilder("clip.mov", src, "part_000.mp4").
//		SetPadding(mediatime.Zero, mediatime.New(1, 30)).
//		SetCRF(18)
//
//	// Preview the command
//	cmd.DryRun()
//
//	// Execute the command
//	cmd.Run(ctx)
type Command interface {
	// BuildArgs constructs and returns the FFmpeg command arguments as a slice.
	// The returned slice is suitable for exec.Command("ffmpeg", args...).
	BuildArgs() []string

	// Run executes the FFmpeg command and blocks until it exits.
	// Cancelling ctx kills the ffmpeg process.
	Run(ctx context.Context) error

	// DryRun returns the FFmpeg command as a string without executing it.
	DryRun() (string, error)

	// GetPriority returns the priority level for task scheduling.
	GetPriority() int

	// SetPriority sets the priority level for task scheduling.
	// Returns the Command for method chaining.
	SetPriority(priority int) Command

	// GetTaskType returns the type of task (cut, concat).
	GetTaskType() TaskType

	// GetInputPath returns the primary input file path for this command.
	GetInputPath() string

	// GetOutputPath returns the output file path for this command.
	GetOutputPath() string
}
