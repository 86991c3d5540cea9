package concatenator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"compositor/command"
	"compositor/models"
)

// ConcatBuilder is the final render task: it joins the parts produced by
// the cut tasks it depends on.
type ConcatBuilder struct {
	partPaths  []string
	outputPath string
	priority   int
	strict     bool
}

// NewConcatBuilder creates a concat task for partPaths, in order.
func NewConcatBuilder(partPaths []string, outputPath string) *ConcatBuilder {
	return &ConcatBuilder{
		partPaths:  partPaths,
		outputPath: outputPath,
		priority:   command.PriorityHigh,
		strict:     true,
	}
}

// listPath is where the list file would be written for DryRun output.
func (b *ConcatBuilder) listPath() string {
	if len(b.partPaths) == 0 {
		return "concat.txt"
	}
	return filepath.Join(filepath.Dir(b.partPaths[0]), "concat.txt")
}

// BuildArgs constructs the ffmpeg arguments for the concat.
func (b *ConcatBuilder) BuildArgs() []string {
	return concatArgs(b.listPath(), b.outputPath)
}

// Run concatenates the parts. Every part must exist.
func (b *ConcatBuilder) Run(ctx context.Context) error {
	if len(b.partPaths) == 0 {
		return fmt.Errorf("no parts to concatenate")
	}

	results := make([]*models.PartResult, len(b.partPaths))
	for i, p := range b.partPaths {
		results[i] = &models.PartResult{
			TaskID:     fmt.Sprintf("cut_%03d", i),
			PartIndex:  i,
			OutputPath: p,
			Success:    true,
		}
	}

	return NewConcatenator(b.strict).Concatenate(ctx, results, b.outputPath)
}

// DryRun returns the command that would be executed without running it
func (b *ConcatBuilder) DryRun() (string, error) {
	if len(b.partPaths) == 0 {
		return "", fmt.Errorf("no parts to concatenate")
	}
	return "ffmpeg " + strings.Join(b.BuildArgs(), " "), nil
}

// GetPriority returns the task priority
func (b *ConcatBuilder) GetPriority() int {
	return b.priority
}

// SetPriority sets the task priority
func (b *ConcatBuilder) SetPriority(priority int) command.Command {
	b.priority = priority
	return b
}

// GetTaskType returns the task type identifier
func (b *ConcatBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeConcat
}

// GetInputPath returns the first part path
func (b *ConcatBuilder) GetInputPath() string {
	if len(b.partPaths) == 0 {
		return ""
	}
	return b.partPaths[0]
}

// GetOutputPath returns the output file path
func (b *ConcatBuilder) GetOutputPath() string {
	return b.outputPath
}
