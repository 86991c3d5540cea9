package models

import (
	"fmt"
	"strings"
)

// PartResult represents the outcome of one render task (a cut part or the
// final concat).
//
// Successful results must have an output path and no error; failed results
// must have an error and no output path.
//
// Use NewPartResultSuccess or NewPartResultFailure to create validated instances.
type PartResult struct {
	TaskID     string `json:"task_id"`
	PartIndex  int    `json:"part_index"`
	OutputPath string `json:"output_path"`
	Success    bool   `json:"success"`
	Error      error  `json:"error"`
}

// NewPartResultSuccess creates a successful PartResult with validation.
func NewPartResultSuccess(taskID string, partIndex int, outputPath string) (*PartResult, error) {
	pr := &PartResult{
		TaskID:     taskID,
		PartIndex:  partIndex,
		OutputPath: outputPath,
		Success:    true,
	}
	if err := pr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid part result: %w", err)
	}
	return pr, nil
}

// NewPartResultFailure creates a failed PartResult. partErr must not be nil.
func NewPartResultFailure(taskID string, partIndex int, partErr error) (*PartResult, error) {
	if partErr == nil {
		return nil, fmt.Errorf("invalid part result: error cannot be nil for failed result")
	}
	return &PartResult{
		TaskID:    taskID,
		PartIndex: partIndex,
		Success:   false,
		Error:     partErr,
	}, nil
}

// Validate checks if the PartResult has consistent state.
func (pr *PartResult) Validate() error {
	if pr.Success && pr.Error != nil {
		return fmt.Errorf("inconsistent state: Success is true but Error is not nil")
	}

	if !pr.Success && pr.Error == nil {
		return fmt.Errorf("failed result must have an error")
	}

	if pr.Success && strings.TrimSpace(pr.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty for successful result")
	}

	if !pr.Success && strings.TrimSpace(pr.OutputPath) != "" {
		return fmt.Errorf("failed result should not have output_path")
	}

	return nil
}
