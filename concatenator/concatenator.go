// Package concatenator joins rendered parts into the final asset with
// ffmpeg's concat demuxer.
package concatenator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"compositor/command"
	"compositor/models"
)

// Concatenator handles merging rendered parts into a final output file
type Concatenator struct {
	strictMode bool // If true, fail if any parts are missing. If false, skip missing parts.
	logger     *slog.Logger
}

// NewConcatenator creates a new concatenator
func NewConcatenator(strictMode bool) *Concatenator {
	return &Concatenator{
		strictMode: strictMode,
		logger:     slog.Default(),
	}
}

// Concatenate merges parts into finalOutputPath without re-encoding.
// The list file is written next to the first part and removed afterwards.
func (c *Concatenator) Concatenate(ctx context.Context, results []*models.PartResult, finalOutputPath string) error {
	successful, failed, err := c.validateResults(results)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if len(failed) > 0 {
		if c.strictMode {
			return fmt.Errorf("strict mode: %d parts failed rendering", len(failed))
		}
		c.logger.WarnContext(ctx, "some parts failed, concatenating the rest",
			"failed", len(failed), "successful", len(successful))
	}

	if len(successful) == 0 {
		return fmt.Errorf("no successful parts to concatenate")
	}

	if err := c.checkForGaps(successful); err != nil {
		if c.strictMode {
			return fmt.Errorf("strict mode: %w", err)
		}
		c.logger.WarnContext(ctx, "gaps in part sequence", "error", err)
	}

	listPath, err := c.createConcatFile(filepath.Dir(successful[0].OutputPath), successful)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(listPath)

	if err := c.runConcat(ctx, listPath, finalOutputPath); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}

	return nil
}

// validateResults separates successful and failed results
func (c *Concatenator) validateResults(results []*models.PartResult) (successful, failed []*models.PartResult, err error) {
	if len(results) == 0 {
		return nil, nil, fmt.Errorf("no results provided")
	}

	for _, result := range results {
		if result.Success && result.OutputPath != "" {
			if _, err := os.Stat(result.OutputPath); err != nil {
				failed = append(failed, result)
			} else {
				successful = append(successful, result)
			}
		} else {
			failed = append(failed, result)
		}
	}

	sort.Slice(successful, func(i, j int) bool {
		return successful[i].PartIndex < successful[j].PartIndex
	})

	return successful, failed, nil
}

// checkForGaps detects missing parts in the sequence
func (c *Concatenator) checkForGaps(successful []*models.PartResult) error {
	if len(successful) == 0 {
		return nil
	}

	gaps := []int{}
	for i := 0; i < len(successful)-1; i++ {
		currentIndex := successful[i].PartIndex
		nextIndex := successful[i+1].PartIndex

		for idx := currentIndex + 1; idx < nextIndex; idx++ {
			gaps = append(gaps, idx)
		}
	}

	if len(gaps) > 0 {
		return fmt.Errorf("missing parts: %v", gaps)
	}

	return nil
}

// createConcatFile writes the list file read by ffmpeg's concat demuxer
// Format: file '/path/to/part_000.mp4'
//
//	file '/path/to/part_001.mp4'
func (c *Concatenator) createConcatFile(dir string, successful []*models.PartResult) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmpFile.Close()

	paths := make([]string, len(successful))
	for i, result := range successful {
		paths[i] = result.OutputPath
	}

	if err := writeList(tmpFile, paths); err != nil {
		return "", err
	}

	return tmpFile.Name(), nil
}

func writeList(f *os.File, paths []string) error {
	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", p, err)
		}

		// Single quotes are escaped as '\'' inside the quoted path.
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")

		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			return fmt.Errorf("failed to write to concat file: %w", err)
		}
	}
	return nil
}

// concatArgs builds the stream-copy concat command.
func concatArgs(listPath, outputPath string) []string {
	return ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(outputPath, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().
		GetArgs()
}

// runConcat executes ffmpeg concat operation
func (c *Concatenator) runConcat(ctx context.Context, listPath, outputPath string) error {
	if err := command.RunFFmpeg(ctx, concatArgs(listPath, outputPath), nil); err != nil {
		return err
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}

	return nil
}
