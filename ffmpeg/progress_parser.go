// Package ffmpeg parses the progress ffmpeg reports while it runs.
package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Progress is the latest state ffmpeg reported for one run.
type Progress struct {
	Frame     int64
	FPS       float64
	OutTimeUS int64
	Speed     float64
	Done      bool
}

// ProgressCallback receives progress updates while ffmpeg runs.
type ProgressCallback func(progress *Progress)

// ProgressParser parses ffmpeg stderr output for progress metrics
type ProgressParser struct {
	frameRegex   *regexp.Regexp
	fpsRegex     *regexp.Regexp
	outTimeRegex *regexp.Regexp
	timeRegex    *regexp.Regexp
	speedRegex   *regexp.Regexp
}

// NewProgressParser creates a new parser for ffmpeg progress output
func NewProgressParser() *ProgressParser {
	return &ProgressParser{
		// Match both "frame=123" and "frame= 123" formats
		frameRegex:   regexp.MustCompile(`^frame=\s*(\d+)`),
		fpsRegex:     regexp.MustCompile(`(?:^|\s)fps=\s*([0-9.]+)`),
		outTimeRegex: regexp.MustCompile(`^out_time_(?:us|ms)=\s*(-?\d+)`),
		timeRegex:    regexp.MustCompile(`(?:^|\s)(?:out_)?time=\s*([0-9:\.]+)`),
		speedRegex:   regexp.MustCompile(`(?:^|\s)speed=\s*([0-9.]+)x?`),
	}
}

// ParseLine parses a single line of ffmpeg output and updates the progress.
// Handles both -stats format (all data on one line) and -progress format
// (key=value per line). out_time_ms is in microseconds despite its name.
func (pp *ProgressParser) ParseLine(line string, progress *Progress) bool {
	line = strings.TrimSpace(line)
	if line == "" || line == "progress=continue" {
		return false
	}
	if line == "progress=end" {
		progress.Done = true
		return true
	}

	updated := false

	if matches := pp.frameRegex.FindStringSubmatch(line); len(matches) > 1 {
		if frame, err := strconv.ParseInt(matches[1], 10, 64); err == nil {
			progress.Frame = frame
			updated = true
		}
	}

	if matches := pp.fpsRegex.FindStringSubmatch(line); len(matches) > 1 {
		if fps, err := strconv.ParseFloat(matches[1], 64); err == nil {
			progress.FPS = fps
			updated = true
		}
	}

	if matches := pp.outTimeRegex.FindStringSubmatch(line); len(matches) > 1 {
		if us, err := strconv.ParseInt(matches[1], 10, 64); err == nil && us >= 0 {
			progress.OutTimeUS = us
			updated = true
		}
	} else if matches := pp.timeRegex.FindStringSubmatch(line); len(matches) > 1 {
		if us, ok := timestampToMicroseconds(matches[1]); ok {
			progress.OutTimeUS = us
			updated = true
		}
	}

	if matches := pp.speedRegex.FindStringSubmatch(line); len(matches) > 1 {
		if speed, err := strconv.ParseFloat(matches[1], 64); err == nil {
			progress.Speed = speed
			updated = true
		}
	}

	return updated
}

// StreamProgress reads ffmpeg output until EOF, calling callback after every
// line that changed progress. The last few lines that mention an error are
// returned, oldest first.
func (pp *ProgressParser) StreamProgress(reader io.Reader, progress *Progress, callback ProgressCallback) ([]string, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var errorLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if pp.ParseLine(line, progress) {
			if callback != nil {
				callback(progress)
			}
		} else if strings.Contains(line, "error") || strings.Contains(line, "Error") {
			errorLines = append(errorLines, strings.TrimSpace(line))
			if len(errorLines) > 20 {
				errorLines = errorLines[1:]
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return errorLines, fmt.Errorf("error reading ffmpeg output: %w", err)
	}

	return errorLines, nil
}

// timestampToMicroseconds converts ffmpeg time format (HH:MM:SS.ffffff).
func timestampToMicroseconds(ts string) (int64, bool) {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, false
	}

	hours, err1 := strconv.ParseInt(parts[0], 10, 64)
	minutes, err2 := strconv.ParseInt(parts[1], 10, 64)
	secStr, fracStr, _ := strings.Cut(parts[2], ".")
	seconds, err3 := strconv.ParseInt(secStr, 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	var frac int64
	if fracStr != "" {
		if len(fracStr) > 6 {
			fracStr = fracStr[:6]
		}
		f, err := strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return 0, false
		}
		for i := len(fracStr); i < 6; i++ {
			f *= 10
		}
		frac = f
	}

	return ((hours*60+minutes)*60+seconds)*1_000_000 + frac, true
}
