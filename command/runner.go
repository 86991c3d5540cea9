package command

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"

	"compositor/ffmpeg"
)

// Binary is the ffmpeg executable used by RunFFmpeg.
var Binary = "ffmpeg"

// waitDelay bounds how long Wait blocks on output pipes after a kill.
const waitDelay = 2 * time.Second

// RunFFmpeg runs ffmpeg with args and waits for it to exit.
//
// Without a callback the combined output is captured and quoted on failure.
// With a callback, ffmpeg is asked to write machine-readable progress to
// stderr and every update is passed to callback.
func RunFFmpeg(ctx context.Context, args []string, callback ffmpeg.ProgressCallback) error {
	if callback == nil {
		cmd := exec.CommandContext(ctx, Binary, args...)
		cmd.WaitDelay = waitDelay
		output, err := cmd.CombinedOutput()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "ffmpeg failed (output: %s)", tail(string(output), 2000))
		}
		return nil
	}

	full := append([]string{"-nostats", "-progress", "pipe:2"}, args...)
	cmd := exec.CommandContext(ctx, Binary, full...)
	cmd.WaitDelay = waitDelay

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start ffmpeg")
	}

	progress := &ffmpeg.Progress{}
	errorLines, parseErr := ffmpeg.NewProgressParser().StreamProgress(stderr, progress, callback)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(errorLines) > 0 {
			return errors.Wrapf(err, "ffmpeg failed: %s", strings.Join(errorLines, "; "))
		}
		return errors.Wrap(err, "ffmpeg failed")
	}

	return parseErr
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
