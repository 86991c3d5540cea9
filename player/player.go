// Package player hands composed assets to a rendering surface.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"compositor/models"
)

// Presenter shows a composed asset. A later Present replaces whatever the
// previous call showed.
type Presenter interface {
	Present(ctx context.Context, asset *models.ComposedAsset) error
	Close() error
}

// LogPresenter only logs the asset it is given.
type LogPresenter struct {
	logger *slog.Logger

	mu      sync.Mutex
	current *models.ComposedAsset
}

// NewLogPresenter creates a LogPresenter. A nil logger uses slog.Default.
func NewLogPresenter(logger *slog.Logger) *LogPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPresenter{logger: logger}
}

// Present records asset as the one on screen.
func (p *LogPresenter) Present(ctx context.Context, asset *models.ComposedAsset) error {
	if asset == nil {
		return fmt.Errorf("asset cannot be nil")
	}
	p.mu.Lock()
	p.current = asset
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "presenting",
		"build_id", asset.BuildID,
		"path", asset.Path,
		"renderer", asset.Renderer,
		"duration", asset.Duration.String(),
		"tracks", len(asset.Tracks),
	)
	return nil
}

// Current returns the last presented asset.
func (p *LogPresenter) Current() *models.ComposedAsset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *LogPresenter) Close() error {
	return nil
}

// FFPlayPresenter plays video assets in an ffplay window. Each Present
// stops the previous window before opening a new one.
type FFPlayPresenter struct {
	Binary string
	Loop   bool
	logger *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewFFPlayPresenter creates an FFPlayPresenter.
func NewFFPlayPresenter(logger *slog.Logger) *FFPlayPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFPlayPresenter{Binary: "ffplay", Loop: true, logger: logger}
}

// Args returns the ffplay arguments for path.
func (p *FFPlayPresenter) Args(path string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-an"}
	if p.Loop {
		args = append(args, "-loop", "0")
	} else {
		args = append(args, "-autoexit")
	}
	return append(args, "-window_title", "compositor", path)
}

// Present starts ffplay on asset.Path.
func (p *FFPlayPresenter) Present(ctx context.Context, asset *models.ComposedAsset) error {
	if asset == nil {
		return fmt.Errorf("asset cannot be nil")
	}
	if asset.Renderer != "" && asset.Renderer != "ffmpeg" {
		p.logger.InfoContext(ctx, "not playable, skipping", "path", asset.Path, "renderer", asset.Renderer)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	// The window outlives the request that produced it.
	cmd := exec.Command(p.Binary, p.Args(asset.Path)...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start %s", p.Binary)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := cmd.Wait(); err != nil {
			p.logger.Debug("player exited", "error", err)
		}
	}()

	p.cmd = cmd
	p.done = done
	p.logger.InfoContext(ctx, "playing", "path", asset.Path, "pid", cmd.Process.Pid)
	return nil
}

// Close stops the player window, if any.
func (p *FFPlayPresenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Wait blocks until the current window is closed.
func (p *FFPlayPresenter) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *FFPlayPresenter) stopLocked() {
	if p.cmd == nil {
		return
	}
	select {
	case <-p.done:
	default:
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	p.cmd = nil
	p.done = nil
}
