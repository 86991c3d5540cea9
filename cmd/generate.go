package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"compositor/config"
	"compositor/models"
	"compositor/pipeline"
	"compositor/player"
	"compositor/session"
)

var (
	presses       int
	pressInterval time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build and render the composed video",
	Long: `Build the composition from the configured source and render it.

--presses triggers the generation several times, --press-interval apart, the
way repeated clicks on a Generate button would. Each new request cancels the
one in flight; only the last one can replace the presented asset.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if presses < 1 {
			return fmt.Errorf("--presses must be at least 1")
		}
		if cfg.DryRun {
			return runDryRun(cmd.Context(), cmd.OutOrStdout(), cfg)
		}
		return runGenerate(cmd.Context(), cmd.OutOrStdout(), cfg)
	},
}

func init() {
	generateCmd.Flags().IntVar(&presses, "presses", 1, "Number of generate requests to issue")
	generateCmd.Flags().DurationVar(&pressInterval, "press-interval", 0, "Delay between generate requests")
}

func runGenerate(ctx context.Context, out io.Writer, cfg *config.Config) error {
	startTime := time.Now()

	fmt.Fprintln(out, "╔════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║                  COMPOSITOR - GENERATE                         ║")
	fmt.Fprintln(out, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintf(out, "Source:   %s\n", cfg.Source)
	fmt.Fprintf(out, "Output:   %s\n", cfg.Output)
	fmt.Fprintf(out, "Renderer: %s\n", cfg.Renderer)
	fmt.Fprintln(out)

	progress := newProgressPrinter(out)
	p := pipeline.New(cfg, pipeline.WithLogger(slog.Default()), pipeline.WithProgress(progress.update))

	var presenter player.Presenter = player.NewLogPresenter(slog.Default())
	var ffplay *player.FFPlayPresenter
	if cfg.Play {
		ffplay = player.NewFFPlayPresenter(slog.Default())
		presenter = ffplay
	}
	defer presenter.Close()

	store := session.NewStore(p, presenter, slog.Default())

	results := make([]<-chan session.Result, 0, presses)
	for i := 0; i < presses; i++ {
		if i > 0 && pressInterval > 0 {
			select {
			case <-time.After(pressInterval):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}
		results = append(results, store.Start(ctx, session.Request{Source: cfg.Source, Output: cfg.Output}))
	}

	var last session.Result
	for i, ch := range results {
		res := <-ch
		progress.clear()
		fmt.Fprintf(out, "  Request %d (%s): %s\n", i+1, shortID(res.ID), res.Outcome)
		if res.Err != nil {
			fmt.Fprintf(out, "    %v\n", res.Err)
		}
		last = res
	}
	fmt.Fprintln(out)

	if err := ctx.Err(); err != nil {
		return err
	}

	switch last.Outcome {
	case session.OutcomeSucceeded:
	case session.OutcomeCancelled:
		return context.Canceled
	default:
		return fmt.Errorf("generation %s: %w", last.Outcome, last.Err)
	}

	asset := store.Current()
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(out, "                     ✅ SUCCESS!")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(out, "  Output:      %s\n", asset.Path)
	fmt.Fprintf(out, "  Duration:    %s (%.3fs)\n", asset.Duration.FCPString(), asset.Duration.Seconds())
	fmt.Fprintf(out, "  Segments:    %d\n", asset.Segments)
	fmt.Fprintf(out, "  Tracks:      %d\n", len(asset.Tracks))
	if info, err := os.Stat(asset.Path); err == nil {
		fmt.Fprintf(out, "  Size:        %.2f MB\n", float64(info.Size())/(1024*1024))
	}
	fmt.Fprintf(out, "  Total time:  %.2fs\n", time.Since(startTime).Seconds())
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")

	if ffplay != nil {
		fmt.Fprintln(out, "\n▶️  Playing, close the window or press Ctrl+C to exit")
		done := make(chan struct{})
		go func() {
			ffplay.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	return nil
}

func runDryRun(ctx context.Context, out io.Writer, cfg *config.Config) error {
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(out, "                      DRY RUN MODE")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	cfg.PrintConfig(out)

	p := pipeline.New(cfg, pipeline.WithLogger(slog.Default()))
	plan, err := p.Plan()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\n📐 Segment Plan")
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	printPlan(out, plan)

	lines, err := p.DryRun(ctx, cfg.Source)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\n🎬 Render")
	fmt.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out, "\n✓ Configuration is valid. Nothing was rendered.")
	return nil
}

// progressPrinter rewrites a single status line. Updates may come from
// render workers, so writes are serialised.
type progressPrinter struct {
	mu         sync.Mutex
	out        io.Writer
	lastUpdate time.Time
	dirty      bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) update(bp *models.BuildProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	final := bp.Done == bp.Total || bp.State == models.ProgressStateCompleted
	if !final && time.Since(p.lastUpdate) < 100*time.Millisecond {
		return
	}
	p.lastUpdate = time.Now()
	fmt.Fprintf(p.out, "\r  ⏳ %-60s", bp.FormatSummary())
	p.dirty = true
}

func (p *progressPrinter) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty {
		fmt.Fprintln(p.out)
		p.dirty = false
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
