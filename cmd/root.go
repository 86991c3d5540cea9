package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"compositor/config"
)

// cfg is loaded once per invocation by the root command's pre-run hook.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "compositor",
	Short: "Splice a source clip into a segmented video timeline",
	Long: `Compositor slices a bundled source clip into equal segments, splices each
segment into a new timeline at exact rational offsets, strips every non-video
track and renders the result with ffmpeg (or as an FCPXML timeline).

Configuration is layered: defaults, config file, environment (COMPOSITOR_*,
.env) and flags, in increasing priority.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Verbose))
		return nil
	},
}

// Execute runs the CLI and exits non-zero on failure. An interrupt cancels
// the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\n⚠️  Cancelled by user")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(configCmd)
}
