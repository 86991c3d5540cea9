package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"compositor/models"
	"compositor/pipeline"
	"compositor/planner"
)

var checkSource bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the segment plan",
	Long: `Print every (source | target) pair of the segment plan.

With --check the source clip is probed and the first segment that runs past
its end is reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p := pipeline.New(cfg, pipeline.WithLogger(slog.Default()))

		plan, err := p.Plan()
		if err != nil {
			return err
		}
		printPlan(out, plan)
		fmt.Fprintf(out, "\nTotal duration: %s\n", planner.TotalDuration(plan))
		fmt.Fprintf(out, "Source extent:  %s\n", planner.SourceExtent(plan))

		if !checkSource {
			return nil
		}

		asset, err := p.Source(cmd.Context(), cfg.Source)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Source clip:    %s (%s)\n", asset.Duration, asset.Path)

		err = planner.CheckSourceBounds(plan, asset.Duration)
		var be *planner.BoundsError
		if errors.As(err, &be) {
			fmt.Fprintf(out, "❌ %v\n", be)
			return err
		}
		fmt.Fprintln(out, "✓ Every segment is inside the source clip")
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVar(&checkSource, "check", false, "Probe the source and check the plan against its duration")
}

func printPlan(out io.Writer, plan []models.Segment) {
	for i := range plan {
		fmt.Fprintln(out, plan[i].String())
	}
}
