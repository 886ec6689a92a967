package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amanzi/verification/internal/harness"
	"github.com/amanzi/verification/internal/report"
	"github.com/amanzi/verification/internal/runner"
	"github.com/amanzi/verification/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Overwrite   bool
	MetricsFile string

	// Runner options appended after the defaults (for testing).
	RunnerOptions []runner.Option
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	Suite  string          `json:"suite"`
	Runs   []runner.Result `json:"runs"`
	Tables []TableReport   `json:"tables"`
	Plots  []string        `json:"plots"`
	Failed int             `json:"failed"`
}

// TableReport is one table in a RunReport.
type TableReport struct {
	Table  *report.Table        `json:"table"`
	Errors []report.ColumnError `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run a verification suite",
		Long: `Run every subtest and analytic case of a suite, then write its tables and plots.

Runs whose directory holds a completion marker are skipped; use --overwrite
to start them again. Output files are written next to the suite file.

Example:
  amanzi-verify run dispersion_aligned_point_2d.yaml
  amanzi-verify run --overwrite --metrics-file verify.prom suite.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "re-run completed directories")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runSuite(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := formatter.Logger()

	s, err := suite.Load(path)
	if err != nil {
		return formatter.Fail("load suite", err)
	}
	logger.Info("suite loaded", "name", s.Name, "subtests", len(s.Subtests), "analytic", len(s.Analytic))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(append([]runner.Option{
		runner.WithLogger(logger),
		runner.WithOverwrite(opts.Overwrite),
	}, opts.RunnerOptions...)...)

	var metrics *harness.Metrics
	if opts.MetricsFile != "" {
		metrics = harness.NewMetrics()
	}

	res, err := harness.New(s, r, harness.WithLogger(logger), harness.WithMetrics(metrics)).Run(ctx)
	if metrics != nil {
		if werr := metrics.WriteFile(opts.MetricsFile); werr != nil {
			logger.Error("metrics not written", "error", werr)
		}
	}
	if err != nil {
		return formatter.Fail("run suite", err)
	}

	failed := res.Failed()
	if opts.Format == "json" {
		rep := RunReport{Suite: res.Suite, Runs: res.Runs, Plots: res.Plots, Failed: len(failed)}
		for _, ts := range res.Tables {
			rep.Tables = append(rep.Tables, TableReport{Table: ts.Table, Errors: ts.Errors})
		}
		if err := formatter.Success(rep); err != nil {
			return err
		}
	} else {
		summary := res.Summary
		if formatter.IsTerminal() {
			if rendered, rerr := report.RenderMarkdown(summary); rerr == nil {
				summary = rendered
			}
		}
		fmt.Fprint(formatter.Writer, summary)
		for _, f := range failed {
			fmt.Fprintf(formatter.Writer, "FAILED %s in %s (exit code %d, see %s)\n", f.Tool, f.Dir, f.ExitCode, f.OutputPath)
		}
	}

	if len(failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d run(s) failed", len(failed)))
	}
	return nil
}
