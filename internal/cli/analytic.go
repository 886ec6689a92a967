package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amanzi/verification/internal/analytic"
	"github.com/amanzi/verification/internal/slice"
)

// AnalyticOptions holds flags for the analytic command.
type AnalyticOptions struct {
	*RootOptions
	Dir  string
	Vary string
}

// AnalyticResult is the decoded solution of one AT123D-AT run.
type AnalyticResult struct {
	Input    string         `json:"input"`
	Source   analytic.Point `json:"source"`
	Grid     [3]int         `json:"grid"`
	Time     float64        `json:"time"`
	Vary     slice.Axis     `json:"vary"`
	Distance []float64      `json:"distance"`
	C        []float64      `json:"c"`
}

func (r AnalyticResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: grid %dx%dx%d, source (%g, %g, %g), time %g\n",
		r.Input, r.Grid[0], r.Grid[1], r.Grid[2], r.Source.X, r.Source.Y, r.Source.Z, r.Time)
	fmt.Fprintf(&b, "%14s %16s\n", "distance", "c")
	n := min(len(r.Distance), len(r.C))
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%14.6f %16.8e\n", r.Distance[i], r.C[i])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewAnalyticCommand creates the analytic command.
func NewAnalyticCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyticOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analytic <input.list>",
		Short: "Print an AT123D-AT solution",
		Long: `Read the setup and solution files AT123D-AT wrote for an input deck and print
the concentration along one axis, measured from the source.

Example:
  amanzi-verify analytic at123d-at_centerline.list --dir at123d-at --vary x`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalytic(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "at123d-at", "directory holding the solver output")
	cmd.Flags().StringVar(&opts.Vary, "vary", "x", "axis to measure distance along (x|y|z)")

	return cmd
}

func runAnalytic(opts *AnalyticOptions, input string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	vary, err := slice.ParseAxis(opts.Vary)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --vary", err)
	}

	sol, err := analytic.Read(input, opts.Dir, vary)
	if err != nil {
		return formatter.Fail("read analytic solution", err)
	}

	series := sol.Series()
	return formatter.Success(AnalyticResult{
		Input:    input,
		Source:   sol.Source,
		Grid:     [3]int{sol.NX, sol.NY, sol.NZ},
		Time:     sol.Time,
		Vary:     vary,
		Distance: series.Distance,
		C:        series.Value,
	})
}
