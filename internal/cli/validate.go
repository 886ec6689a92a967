package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amanzi/verification/internal/suite"
)

// ValidationResult summarises a valid suite.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Name     string   `json:"name"`
	Slices   []string `json:"slices"`
	Subtests []string `json:"subtests"`
	Analytic []string `json:"analytic"`
	Tables   int      `json:"tables"`
	Plots    int      `json:"plots"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ suite %s is valid\n", r.Name)
	fmt.Fprintf(&b, "  slices:   %s\n", strings.Join(r.Slices, ", "))
	fmt.Fprintf(&b, "  subtests: %s\n", strings.Join(r.Subtests, ", "))
	fmt.Fprintf(&b, "  analytic: %s\n", strings.Join(r.Analytic, ", "))
	fmt.Fprintf(&b, "  %d table(s), %d plot(s)", r.Tables, r.Plots)
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite.yaml>",
		Short: "Validate a suite without running it",
		Long: `Decode a suite file strictly, check it against the suite schema, and check
that every table and plot references a known slice, subtest or analytic case.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, err := suite.Load(path)
	if err != nil {
		return formatter.Fail("invalid suite", err)
	}

	res := ValidationResult{
		Valid:  true,
		Name:   s.Name,
		Tables: len(s.Tables),
		Plots:  len(s.Plots),
	}
	for _, sl := range s.Slices {
		res.Slices = append(res.Slices, sl.Name)
	}
	for _, st := range s.Subtests {
		res.Subtests = append(res.Subtests, st.Name)
	}
	for _, ac := range s.Analytic {
		res.Analytic = append(res.Analytic, ac.Name)
	}
	return formatter.Success(res)
}
