package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amanzi/verification/internal/amanzixml"
	"github.com/amanzi/verification/internal/observation"
	"github.com/amanzi/verification/internal/slice"
)

// SlicesOptions holds flags for the slices command.
type SlicesOptions struct {
	*RootOptions
	Dir    string
	Slices []string
}

// SliceSeries is one collected slice, sorted by distance.
type SliceSeries struct {
	Name     string     `json:"name"`
	Fixed    slice.Axis `json:"fixed"`
	Value    float64    `json:"value"`
	Vary     slice.Axis `json:"vary"`
	Distance []float64  `json:"distance"`
	Values   []float64  `json:"values"`
}

// SlicesResult is the payload of the slices command.
type SlicesResult struct {
	Observations int           `json:"observations"`
	Slices       []SliceSeries `json:"slices"`
}

func (r SlicesResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d observation(s)\n", r.Observations)
	for _, s := range r.Slices {
		fmt.Fprintf(&b, "\n%s (%s=%g, along %s): %d point(s)\n", s.Name, s.Fixed, s.Value, s.Vary, len(s.Distance))
		for i := range s.Distance {
			fmt.Fprintf(&b, "%14.6f %16.8e\n", s.Distance[i], s.Values[i])
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewSlicesCommand creates the slices command.
func NewSlicesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SlicesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "slices <input.xml>",
		Short: "Print slices of a finished simulation",
		Long: `Load the observation file a simulation wrote, attach region coordinates from
the input descriptor, and print each requested slice.

A slice is given as name:axis=value:vary, for example centerline:y=0.0:x.

Example:
  amanzi-verify slices input.xml --dir amanzi-output --slice centerline:y=0.0:x`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlices(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "amanzi-output", "run directory holding the observation file")
	cmd.Flags().StringArrayVar(&opts.Slices, "slice", nil, "slice as name:axis=value:vary (repeatable)")
	_ = cmd.MarkFlagRequired("slice")

	return cmd
}

func runSlices(opts *SlicesOptions, input string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	specs := make([]slice.Spec, 0, len(opts.Slices))
	for _, raw := range opts.Slices {
		spec, err := ParseSliceFlag(raw)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --slice", err)
		}
		specs = append(specs, spec)
	}

	desc, err := amanzixml.Load(input)
	if err != nil {
		return formatter.Fail("load input", err)
	}
	data, err := observation.Load(desc, opts.Dir)
	if err != nil {
		return formatter.Fail("load observations", err)
	}
	scatter, err := slice.Collect(data.Observations, specs)
	if err != nil {
		return formatter.Fail("collect slices", err)
	}

	res := SlicesResult{Observations: len(data.Observations)}
	for _, spec := range specs {
		sorted := scatter[spec.Name].Sorted()
		res.Slices = append(res.Slices, SliceSeries{
			Name:     spec.Name,
			Fixed:    spec.Fixed,
			Value:    spec.Value,
			Vary:     spec.Vary,
			Distance: sorted.Distance,
			Values:   sorted.Value,
		})
	}
	return formatter.Success(res)
}

// ParseSliceFlag parses "name:axis=value:vary".
func ParseSliceFlag(raw string) (slice.Spec, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || parts[0] == "" {
		return slice.Spec{}, fmt.Errorf("slice %q: want name:axis=value:vary", raw)
	}
	axis, value, ok := strings.Cut(parts[1], "=")
	if !ok {
		return slice.Spec{}, fmt.Errorf("slice %q: want axis=value, got %q", raw, parts[1])
	}

	fixed, err := slice.ParseAxis(axis)
	if err != nil {
		return slice.Spec{}, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return slice.Spec{}, fmt.Errorf("slice %q: %w", raw, err)
	}
	vary, err := slice.ParseAxis(parts[2])
	if err != nil {
		return slice.Spec{}, err
	}

	spec := slice.Spec{Name: parts[0], Fixed: fixed, Value: v, Vary: vary}
	return spec, spec.Validate()
}
