// Package harness runs a verification suite end to end.
//
// For every subtest the simulator input is patched and staged into the
// subtest directory, the simulator is run (or skipped when a completion
// marker is present), and its observations are cut into slices. Every
// analytic case is run through AT123D-AT and read back. The results are then
// aligned into tables, overlaid in plots and summarised.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/amanzi/verification/internal/amanzixml"
	"github.com/amanzi/verification/internal/analytic"
	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/observation"
	"github.com/amanzi/verification/internal/report"
	"github.com/amanzi/verification/internal/runner"
	"github.com/amanzi/verification/internal/slice"
	"github.com/amanzi/verification/internal/suite"
)

// Harness executes one suite.
type Harness struct {
	suite   *suite.Suite
	runner  *runner.Runner
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithMetrics records run statistics into m.
func WithMetrics(m *Metrics) Option {
	return func(h *Harness) { h.metrics = m }
}

// WithClock overrides the time source used to time tool runs.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) { h.now = now }
}

// New creates a Harness for s that launches tools with r.
func New(s *suite.Suite, r *runner.Runner, opts ...Option) *Harness {
	h := &Harness{
		suite:  s,
		runner: r,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Result is the outcome of a suite run.
type Result struct {
	Suite string

	// Runs holds every tool run in execution order.
	Runs []runner.Result

	// Simulations maps subtest name to collected slices. Failed subtests are
	// absent.
	Simulations map[string]slice.Scatter

	// Analytic maps analytic case name to its solution. Failed cases are
	// absent.
	Analytic map[string]*analytic.Solution

	Tables []report.TableSummary
	Plots  []string

	// Summary is the markdown run report.
	Summary string
}

// Failed returns the runs that exited non-zero.
func (r *Result) Failed() []runner.Result {
	var failed []runner.Result
	for _, run := range r.Runs {
		if run.ExitCode != 0 {
			failed = append(failed, run)
		}
	}
	return failed
}

// Run executes every subtest and analytic case, then writes tables and plots
// next to the suite file. Tables or plots that reference a failed run are
// not produced; the failure is visible in Result.Failed.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	res := &Result{Suite: h.suite.Name}

	sims, runs, err := h.SimulationResults(ctx)
	res.Runs = append(res.Runs, runs...)
	if err != nil {
		return res, err
	}
	res.Simulations = sims

	sols, runs, err := h.AnalyticSolutions(ctx)
	res.Runs = append(res.Runs, runs...)
	if err != nil {
		return res, err
	}
	res.Analytic = sols

	failed := len(res.Failed()) > 0
	src := report.Sources{Simulations: sims, Analytic: sols}

	for _, layout := range h.suite.Layouts() {
		tbl, err := report.Build(layout, src)
		if err != nil {
			if failed {
				h.logger.Warn("table skipped after failed run", "table", layout.Filename, "error", err)
				continue
			}
			return res, err
		}
		ts := report.TableSummary{Table: tbl}
		if hasAnalytic(tbl) {
			if ts.Errors, err = report.Compare(tbl); err != nil {
				return res, err
			}
		}
		if err := tbl.WriteFile(h.suite.Path(layout.Filename)); err != nil {
			return res, err
		}
		h.metrics.ObserveTable(ts)
		h.logger.Info("table written", "path", layout.Filename, "rows", tbl.Rows(), "unavailable", tbl.Unavailable())
		res.Tables = append(res.Tables, ts)
	}

	for _, p := range h.suite.Plots {
		path := h.suite.Path(p.Filename)
		if err := h.plot(p, src, path); err != nil {
			if failed {
				h.logger.Warn("plot skipped after failed run", "plot", p.Filename, "error", err)
				continue
			}
			return res, err
		}
		h.logger.Info("plot written", "path", p.Filename)
		res.Plots = append(res.Plots, path)
	}

	res.Summary = report.Summary(h.suite.Name, res.Tables)
	return res, nil
}

// SimulationResults runs every subtest and collects its slices.
//
// A subtest whose simulator exits non-zero is reported in the returned runs
// and left out of the map.
func (h *Harness) SimulationResults(ctx context.Context) (map[string]slice.Scatter, []runner.Result, error) {
	specs, err := h.suite.Specs()
	if err != nil {
		return nil, nil, err
	}

	scatters := make(map[string]slice.Scatter, len(h.suite.Subtests))
	var runs []runner.Result
	for _, st := range h.suite.Subtests {
		dir := h.suite.Path(st.Directory)
		desc, input, err := h.stage(st, dir)
		if err != nil {
			return scatters, runs, fmt.Errorf("subtest %s: %w", st.Name, err)
		}

		start := h.now()
		run, err := h.runner.Run(ctx, runner.Amanzi, input, dir)
		h.metrics.ObserveRun(run, h.now().Sub(start))
		runs = append(runs, run)
		if err != nil {
			return scatters, runs, fmt.Errorf("subtest %s: %w", st.Name, err)
		}
		if run.ExitCode != 0 {
			continue
		}

		data, err := observation.Load(desc, dir)
		if err != nil {
			return scatters, runs, fmt.Errorf("subtest %s: %w", st.Name, err)
		}
		scatter, err := slice.Collect(data.Observations, specs)
		if err != nil {
			return scatters, runs, fmt.Errorf("subtest %s: %w", st.Name, err)
		}
		for _, spec := range specs {
			n := scatter[spec.Name].Len()
			h.metrics.ObservePoints(st.Name, spec.Name, n)
			if n == 0 {
				h.logger.Warn("slice matched no observations", "subtest", st.Name, "slice", spec.Name)
			}
		}
		scatters[st.Name] = scatter
	}
	return scatters, runs, nil
}

// stage loads the suite input, applies the subtest's overrides and, unless
// the run is already complete, writes the patched copy into dir. Nothing is
// written when the simulator cannot be resolved.
func (h *Harness) stage(st suite.Subtest, dir string) (*amanzixml.Descriptor, string, error) {
	desc, err := amanzixml.Load(h.suite.Path(h.suite.Input))
	if err != nil {
		return nil, "", err
	}

	names := make([]string, 0, len(st.Parameters))
	for name := range st.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if desc.SetParameter(name, st.Parameters[name]) == 0 {
			h.logger.Warn("parameter not found in input", "subtest", st.Name, "parameter", name)
		}
	}
	if st.MeshFile != "" {
		if err := desc.SetMeshFile(st.MeshFile); err != nil {
			return nil, "", err
		}
	}

	input := filepath.Join(dir, filepath.Base(h.suite.Input))
	marker, err := runner.ReadMarker(dir, input)
	if err != nil {
		return nil, "", err
	}
	if marker != nil && !h.runner.Overwrite {
		return desc, input, nil
	}
	if _, err := h.runner.Resolve(runner.Amanzi); err != nil {
		return nil, "", err
	}
	if err := mkdir(dir); err != nil {
		return nil, "", err
	}
	if err := desc.WriteFile(input); err != nil {
		return nil, "", err
	}
	return desc, input, nil
}

// AnalyticSolutions runs AT123D-AT for every analytic case and reads the
// solution, shifted along the case's slice.
func (h *Harness) AnalyticSolutions(ctx context.Context) (map[string]*analytic.Solution, []runner.Result, error) {
	sols := make(map[string]*analytic.Solution, len(h.suite.Analytic))
	var runs []runner.Result
	for _, ac := range h.suite.Analytic {
		spec, ok := h.suite.SliceSpec(ac.Slice)
		if !ok {
			return sols, runs, fmt.Errorf("analytic case %s: unknown slice %q", ac.Name, ac.Slice)
		}

		dir := h.suite.Path(ac.Directory)
		input := h.suite.Path(ac.InputFile)

		start := h.now()
		run, err := h.runner.Run(ctx, runner.AT123DAT, input, dir)
		h.metrics.ObserveRun(run, h.now().Sub(start))
		runs = append(runs, run)
		if err != nil {
			return sols, runs, fmt.Errorf("analytic case %s: %w", ac.Name, err)
		}
		if run.ExitCode != 0 {
			continue
		}

		sol, err := analytic.Read(input, dir, spec.Vary)
		if err != nil {
			return sols, runs, fmt.Errorf("analytic case %s: %w", ac.Name, err)
		}
		sols[ac.Name] = sol
	}
	return sols, runs, nil
}

func (h *Harness) plot(p suite.Plot, src report.Sources, path string) error {
	spec, _ := h.suite.SliceSpec(p.Slice)
	fig := report.NewFigure(report.PlotSpec{
		Title:  p.Title,
		XLabel: p.XLabel,
		YLabel: p.YLabel,
		Width:  p.Width,
		Height: p.Height,
		Domain: spec.Domain,
	})

	for _, st := range h.suite.Subtests {
		scatter, ok := src.Simulations[st.Name]
		if !ok {
			return fmt.Errorf("plot %s: subtest %s has no results", p.Filename, st.Name)
		}
		style := st.Plot.Style()
		if style.Label == "" {
			style.Label = st.Name
		}
		fig.Scatter(scatter[p.Slice], style)
	}
	for _, ac := range h.suite.Analytic {
		if ac.Slice != p.Slice {
			continue
		}
		sol, ok := src.Analytic[ac.Name]
		if !ok {
			return fmt.Errorf("plot %s: analytic case %s has no results", p.Filename, ac.Name)
		}
		style := ac.Plot.Style()
		if style.Label == "" {
			style.Label = ac.Name
		}
		fig.Line(sol.Series(), style)
	}
	return fig.WriteFile(path)
}

func hasAnalytic(t *report.Table) bool {
	for _, k := range t.Kinds {
		if k == report.SourceAnalytic {
			return true
		}
	}
	return false
}

func mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.FileAccess("create run directory", dir, err)
	}
	return nil
}
