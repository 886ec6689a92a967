package harness

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/runner"
	"github.com/amanzi/verification/internal/suite"
	"github.com/amanzi/verification/internal/testutil"
)

const inputXML = `<ParameterList name="Main">
  <ParameterList name="Mesh">
    <ParameterList name="Read Mesh File">
      <Parameter name="File" type="string" value="mesh.exo"/>
    </ParameterList>
  </ParameterList>
  <ParameterList name="Regions">
    <ParameterList name="Obs_r1">
      <ParameterList name="Region: Point">
        <Parameter name="Coordinate" type="Array(double)" value="{0.0, 0.0}"/>
      </ParameterList>
    </ParameterList>
    <ParameterList name="Obs_r2">
      <ParameterList name="Region: Point">
        <Parameter name="Coordinate" type="Array(double)" value="{2.0, 0.0}"/>
      </ParameterList>
    </ParameterList>
    <ParameterList name="Obs_r3">
      <ParameterList name="Region: Point">
        <Parameter name="Coordinate" type="Array(double)" value="{1.0, 0.0}"/>
      </ParameterList>
    </ParameterList>
    <ParameterList name="Obs_r4">
      <ParameterList name="Region: Point">
        <Parameter name="Coordinate" type="Array(double)" value="{0.0, 5.0}"/>
      </ParameterList>
    </ParameterList>
  </ParameterList>
  <ParameterList name="Transport">
    <Parameter name="Transport Integration Algorithm" type="string" value="Explicit First-Order"/>
  </ParameterList>
  <ParameterList name="Output">
    <ParameterList name="Observation Data">
      <Parameter name="Observation Output Filename" type="string" value="observation.out"/>
    </ParameterList>
  </ParameterList>
</ParameterList>
`

const suiteYAML = `
name: point_2d
input: input.xml
slices:
  - {name: centerline, fixed: y, value: 0.0, vary: x}
subtests:
  - name: first_order
    mesh_file: ../mesh.exo
    parameters:
      Transport Integration Algorithm: Explicit Second-Order
    plot: {marker: s, color: r}
analytic:
  - {name: centerline, slice: centerline, input_file: at123d-at_centerline.list, plot: {color: k, label: AT123D-AT}}
tables:
  - slice: centerline
    filename: table_centerline.txt
    errors: true
    columns:
      - {header: "x [m]", datasrc: Amanzi, subtest: first_order, variable: distance}
      - {header: "First order", datasrc: Amanzi, subtest: first_order, variable: value}
      - {header: "AT123D-AT", datasrc: Analytic}
plots:
  - {slice: centerline, filename: centerline.png, title: Centerline, width: 400, height: 300}
`

const amanziBody = `cat > observation.out <<'OBS'
Observation Name, Region, Functional, Variable, Time, Value
===========================================================
obs1, Obs_r1, Observation Data: Point, Aqueous concentration, 0.0, 0.1
obs2, Obs_r2, Observation Data: Point, Aqueous concentration, 0.0, 0.3
obs3, Obs_r3, Observation Data: Point, Aqueous concentration, 0.0, 0.2
obs4, Obs_r4, Observation Data: Point, Aqueous concentration, 0.0, 0.9
obs1, Obs_r1, Observation Data: Point, Aqueous concentration, 1.0, 0.5
OBS`

const at123dBody = `base=$(basename "$1" .list)
cat > "${base}_setup.out" <<'SETUP'
 NO. OF POINTS IN X-DIRECTION ....  3
 NO. OF POINTS IN Y-DIRECTION ....  1
 NO. OF POINTS IN Z-DIRECTION ....  1
 BEGIN POINT OF X-SOURCE LOCATION  0.0
 END POINT OF X-SOURCE LOCATION    0.0
SETUP
cat > "${base}_soln.out" <<'SOLN'
 0.0 1.0 2.0
 0.0
 0.0
 TIME (YEARS) =  1.0000E+02
 0.1 0.25 0.3
SOLN`

type fixture struct {
	dir    string
	suite  *suite.Suite
	amanzi *testutil.FakeTool
	at123d *testutil.FakeTool
}

func newFixture(t *testing.T, amanzi string) *fixture {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.xml"), []byte(inputXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "at123d-at_centerline.list"), []byte("deck\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "suite.yaml"), []byte(suiteYAML), 0o644))

	s, err := suite.Load(filepath.Join(dir, "suite.yaml"))
	require.NoError(t, err)

	return &fixture{
		dir:    dir,
		suite:  s,
		amanzi: testutil.WriteFakeTool(t, "bin/amanzi", amanzi),
		at123d: testutil.WriteFakeTool(t, "bin/at123d-at", at123dBody),
	}
}

func (f *fixture) env(key string) (string, bool) {
	switch key {
	case runner.Amanzi.EnvVar:
		return f.amanzi.Root, true
	case runner.AT123DAT.EnvVar:
		return f.at123d.Root, true
	}
	return "", false
}

func (f *fixture) harness(m *Metrics, opts ...runner.Option) *Harness {
	base := []runner.Option{
		runner.WithLookupEnv(f.env),
		runner.WithIDGenerator(testutil.NewFixedRunIDGenerator("run-0001")),
		runner.WithClock(testutil.NewDeterministicClock().Now),
	}
	r := runner.New(append(base, opts...)...)
	return New(f.suite, r, WithMetrics(m), WithClock(testutil.NewDeterministicClock().Now))
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, amanziBody)
	m := NewMetrics()

	res, err := f.harness(m).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Failed())
	require.Len(t, res.Runs, 2)

	series := res.Simulations["first_order"]["centerline"]
	require.NotNil(t, series)
	assert.Equal(t, []float64{0, 2, 1}, series.Distance, "collection keeps file order")
	assert.Equal(t, []float64{0.1, 0.3, 0.2}, series.Value, "first sample of each observation")

	sol := res.Analytic["centerline"]
	require.NotNil(t, sol)
	assert.Equal(t, []float64{0, 1, 2}, sol.Distance)

	require.Len(t, res.Tables, 1)
	AssertTableGolden(t, "centerline_table", res.Tables[0].Table)

	rendered, err := os.ReadFile(filepath.Join(f.dir, "table_centerline.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(rendered), "First order")

	require.Len(t, res.Tables[0].Errors, 1)
	assert.InDelta(t, 0.05, res.Tables[0].Errors[0].MaxAbs, 1e-12)

	require.Len(t, res.Plots, 1)
	png, err := os.ReadFile(res.Plots[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(png), "\x89PNG"))

	assert.Contains(t, res.Summary, "| table_centerline.txt | centerline | 3 | 0 |")

	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues("amanzi", StatusCompleted)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues("at123d-at", StatusCompleted)))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.points.WithLabelValues("first_order", "centerline")))
}

func TestRun_StagesPatchedInput(t *testing.T) {
	f := newFixture(t, amanziBody)
	_, err := f.harness(nil).Run(context.Background())
	require.NoError(t, err)

	runDir := filepath.Join(f.dir, "amanzi-output-first_order")
	staged, err := os.ReadFile(filepath.Join(runDir, "input.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(staged), `value="Explicit Second-Order"`)
	assert.Contains(t, string(staged), `value="../mesh.exo"`)

	calls := f.amanzi.Calls(t)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "--xml_file="+filepath.Join(runDir, "input.xml"))

	original, err := os.ReadFile(filepath.Join(f.dir, "input.xml"))
	require.NoError(t, err)
	assert.Equal(t, inputXML, string(original), "suite input is never modified")
}

func TestRun_SecondRunSkips(t *testing.T) {
	f := newFixture(t, amanziBody)
	m := NewMetrics()

	_, err := f.harness(nil).Run(context.Background())
	require.NoError(t, err)

	res, err := f.harness(m).Run(context.Background())
	require.NoError(t, err)
	for _, run := range res.Runs {
		assert.True(t, run.Skipped, run.Tool)
	}
	assert.Len(t, f.amanzi.Calls(t), 1)
	assert.Len(t, f.at123d.Calls(t), 1)
	assert.Equal(t, 3, res.Tables[0].Table.Rows())
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues("amanzi", StatusSkipped)))

	res, err = f.harness(nil, runner.WithOverwrite(true)).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Runs[0].Skipped)
	assert.Len(t, f.amanzi.Calls(t), 2)
}

func TestRun_FailedSimulation(t *testing.T) {
	f := newFixture(t, "exit 3")
	m := NewMetrics()

	res, err := f.harness(m).Run(context.Background())
	require.NoError(t, err)

	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "amanzi", failed[0].Tool)
	assert.Equal(t, 3, failed[0].ExitCode)
	assert.NotContains(t, res.Simulations, "first_order")
	assert.Empty(t, res.Tables)
	assert.Empty(t, res.Plots)

	marker, err := runner.ReadMarker(failed[0].Dir, failed[0].Input)
	require.NoError(t, err)
	assert.Nil(t, marker)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.runs.WithLabelValues("amanzi", StatusFailed)))
}

func TestRun_MissingEnvironment(t *testing.T) {
	f := newFixture(t, amanziBody)
	r := runner.New(runner.WithLookupEnv(func(string) (string, bool) { return "", false }))

	_, err := New(f.suite, r).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMANZI_INSTALL_DIR")
	assert.True(t, errs.IsConfig(err))

	_, statErr := os.Stat(filepath.Join(f.dir, "amanzi-output-first_order", "input.xml"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist), "no staged input without an installation")
}

func TestMetrics_WriteFile(t *testing.T) {
	m := NewMetrics()
	m.ObserveRun(runner.Result{Tool: "amanzi"}, 0)
	m.ObservePoints("first_order", "centerline", 7)

	path := filepath.Join(t.TempDir(), "verify.prom")
	require.NoError(t, m.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `amanzi_verify_runs_total{status="completed",tool="amanzi"} 1`)
	assert.Contains(t, string(data), `amanzi_verify_slice_points{slice="centerline",subtest="first_order"} 7`)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObservePoints("a", "b", 1) })
}
