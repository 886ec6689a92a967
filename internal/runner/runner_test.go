package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/testutil"
)

func newTestRunner(tool *testutil.FakeTool, envVar string, opts ...Option) *Runner {
	base := []Option{
		WithLookupEnv(tool.Env(envVar)),
		WithIDGenerator(testutil.NewFixedRunIDGenerator("run-0001")),
		WithClock(testutil.NewDeterministicClock().Now),
	}
	return New(append(base, opts...)...)
}

func TestRun_WritesOutputAndMarker(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/amanzi", `echo "stdout line"; echo "stderr line" 1>&2`)
	r := newTestRunner(tool, "AMANZI_INSTALL_DIR")

	dir := filepath.Join(t.TempDir(), "amanzi-output")
	input := filepath.Join(t.TempDir(), "case.xml")

	res, err := r.Run(context.Background(), Amanzi, input, dir)
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Skipped)
	assert.Equal(t, "run-0001", res.RunID)

	out, err := os.ReadFile(filepath.Join(dir, OutputFile))
	require.NoError(t, err)
	assert.Contains(t, string(out), "stdout line")
	assert.Contains(t, string(out), "stderr line")

	calls := tool.Calls(t)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "--xml_file="+input)

	// The child ran inside the run directory.
	absDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	inDir := strings.HasPrefix(calls[0], dir+" ") || strings.HasPrefix(calls[0], absDir+" ")
	assert.True(t, inDir, "call %q not in %q", calls[0], dir)

	m, err := ReadMarker(dir, input)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "run-0001", m.RunID)
	assert.Equal(t, "amanzi", m.Tool)
	assert.Equal(t, "case.xml", m.Input)
}

func TestRun_SkipsCompletedDirectory(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/amanzi", "true")
	r := newTestRunner(tool, "AMANZI_INSTALL_DIR")

	dir := t.TempDir()
	input := "case.xml"

	_, err := r.Run(context.Background(), Amanzi, input, dir)
	require.NoError(t, err)
	require.Len(t, tool.Calls(t), 1)

	res, err := r.Run(context.Background(), Amanzi, input, dir)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "run-0001", res.RunID)
	assert.Len(t, tool.Calls(t), 1, "second run must not start the tool")
}

func TestRun_SkipDoesNotNeedEnvironment(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/amanzi", "true")
	dir := t.TempDir()

	_, err := newTestRunner(tool, "AMANZI_INSTALL_DIR").Run(context.Background(), Amanzi, "case.xml", dir)
	require.NoError(t, err)

	noEnv := New(WithLookupEnv(func(string) (string, bool) { return "", false }))
	res, err := noEnv.Run(context.Background(), Amanzi, "case.xml", dir)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestRun_RerunsDirectoryWithoutMarker(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/amanzi", "true")
	r := newTestRunner(tool, "AMANZI_INSTALL_DIR")

	dir := t.TempDir()
	// Leftovers from an interrupted run.
	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputFile), []byte("partial"), 0o644))

	res, err := r.Run(context.Background(), Amanzi, "case.xml", dir)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Len(t, tool.Calls(t), 1)
}

func TestRun_FailedRunLeavesNoMarker(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/amanzi", "exit 3")
	r := newTestRunner(tool, "AMANZI_INSTALL_DIR")
	dir := t.TempDir()

	res, err := r.Run(context.Background(), Amanzi, "case.xml", dir)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Empty(t, res.RunID)

	m, err := ReadMarker(dir, "case.xml")
	require.NoError(t, err)
	assert.Nil(t, m)

	// Next attempt runs again instead of treating the directory as complete.
	res, err = r.Run(context.Background(), Amanzi, "case.xml", dir)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Len(t, tool.Calls(t), 2)
}

func TestRun_Overwrite(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/amanzi", "true")
	dir := t.TempDir()

	_, err := newTestRunner(tool, "AMANZI_INSTALL_DIR").Run(context.Background(), Amanzi, "case.xml", dir)
	require.NoError(t, err)

	r := newTestRunner(tool, "AMANZI_INSTALL_DIR", WithOverwrite(true))
	res, err := r.Run(context.Background(), Amanzi, "case.xml", dir)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Len(t, tool.Calls(t), 2)
}

func TestRun_MarkersAreKeyedByInput(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/at123d-at", "true")
	r := newTestRunner(tool, "AMANZI_TPLS_DIR")
	dir := t.TempDir()

	_, err := r.Run(context.Background(), AT123DAT, "at123d-at_centerline.list", dir)
	require.NoError(t, err)
	res, err := r.Run(context.Background(), AT123DAT, "at123d-at_slice_x=0.list", dir)
	require.NoError(t, err)

	assert.False(t, res.Skipped, "a second input sharing the directory still runs")
	calls := tool.Calls(t)
	require.Len(t, calls, 2)
	assert.True(t, strings.HasSuffix(calls[1], "at123d-at_slice_x=0.list"))
}

func TestRun_MissingEnvironment(t *testing.T) {
	r := New(WithLookupEnv(func(string) (string, bool) { return "", false }))
	dir := filepath.Join(t.TempDir(), "out")

	_, err := r.Run(context.Background(), Amanzi, "case.xml", dir)
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
	assert.Contains(t, err.Error(), "AMANZI_INSTALL_DIR")

	// Only the directory was created.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_EmptyEnvironmentValue(t *testing.T) {
	r := New(WithLookupEnv(func(string) (string, bool) { return "", true }))
	_, err := r.Run(context.Background(), Amanzi, "case.xml", t.TempDir())
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
}

func TestResolve_MissingExecutable(t *testing.T) {
	root := t.TempDir()
	r := New(WithLookupEnv(func(string) (string, bool) { return root, true }))

	_, err := r.Resolve(Amanzi)
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
	assert.Contains(t, err.Error(), filepath.Join(root, "bin", "amanzi"))
}

func TestResolve_Found(t *testing.T) {
	tool := testutil.WriteFakeTool(t, "bin/amanzi", "true")
	r := New(WithLookupEnv(tool.Env("AMANZI_INSTALL_DIR")))

	exe, err := r.Resolve(Amanzi)
	require.NoError(t, err)
	assert.Equal(t, tool.Path, exe)
}

func TestToolArgs(t *testing.T) {
	assert.Equal(t, []string{"--xml_file=/a/b.xml"}, Amanzi.Args("/a/b.xml"))
	assert.Equal(t, []string{"/a/b.list"}, AT123DAT.Args("/a/b.list"))
}

func TestUUIDv7Generator(t *testing.T) {
	a := UUIDv7Generator{}.Generate()
	b := UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestCountOutput_IgnoresStagedInput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "input.xml"), []byte("<x/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stdout.out"), nil, 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, countOutput(entries, dir, filepath.Join(dir, "input.xml")))
	assert.Equal(t, 2, countOutput(entries, dir, "elsewhere/input.xml"))
}
