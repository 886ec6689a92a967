// Package runner launches the external simulation and analytic tools.
//
// Each run happens once per (input, directory) pair: the child process is
// started with its working directory set to the run directory, its combined
// stdout/stderr is captured in stdout.out, and a completion marker is written
// when it exits cleanly. A later Run against the same directory and input
// returns immediately without starting a process.
//
// The harness process never changes its own working directory.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/amanzi/verification/internal/errs"
)

// OutputFile is the name of the captured stdout/stderr file in a run directory.
const OutputFile = "stdout.out"

// Tool describes an external executable located under an install root that is
// named by an environment variable.
type Tool struct {
	// Name is used in logs and markers.
	Name string

	// EnvVar names the environment variable holding the install root.
	EnvVar string

	// Binary is the executable path relative to the install root.
	Binary string

	// Args builds the command line for an absolute input path.
	Args func(input string) []string
}

// Amanzi is the flow and transport simulator.
var Amanzi = Tool{
	Name:   "amanzi",
	EnvVar: "AMANZI_INSTALL_DIR",
	Binary: filepath.Join("bin", "amanzi"),
	Args: func(input string) []string {
		return []string{"--xml_file=" + input}
	},
}

// AT123DAT is the semi-analytic AT123D-AT solver used as reference solution.
var AT123DAT = Tool{
	Name:   "at123d-at",
	EnvVar: "AMANZI_TPLS_DIR",
	Binary: filepath.Join("bin", "at123d-at"),
	Args: func(input string) []string {
		return []string{input}
	},
}

// Result describes one Run call.
type Result struct {
	Tool       string `json:"tool"`
	Input      string `json:"input"`
	Dir        string `json:"dir"`
	ExitCode   int    `json:"exit_code"`
	Skipped    bool   `json:"skipped"`
	RunID      string `json:"run_id,omitempty"`
	OutputPath string `json:"output_path"`
}

// Runner starts tools in isolated run directories.
type Runner struct {
	// Overwrite discards existing completion markers so every Run starts the tool.
	Overwrite bool

	logger    *slog.Logger
	lookupEnv func(string) (string, bool)
	ids       IDGenerator
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithLookupEnv overrides environment lookup (for testing).
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Runner) { r.lookupEnv = fn }
}

// WithIDGenerator overrides the run id generator. Defaults to UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Runner) { r.ids = gen }
}

// WithClock overrides the time source used for marker timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithOverwrite forces re-runs of directories that already completed.
func WithOverwrite(overwrite bool) Option {
	return func(r *Runner) { r.Overwrite = overwrite }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		lookupEnv: os.LookupEnv,
		ids:       UUIDv7Generator{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the absolute path of tool's executable.
// A missing environment variable or a missing executable is a configuration error.
func (r *Runner) Resolve(tool Tool) (string, error) {
	root, ok := r.lookupEnv(tool.EnvVar)
	if !ok || root == "" {
		return "", errs.Config("resolve executable", tool.EnvVar,
			fmt.Errorf("missing %s installation, please set the %s environment variable", tool.Name, tool.EnvVar))
	}

	exe := filepath.Join(root, tool.Binary)
	info, err := os.Stat(exe)
	if err != nil {
		return "", errs.Config("resolve executable", exe,
			fmt.Errorf("missing %s installation, please build and install %s: %w", tool.Name, tool.Name, err))
	}
	if info.IsDir() {
		return "", errs.Config("resolve executable", exe, fmt.Errorf("%s is a directory", exe))
	}
	return exe, nil
}

// Run starts tool on input inside dir, unless dir already holds a completion
// marker for input. Relative input paths are resolved against the harness's
// working directory.
//
// The subprocess has no timeout: Run blocks until the child exits or ctx is
// cancelled. A non-zero exit code is reported in Result.ExitCode, not as an
// error, and leaves no marker behind.
func (r *Runner) Run(ctx context.Context, tool Tool, input, dir string) (Result, error) {
	result := Result{
		Tool:       tool.Name,
		Input:      input,
		Dir:        dir,
		OutputPath: filepath.Join(dir, OutputFile),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, errs.FileAccess("create run directory", dir, err)
	}

	if r.Overwrite {
		if err := removeMarker(dir, input); err != nil {
			return result, err
		}
	}

	marker, err := ReadMarker(dir, input)
	if err != nil {
		return result, err
	}
	if marker != nil {
		r.logger.Info("run already complete, skipping",
			"tool", tool.Name,
			"dir", dir,
			"run_id", marker.RunID,
		)
		result.Skipped = true
		result.ExitCode = marker.ExitCode
		result.RunID = marker.RunID
		return result, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return result, errs.FileAccess("list run directory", dir, err)
	}
	if n := countOutput(entries, dir, input); n > 0 {
		r.logger.Warn("run directory has output but no completion marker, re-running",
			"tool", tool.Name,
			"dir", dir,
			"entries", n,
		)
	}

	exe, err := r.Resolve(tool)
	if err != nil {
		return result, err
	}

	absInput, err := filepath.Abs(input)
	if err != nil {
		return result, fmt.Errorf("resolve input path: %w", err)
	}

	code, err := r.exec(ctx, exe, tool.Args(absInput), dir, result.OutputPath)
	if err != nil {
		return result, fmt.Errorf("run %s: %w", tool.Name, err)
	}
	result.ExitCode = code

	if code != 0 {
		r.logger.Error("tool exited with non-zero status",
			"tool", tool.Name,
			"dir", dir,
			"exit_code", code,
			"output", result.OutputPath,
		)
		return result, nil
	}

	result.RunID = r.ids.Generate()
	if err := writeMarker(dir, input, Marker{
		RunID:    result.RunID,
		Tool:     tool.Name,
		Input:    filepath.Base(input),
		ExitCode: code,
		Finished: r.now().UTC(),
	}); err != nil {
		return result, err
	}

	r.logger.Info("run complete",
		"tool", tool.Name,
		"dir", dir,
		"run_id", result.RunID,
	)
	return result, nil
}

// exec runs exe in dir with stdout and stderr merged into outputPath and
// returns the exit code.
func (r *Runner) exec(ctx context.Context, exe string, args []string, dir, outputPath string) (int, error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return -1, errs.FileAccess("create output file", outputPath, err)
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out

	r.logger.Debug("starting tool", "exe", exe, "args", args, "dir", dir)

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

// countOutput counts directory entries, not counting input itself when it
// was staged inside dir.
func countOutput(entries []os.DirEntry, dir, input string) int {
	staged := ""
	if filepath.Clean(filepath.Dir(input)) == filepath.Clean(dir) {
		staged = filepath.Base(input)
	}
	n := 0
	for _, e := range entries {
		if e.Name() != staged {
			n++
		}
	}
	return n
}
