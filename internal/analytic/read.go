package analytic

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/slice"
)

// OutputPaths returns the setup and solution file paths AT123D-AT writes in
// dir for input deck input.
func OutputPaths(input, dir string) (setup, soln string) {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_setup.out"), filepath.Join(dir, base+"_soln.out")
}

// Read loads the analytic solution produced for input in dir and shifts its
// coordinates along vary to be relative to the source.
//
// A missing or unreadable file is a file-access error.
func Read(input, dir string, vary slice.Axis) (*Solution, error) {
	setupPath, solnPath := OutputPaths(input, dir)

	f, err := os.Open(setupPath)
	if err != nil {
		return nil, errs.FileAccess("open setup file", setupPath, err)
	}
	setup, err := ReadSetup(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	f, err = os.Open(solnPath)
	if err != nil {
		return nil, errs.FileAccess("open solution file", solnPath, err)
	}
	sol, err := ReadSolution(f, setup)
	f.Close()
	if err != nil {
		return nil, err
	}

	if err := sol.Shift(vary); err != nil {
		return nil, err
	}
	return sol, nil
}
