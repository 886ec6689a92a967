package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Marker records a completed run. Its presence in a run directory is what
// makes a later Run call skip the subprocess.
//
// A directory that holds output but no marker belongs to a run that was
// interrupted or failed, and is re-run.
type Marker struct {
	RunID    string    `json:"run_id"`
	Tool     string    `json:"tool"`
	Input    string    `json:"input"`
	ExitCode int       `json:"exit_code"`
	Finished time.Time `json:"finished"`
}

// MarkerPath returns the completion marker path for input inside dir.
// Several inputs may share one run directory, so the marker is keyed on the
// input's base name.
func MarkerPath(dir, input string) string {
	return filepath.Join(dir, "."+filepath.Base(input)+".complete")
}

// ReadMarker loads the completion marker for input in dir.
// Returns (nil, nil) when no marker exists.
func ReadMarker(dir, input string) (*Marker, error) {
	data, err := os.ReadFile(MarkerPath(dir, input))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read marker: %w", err)
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse marker %s: %w", MarkerPath(dir, input), err)
	}
	return &m, nil
}

func writeMarker(dir, input string, m Marker) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	if err := os.WriteFile(MarkerPath(dir, input), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

func removeMarker(dir, input string) error {
	err := os.Remove(MarkerPath(dir, input))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}
	return nil
}
