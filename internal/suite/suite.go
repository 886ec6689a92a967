// Package suite loads verification suite definitions.
//
// A suite names the simulator input, the slices to cut, the subtests to run,
// the analytic cases to compare against, and the tables and plots to produce:
//
//	name: dispersion_aligned_point_2d
//	input: amanzi_dispersion_aligned_point_2d-u.xml
//	slices:
//	  - {name: centerline, fixed: y, value: 0.0, vary: x}
//	subtests:
//	  - name: coarse
//	    parameters: {Transport Integration Algorithm: Explicit First-Order}
//	analytic:
//	  - {name: centerline, slice: centerline, input_file: at123d-at_centerline.list}
//	tables:
//	  - slice: centerline
//	    filename: table_centerline.txt
//	    columns:
//	      - {header: "x [m]", datasrc: Amanzi, subtest: coarse, variable: distance}
//	      - {header: "AT123D-AT", datasrc: Analytic}
//
// Files are decoded strictly, checked against an embedded CUE schema, and
// then checked for cross references.
package suite

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/report"
	"github.com/amanzi/verification/internal/slice"
)

// Defaults applied when a suite leaves them out.
const (
	DefaultAnalyticDir = "at123d-at"
	DefaultPlotWidth   = 800
	DefaultPlotHeight  = 600
)

// Suite is a verification suite definition.
type Suite struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Input       string         `yaml:"input"`
	Slices      []Slice        `yaml:"slices"`
	Subtests    []Subtest      `yaml:"subtests"`
	Analytic    []AnalyticCase `yaml:"analytic,omitempty"`
	Tables      []Table        `yaml:"tables,omitempty"`
	Plots       []Plot         `yaml:"plots,omitempty"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`

	layouts []report.Layout
}

// Slice is one named cut through the observation plane.
type Slice struct {
	Name   string    `yaml:"name"`
	Fixed  string    `yaml:"fixed"`
	Value  float64   `yaml:"value"`
	Vary   string    `yaml:"vary"`
	Domain []float64 `yaml:"domain,omitempty"`
}

// Spec converts s to a collector spec.
func (s Slice) Spec() (slice.Spec, error) {
	fixed, err := slice.ParseAxis(s.Fixed)
	if err != nil {
		return slice.Spec{}, fmt.Errorf("slice %q: %w", s.Name, err)
	}
	vary, err := slice.ParseAxis(s.Vary)
	if err != nil {
		return slice.Spec{}, fmt.Errorf("slice %q: %w", s.Name, err)
	}
	spec := slice.Spec{Name: s.Name, Fixed: fixed, Value: s.Value, Vary: vary}
	if len(s.Domain) == 2 {
		spec.Domain = [2]float64{s.Domain[0], s.Domain[1]}
	}
	return spec, spec.Validate()
}

// PlotStyle is how a series is drawn.
type PlotStyle struct {
	Marker    string `yaml:"marker,omitempty"`
	Color     string `yaml:"color,omitempty"`
	LineStyle string `yaml:"linestyle,omitempty"`
	Label     string `yaml:"label,omitempty"`
}

// Style converts to the reporter's style.
func (p PlotStyle) Style() report.Style {
	return report.Style{Marker: p.Marker, Color: p.Color, LineStyle: p.LineStyle, Label: p.Label}
}

// Subtest is one simulator run.
type Subtest struct {
	Name string `yaml:"name"`

	// Directory is the run directory. Defaults to "amanzi-output-<name>".
	Directory string `yaml:"directory,omitempty"`

	// MeshFile overrides the descriptor's mesh file.
	MeshFile string `yaml:"mesh_file,omitempty"`

	// Parameters overrides descriptor parameters by name.
	Parameters map[string]string `yaml:"parameters,omitempty"`

	Plot PlotStyle `yaml:"plot,omitempty"`
}

// AnalyticCase is one analytic solver run.
type AnalyticCase struct {
	Name      string    `yaml:"name"`
	Slice     string    `yaml:"slice"`
	Directory string    `yaml:"directory,omitempty"`
	InputFile string    `yaml:"input_file"`
	Plot      PlotStyle `yaml:"plot,omitempty"`
}

// Table is a raw table layout. Columns are decoded by Layouts.
type Table struct {
	Slice    string           `yaml:"slice"`
	Filename string           `yaml:"filename"`
	Errors   bool             `yaml:"errors,omitempty"`
	Columns  []map[string]any `yaml:"columns"`
}

// Plot is one overlay figure.
type Plot struct {
	Slice    string `yaml:"slice"`
	Filename string `yaml:"filename"`
	Title    string `yaml:"title,omitempty"`
	XLabel   string `yaml:"xlabel,omitempty"`
	YLabel   string `yaml:"ylabel,omitempty"`
	Width    int    `yaml:"width,omitempty"`
	Height   int    `yaml:"height,omitempty"`
}

// Load reads and validates the suite at path.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.FileAccess("read suite", path, err)
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, errs.Config("load suite", path, err)
	}
	return s, nil
}

// Parse decodes and validates a suite. dir is the base for relative paths.
func Parse(data []byte, dir string) (*Suite, error) {
	var s Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	s.Dir = dir
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Suite) applyDefaults() {
	for i := range s.Subtests {
		if s.Subtests[i].Directory == "" {
			s.Subtests[i].Directory = "amanzi-output-" + s.Subtests[i].Name
		}
	}
	for i := range s.Analytic {
		if s.Analytic[i].Directory == "" {
			s.Analytic[i].Directory = DefaultAnalyticDir
		}
	}
	for i := range s.Plots {
		if s.Plots[i].Width == 0 {
			s.Plots[i].Width = DefaultPlotWidth
		}
		if s.Plots[i].Height == 0 {
			s.Plots[i].Height = DefaultPlotHeight
		}
	}
}

// Path resolves p against the suite directory.
func (s *Suite) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Dir, p)
}

// Specs returns the collector spec for every slice.
func (s *Suite) Specs() ([]slice.Spec, error) {
	specs := make([]slice.Spec, 0, len(s.Slices))
	for _, sl := range s.Slices {
		spec, err := sl.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// SliceSpec returns the spec for the named slice.
func (s *Suite) SliceSpec(name string) (slice.Spec, bool) {
	for _, sl := range s.Slices {
		if sl.Name == name {
			spec, err := sl.Spec()
			return spec, err == nil
		}
	}
	return slice.Spec{}, false
}

// Layouts returns the decoded table layouts.
func (s *Suite) Layouts() []report.Layout {
	return s.layouts
}
