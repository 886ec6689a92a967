// Package report turns aligned simulation and analytic series into
// fixed-width comparison tables, overlay plots and a markdown summary.
package report

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Data source tags used in table layouts.
const (
	SourceAmanzi   = "Amanzi"
	SourceAnalytic = "Analytic"
)

// Variables a column can select.
const (
	VarDistance      = "distance"
	VarConcentration = "c"
)

// Source identifies where a column's values come from.
// Implemented by FromSimulation and FromAnalytic.
type Source interface {
	sourceTag() string
}

// FromSimulation reads a collected simulation series.
type FromSimulation struct {
	// Subtest names the simulation run.
	Subtest string `mapstructure:"subtest"`

	// Variable is "distance" for the slice coordinate; any other name selects
	// the observed value.
	Variable string `mapstructure:"variable"`
}

func (FromSimulation) sourceTag() string { return SourceAmanzi }

// FromAnalytic reads an analytic solution.
type FromAnalytic struct {
	// Case names the analytic solution. Empty means the case named after the
	// table's slice.
	Case string `mapstructure:"analytic"`

	// IndepVar is the array matched against the master column:
	// "distance", "x", "y" or "z".
	IndepVar string `mapstructure:"idepvar"`

	// Variable is the array reported: "c" or "distance".
	Variable string `mapstructure:"variable"`
}

func (FromAnalytic) sourceTag() string { return SourceAnalytic }

// Column is one table column.
type Column struct {
	Header string
	Source Source
}

// Layout describes one comparison table. The first column is the master
// column: its values, sorted ascending, key every row.
type Layout struct {
	Slice    string
	Filename string
	Columns  []Column

	// Errors appends an absolute-difference column per simulation value
	// column against the first analytic column.
	Errors bool
}

// DecodeColumn builds a Column from a loosely typed map such as a decoded
// YAML mapping. The "datasrc" key selects the source type; unknown keys are
// rejected.
func DecodeColumn(raw map[string]any) (Column, error) {
	header, _ := raw["header"].(string)
	if header == "" {
		return Column{}, fmt.Errorf("column: header is required")
	}
	tag, _ := raw["datasrc"].(string)

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "header" && k != "datasrc" {
			fields[k] = v
		}
	}

	var src Source
	switch tag {
	case SourceAmanzi:
		var s FromSimulation
		if err := decodeStrict(fields, &s); err != nil {
			return Column{}, fmt.Errorf("column %q: %w", header, err)
		}
		if s.Subtest == "" {
			return Column{}, fmt.Errorf("column %q: subtest is required", header)
		}
		if s.Variable == "" {
			s.Variable = VarDistance
		}
		src = s
	case SourceAnalytic:
		var s FromAnalytic
		if err := decodeStrict(fields, &s); err != nil {
			return Column{}, fmt.Errorf("column %q: %w", header, err)
		}
		if s.IndepVar == "" {
			s.IndepVar = VarDistance
		}
		if s.Variable == "" {
			s.Variable = VarConcentration
		}
		src = s
	default:
		return Column{}, fmt.Errorf("column %q: unknown datasrc %q (want %s or %s)", header, tag, SourceAmanzi, SourceAnalytic)
	}

	return Column{Header: header, Source: src}, nil
}

func decodeStrict(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
