package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/amanzi/verification/internal/analytic"
	"github.com/amanzi/verification/internal/errs"
	"github.com/amanzi/verification/internal/slice"
)

// Unavailable marks a cell whose master value has no exact match in the
// column's source.
const Unavailable = "Unavailable"

// Cell formats for the master column and every other column.
const (
	MasterFormat = "%4.2f"
	DataFormat   = "%10.8f"
)

// Sources holds everything a layout can reference.
type Sources struct {
	// Simulations maps subtest name to its collected slices.
	Simulations map[string]slice.Scatter

	// Analytic maps analytic case name to its solution.
	Analytic map[string]*analytic.Solution
}

// Cell is one table value.
type Cell struct {
	Value     float64
	Available bool
}

// Format renders the cell with the given verb, or Unavailable.
func (c Cell) Format(verb string) string {
	if !c.Available {
		return Unavailable
	}
	return fmt.Sprintf(verb, c.Value)
}

// Table is an aligned comparison table. Columns[0] is the master column.
type Table struct {
	Slice    string
	Filename string
	Headers  []string
	Kinds    []string
	Columns  [][]Cell
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Unavailable returns the number of cells with no matching source value.
func (t *Table) Unavailable() int {
	n := 0
	for _, col := range t.Columns {
		for _, c := range col {
			if !c.Available {
				n++
			}
		}
	}
	return n
}

// Strings returns the formatted rows.
func (t *Table) Strings() [][]string {
	rows := make([][]string, t.Rows())
	for r := range rows {
		rows[r] = make([]string, len(t.Columns))
		for c, col := range t.Columns {
			verb := DataFormat
			if c == 0 {
				verb = MasterFormat
			}
			rows[r][c] = col[r].Format(verb)
		}
	}
	return rows
}

// Align looks up every master value with lookup. Missing values become
// unavailable cells.
func Align(master []float64, lookup func(float64) (float64, bool)) []Cell {
	cells := make([]Cell, len(master))
	for i, m := range master {
		if v, ok := lookup(m); ok {
			cells[i] = Cell{Value: v, Available: true}
		}
	}
	return cells
}

// Build assembles the table described by layout.
//
// The master column must come from a simulation. Its values are copied and
// sorted ascending; the source series is left untouched. Every other column
// is aligned against the master values by exact equality.
func Build(layout Layout, src Sources) (*Table, error) {
	if len(layout.Columns) == 0 {
		return nil, errs.Config("build table", layout.Filename, fmt.Errorf("layout has no columns"))
	}
	masterSrc, ok := layout.Columns[0].Source.(FromSimulation)
	if !ok {
		return nil, errs.Config("build table", layout.Filename,
			fmt.Errorf("master column %q must read a simulation", layout.Columns[0].Header))
	}

	series, err := src.simulation(masterSrc.Subtest, layout.Slice)
	if err != nil {
		return nil, err
	}
	master := append([]float64(nil), simulationArray(series, masterSrc.Variable)...)
	sort.Float64s(master)

	t := &Table{
		Slice:    layout.Slice,
		Filename: layout.Filename,
		Headers:  []string{layout.Columns[0].Header},
		Kinds:    []string{SourceAmanzi},
		Columns:  [][]Cell{Align(master, func(v float64) (float64, bool) { return v, true })},
	}

	for _, col := range layout.Columns[1:] {
		lookup, err := src.lookup(col.Source, layout.Slice)
		if err != nil {
			return nil, err
		}
		t.Headers = append(t.Headers, col.Header)
		t.Kinds = append(t.Kinds, col.Source.sourceTag())
		t.Columns = append(t.Columns, Align(master, lookup))
	}

	if layout.Errors {
		if err := t.appendErrors(); err != nil {
			return nil, errs.Config("build table", layout.Filename, err)
		}
	}
	return t, nil
}

func (s Sources) simulation(subtest, sliceName string) (*slice.Series, error) {
	scatter, ok := s.Simulations[subtest]
	if !ok {
		return nil, errs.Lookup("simulation subtest", subtest)
	}
	series, ok := scatter[sliceName]
	if !ok {
		return nil, errs.Lookup("simulation slice", subtest+"/"+sliceName)
	}
	return series, nil
}

func (s Sources) lookup(source Source, sliceName string) (func(float64) (float64, bool), error) {
	switch src := source.(type) {
	case FromSimulation:
		series, err := s.simulation(src.Subtest, sliceName)
		if err != nil {
			return nil, err
		}
		out := simulationArray(series, src.Variable)
		return indexLookup(series.Distance, out), nil

	case FromAnalytic:
		name := src.Case
		if name == "" {
			name = sliceName
		}
		sol, ok := s.Analytic[name]
		if !ok {
			return nil, errs.Lookup("analytic solution", name)
		}
		indep, err := analyticArray(sol, src.IndepVar)
		if err != nil {
			return nil, err
		}
		out, err := analyticArray(sol, src.Variable)
		if err != nil {
			return nil, err
		}
		return indexLookup(indep, out), nil
	}
	return nil, fmt.Errorf("unsupported column source %T", source)
}

func simulationArray(s *slice.Series, variable string) []float64 {
	if variable == VarDistance {
		return s.Distance
	}
	return s.Value
}

func analyticArray(s *analytic.Solution, name string) ([]float64, error) {
	switch name {
	case VarDistance:
		return s.Distance, nil
	case VarConcentration:
		return s.C, nil
	}
	axis, err := slice.ParseAxis(name)
	if err != nil {
		return nil, errs.Lookup("analytic variable", name)
	}
	return s.Coordinates(axis)
}

// indexLookup finds the first exact match in key and returns out at the same
// index.
func indexLookup(key, out []float64) func(float64) (float64, bool) {
	return func(v float64) (float64, bool) {
		for i, k := range key {
			if k == v {
				if i >= len(out) {
					return 0, false
				}
				return out[i], true
			}
		}
		return 0, false
	}
}

// appendErrors adds |sim - analytic| for each simulation value column against
// the first analytic column.
func (t *Table) appendErrors() error {
	ref := -1
	for i, k := range t.Kinds {
		if k == SourceAnalytic {
			ref = i
			break
		}
	}
	if ref < 0 {
		return fmt.Errorf("error columns need an analytic column")
	}

	n := len(t.Columns)
	for i := 1; i < n; i++ {
		if t.Kinds[i] != SourceAmanzi {
			continue
		}
		diff := make([]Cell, t.Rows())
		for r := range diff {
			a, b := t.Columns[i][r], t.Columns[ref][r]
			if a.Available && b.Available {
				diff[r] = Cell{Value: math.Abs(a.Value - b.Value), Available: true}
			}
		}
		t.Headers = append(t.Headers, fmt.Sprintf("|%s - %s|", t.Headers[i], t.Headers[ref]))
		t.Kinds = append(t.Kinds, KindError)
		t.Columns = append(t.Columns, diff)
	}
	return nil
}

// KindError tags computed difference columns.
const KindError = "Error"

// Render draws the table with an ASCII border and a rule between rows.
func (t *Table) Render() string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.ASCIIBorder()).
		BorderRow(true).
		Headers(t.Headers...).
		Rows(t.Strings()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Align(lipgloss.Center)
			}
			return cell.Align(lipgloss.Right)
		}).
		Render()
}

// WriteFile writes the rendered table to path.
func (t *Table) WriteFile(path string) error {
	if err := os.WriteFile(path, []byte(t.Render()+"\n"), 0o644); err != nil {
		return errs.FileAccess("write table", path, err)
	}
	return nil
}

type tableJSON struct {
	Slice   string     `json:"slice"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// MarshalJSON encodes the formatted rows.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{Slice: t.Slice, Headers: t.Headers, Rows: t.Strings()})
}
