package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ColumnError summarises one simulation column against the reference
// analytic column of a table.
type ColumnError struct {
	Header      string  `json:"header"`
	Reference   string  `json:"reference"`
	Matched     int     `json:"matched"`
	Unavailable int     `json:"unavailable"`
	MaxAbs      float64 `json:"max_abs"`
	MeanAbs     float64 `json:"mean_abs"`
	RMS         float64 `json:"rms"`
}

// Compare computes absolute-error statistics for every simulation value
// column of t against its first analytic column. Rows where either side is
// unavailable are counted but not scored.
func Compare(t *Table) ([]ColumnError, error) {
	ref := -1
	for i, k := range t.Kinds {
		if k == SourceAnalytic {
			ref = i
			break
		}
	}
	if ref < 0 {
		return nil, fmt.Errorf("table %q has no analytic column", t.Filename)
	}

	var out []ColumnError
	for i := 1; i < len(t.Columns); i++ {
		if t.Kinds[i] != SourceAmanzi {
			continue
		}
		ce := ColumnError{Header: t.Headers[i], Reference: t.Headers[ref]}
		var diffs []float64
		for r := 0; r < t.Rows(); r++ {
			a, b := t.Columns[i][r], t.Columns[ref][r]
			if !a.Available || !b.Available {
				ce.Unavailable++
				continue
			}
			diffs = append(diffs, math.Abs(a.Value-b.Value))
		}
		ce.Matched = len(diffs)
		if len(diffs) > 0 {
			ce.MaxAbs = floats.Max(diffs)
			ce.MeanAbs = floats.Sum(diffs) / float64(len(diffs))
			ce.RMS = floats.Norm(diffs, 2) / math.Sqrt(float64(len(diffs)))
		}
		out = append(out, ce)
	}
	return out, nil
}
