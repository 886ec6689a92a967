// Package slice collects 1-D cuts through 2-D observation data.
//
// A slice fixes one axis at a value and varies along the other. Collect walks
// the loaded observations and keeps those whose fixed-axis coordinate equals
// the slice value exactly, producing (distance, value) pairs where distance is
// the coordinate along the varying axis.
//
// Matching uses exact floating-point equality. Coordinates that drift by one
// ulp upstream will not match.
package slice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amanzi/verification/internal/observation"
)

// Axis names a spatial coordinate.
type Axis string

const (
	X Axis = "x"
	Y Axis = "y"
	Z Axis = "z"
)

// ParseAxis converts "x", "y" or "z" (any case) to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch a := Axis(strings.ToLower(strings.TrimSpace(s))); a {
	case X, Y, Z:
		return a, nil
	}
	return "", fmt.Errorf("invalid axis %q: must be x, y or z", s)
}

// Index returns the coordinate index of the axis (x=0, y=1, z=2).
func (a Axis) Index() int {
	switch a {
	case X:
		return 0
	case Y:
		return 1
	case Z:
		return 2
	}
	return -1
}

// Spec describes one named slice.
type Spec struct {
	// Name identifies the slice (e.g. "centerline", "x=424.0").
	Name string

	// Fixed is the axis held constant.
	Fixed Axis

	// Value is the fixed-axis coordinate.
	Value float64

	// Vary is the axis distances are measured along.
	Vary Axis

	// Domain is the plotting range along Vary. Zero value means unset.
	Domain [2]float64
}

// Validate checks that Fixed and Vary are distinct and both x or y.
func (s Spec) Validate() error {
	if s.Fixed != X && s.Fixed != Y {
		return fmt.Errorf("slice %q: fixed axis %q must be x or y", s.Name, s.Fixed)
	}
	if s.Vary != X && s.Vary != Y {
		return fmt.Errorf("slice %q: varying axis %q must be x or y", s.Name, s.Vary)
	}
	if s.Fixed == s.Vary {
		return fmt.Errorf("slice %q: fixed and varying axis are both %q", s.Name, s.Fixed)
	}
	return nil
}

// Series holds co-indexed distances and values for one slice.
type Series struct {
	Distance []float64 `json:"distance"`
	Value    []float64 `json:"value"`
}

// Len returns the number of points.
func (s *Series) Len() int {
	return len(s.Distance)
}

// Append adds one point, keeping both sequences the same length.
func (s *Series) Append(distance, value float64) {
	s.Distance = append(s.Distance, distance)
	s.Value = append(s.Value, value)
}

// Lookup returns the value at the first point whose distance equals d exactly.
func (s *Series) Lookup(d float64) (float64, bool) {
	for i, x := range s.Distance {
		if x == d {
			return s.Value[i], true
		}
	}
	return 0, false
}

// Sorted returns a copy ordered by ascending distance. Equal distances keep
// their collection order.
func (s *Series) Sorted() *Series {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.Distance[idx[a]] < s.Distance[idx[b]]
	})

	out := &Series{
		Distance: make([]float64, 0, len(idx)),
		Value:    make([]float64, 0, len(idx)),
	}
	for _, i := range idx {
		out.Append(s.Distance[i], s.Value[i])
	}
	return out
}

// Scatter maps slice name to its collected series.
type Scatter map[string]*Series

// Collect builds one series per spec from obs.
//
// Points are emitted in the order of obs; callers that need ordered output
// must sort explicitly. A spec with no matching observation yields an empty
// series.
func Collect(obs []*observation.Observation, specs []Spec) (Scatter, error) {
	scatter := make(Scatter, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, dup := scatter[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate slice name %q", spec.Name)
		}

		fixed, vary := spec.Fixed.Index(), spec.Vary.Index()
		series := &Series{Distance: []float64{}, Value: []float64{}}

		for _, o := range obs {
			if len(o.Coordinate) <= fixed || len(o.Coordinate) <= vary {
				return nil, fmt.Errorf("observation %q: coordinate %v has no %s/%s component",
					o.Name, o.Coordinate, spec.Fixed, spec.Vary)
			}
			if o.Coordinate[fixed] != spec.Value {
				continue
			}
			first, ok := o.First()
			if !ok {
				return nil, fmt.Errorf("observation %q has no recorded values", o.Name)
			}
			series.Append(o.Coordinate[vary], first.Value)
		}

		scatter[spec.Name] = series
	}
	return scatter, nil
}
