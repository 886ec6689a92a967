package analytic

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/amanzi/verification/internal/slice"
)

// Solution is an analytic concentration field on a rectilinear grid.
type Solution struct {
	Setup

	X, Y, Z []float64

	// Time is the solution time.
	Time float64

	// C is the concentration field in file order.
	C []float64

	// Distance is the coordinate along the varying axis relative to the source.
	Distance []float64

	// Vary is the axis Distance was computed along.
	Vary slice.Axis
}

// phase is the solution-file reader state. Phases only advance.
type phase int

const (
	phaseX phase = iota
	phaseY
	phaseZ
	phaseTime
	phaseC
)

// ReadSolution reads a solution file into a Solution built on setup.
//
// Tokens are consumed in four phases, strictly in order: x coordinates until
// NX have been read, y until NY, z until NZ, then a single line whose last
// token is the time, then every remaining token as concentration. Each phase
// ends at a line boundary. The concentration count is not checked against
// NX*NY*NZ.
func ReadSolution(r io.Reader, setup Setup) (*Solution, error) {
	s := &Solution{Setup: setup}

	state := phaseX
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()

		var err error
		switch state {
		case phaseX:
			if s.X, err = appendTokens(s.X, text); err == nil && len(s.X) >= s.NX {
				state = phaseY
			}
		case phaseY:
			if s.Y, err = appendTokens(s.Y, text); err == nil && len(s.Y) >= s.NY {
				state = phaseZ
			}
		case phaseZ:
			if s.Z, err = appendTokens(s.Z, text); err == nil && len(s.Z) >= s.NZ {
				state = phaseTime
			}
		case phaseTime:
			if s.Time, err = lastFloat(text); err == nil {
				state = phaseC
			}
		case phaseC:
			s.C, err = appendTokens(s.C, text)
		}
		if err != nil {
			return nil, fmt.Errorf("solution line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}

	if state < phaseC {
		return nil, fmt.Errorf("solution ended before the concentration block (nx=%d/%d, ny=%d/%d, nz=%d/%d)",
			len(s.X), s.NX, len(s.Y), s.NY, len(s.Z), s.NZ)
	}
	return s, nil
}

func appendTokens(dst []float64, line string) ([]float64, error) {
	for _, tok := range strings.Fields(line) {
		v, err := parseFloat(tok)
		if err != nil {
			return dst, err
		}
		dst = append(dst, v)
	}
	return dst, nil
}

// Coordinates returns the grid coordinates along axis.
func (s *Solution) Coordinates(axis slice.Axis) ([]float64, error) {
	switch axis {
	case slice.X:
		return s.X, nil
	case slice.Y:
		return s.Y, nil
	case slice.Z:
		return s.Z, nil
	}
	return nil, fmt.Errorf("invalid axis %q", axis)
}

// SourceAlong returns the source coordinate along axis.
func (s *Solution) SourceAlong(axis slice.Axis) (float64, error) {
	switch axis {
	case slice.X:
		return s.Source.X, nil
	case slice.Y:
		return s.Source.Y, nil
	case slice.Z:
		return s.Source.Z, nil
	}
	return 0, fmt.Errorf("invalid axis %q", axis)
}

// Shift sets Distance to the coordinates along vary minus the source location.
func (s *Solution) Shift(vary slice.Axis) error {
	coords, err := s.Coordinates(vary)
	if err != nil {
		return err
	}
	src, err := s.SourceAlong(vary)
	if err != nil {
		return err
	}

	s.Distance = make([]float64, len(coords))
	for i, c := range coords {
		s.Distance[i] = c - src
	}
	s.Vary = vary
	return nil
}

// Series returns the (distance, concentration) pairs for the shifted axis,
// truncated to the shorter of the two sequences.
func (s *Solution) Series() *slice.Series {
	n := len(s.Distance)
	if len(s.C) < n {
		n = len(s.C)
	}
	out := &slice.Series{
		Distance: make([]float64, 0, n),
		Value:    make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		out.Append(s.Distance[i], s.C[i])
	}
	return out
}
