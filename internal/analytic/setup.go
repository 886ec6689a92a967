// Package analytic reads AT123D-AT semi-analytic solutions.
//
// AT123D-AT writes two fixed-layout text files per input deck: a setup
// listing (<base>_setup.out) echoing grid sizes and source geometry, and a
// solution file (<base>_soln.out) with the grid coordinates and the
// concentration field as whitespace-separated numbers.
package analytic

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FiniteWidth is the width-control code for a source of finite width along y.
// Only under this mode is the y source location the midpoint of its begin and
// end points.
const FiniteWidth = 2

// Point is a 3-D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Setup holds what the setup listing declares.
type Setup struct {
	NX, NY, NZ int

	// Source is the source location.
	Source Point

	// WidthMode is the width-control code, 0 when the listing has none.
	WidthMode int
}

// Key phrases recognized in the setup listing.
const (
	phraseWidthControl = "WIDTH CONTROL"
	phraseFiniteWidth  = "2 FINITE WIDTH"
	phrasePointsX      = "NO. OF POINTS IN X-DIRECTION"
	phrasePointsY      = "NO. OF POINTS IN Y-DIRECTION"
	phrasePointsZ      = "NO. OF POINTS IN Z-DIRECTION"
	phraseBeginX       = "BEGIN POINT OF X-SOURCE LOCATION"
	phraseEndX         = "END POINT OF X-SOURCE LOCATION"
	phraseBeginY       = "BEGIN POINT OF Y-SOURCE LOCATION"
	phraseEndY         = "END POINT OF Y-SOURCE LOCATION"
	phraseBeginZ       = "BEGIN POINT OF Z-SOURCE LOCATION"
	phraseEndZ         = "END POINT OF Z-SOURCE LOCATION"
)

// ReadSetup scans a setup listing.
//
// Each recognized line carries its value as the last whitespace-separated
// token. After a WIDTH CONTROL line every line is ignored until the
// "2 FINITE WIDTH" line, whose last token is the width mode. Source x and z
// locations are the midpoint of their begin/end points; the y location is the
// midpoint only when the width mode is FiniteWidth and the begin point
// otherwise.
func ReadSetup(r io.Reader) (Setup, error) {
	var s Setup
	widthControl := false

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()

		var err error
		switch {
		case widthControl:
			if strings.Contains(text, phraseFiniteWidth) {
				widthControl = false
				s.WidthMode, err = lastInt(text)
			}
		case strings.Contains(text, phraseWidthControl):
			widthControl = true
		case strings.Contains(text, phrasePointsX):
			s.NX, err = lastInt(text)
		case strings.Contains(text, phrasePointsY):
			s.NY, err = lastInt(text)
		case strings.Contains(text, phrasePointsZ):
			s.NZ, err = lastInt(text)
		case strings.Contains(text, phraseBeginX):
			s.Source.X, err = lastFloat(text)
		case strings.Contains(text, phraseEndX):
			s.Source.X, err = midpoint(s.Source.X, text)
		case strings.Contains(text, phraseBeginY):
			s.Source.Y, err = lastFloat(text)
		case strings.Contains(text, phraseEndY) && s.WidthMode == FiniteWidth:
			s.Source.Y, err = midpoint(s.Source.Y, text)
		case strings.Contains(text, phraseBeginZ):
			s.Source.Z, err = lastFloat(text)
		case strings.Contains(text, phraseEndZ):
			s.Source.Z, err = midpoint(s.Source.Z, text)
		}
		if err != nil {
			return Setup{}, fmt.Errorf("setup line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return Setup{}, fmt.Errorf("read setup: %w", err)
	}

	if s.NX <= 0 || s.NY <= 0 || s.NZ <= 0 {
		return Setup{}, fmt.Errorf("setup declares no grid points (nx=%d, ny=%d, nz=%d)", s.NX, s.NY, s.NZ)
	}
	return s, nil
}

func midpoint(begin float64, line string) (float64, error) {
	end, err := lastFloat(line)
	if err != nil {
		return 0, err
	}
	return (begin + end) / 2.0, nil
}

func lastToken(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", fmt.Errorf("no value on line %q", line)
	}
	return fields[len(fields)-1], nil
}

func lastInt(line string) (int, error) {
	tok, err := lastToken(line)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("parse integer %q: %w", tok, err)
	}
	return n, nil
}

func lastFloat(line string) (float64, error) {
	tok, err := lastToken(line)
	if err != nil {
		return 0, err
	}
	return parseFloat(tok)
}

// parseFloat accepts Fortran double-precision exponents (1.0D+02).
func parseFloat(tok string) (float64, error) {
	v, err := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(tok), 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", tok, err)
	}
	return v, nil
}
