// Package observation loads the simulator's observation output and attaches
// spatial coordinates to each observation by region name.
package observation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sample is one recorded (time, value) pair.
type Sample struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Observation is the time series recorded for one named observation.
// It is not modified after Load returns.
type Observation struct {
	Name       string    `json:"name"`
	Region     string    `json:"region"`
	Functional string    `json:"functional"`
	Variable   string    `json:"variable"`
	Coordinate []float64 `json:"coordinate,omitempty"`
	Samples    []Sample  `json:"samples"`
}

// First returns the first recorded sample.
func (o *Observation) First() (Sample, bool) {
	if len(o.Samples) == 0 {
		return Sample{}, false
	}
	return o.Samples[0], true
}

// Data is the parsed content of an observation output file.
type Data struct {
	// Observations are ordered by first appearance in the file.
	Observations []*Observation

	byName map[string]*Observation
}

// Number of comma-separated fields in an observation row:
// name, region, functional, variable, time, value.
const rowFields = 6

// ReadData parses observation output.
//
// The file starts with a header line and a line of '=' characters, followed
// by one comma-separated row per recorded sample:
//
//	Observation Name, Region, Functional, Variable, Time, Value
//	===========================================================
//	Tc99 Obs 1, Obs_r1, Observation Data: Point, Tc-99 Aqueous concentration, 3.1536e+10, 2.4e-04
//
// Rows with the same observation name are merged into one time series in
// file order.
func ReadData(r io.Reader) (*Data, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comment = '#'

	data := &Data{byName: make(map[string]*Observation)}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read observation data: %w", err)
		}
		line++

		if isHeader(rec) {
			continue
		}
		if len(rec) < rowFields {
			return nil, fmt.Errorf("observation data row %d: expected %d fields, got %d", line, rowFields, len(rec))
		}

		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		t, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("observation data row %d: time: %w", line, err)
		}
		v, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("observation data row %d: value: %w", line, err)
		}

		obs, ok := data.byName[rec[0]]
		if !ok {
			obs = &Observation{
				Name:       rec[0],
				Region:     rec[1],
				Functional: rec[2],
				Variable:   rec[3],
			}
			data.byName[rec[0]] = obs
			data.Observations = append(data.Observations, obs)
		}
		obs.Samples = append(obs.Samples, Sample{Time: t, Value: v})
	}
	return data, nil
}

// isHeader reports whether rec is the column header or the '=' separator.
func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return true
	}
	first := strings.TrimSpace(rec[0])
	if first == "" {
		return len(rec) == 1
	}
	if strings.Trim(first, "=") == "" {
		return true
	}
	return strings.EqualFold(first, "Observation Name")
}
