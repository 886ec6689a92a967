package observation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanzi/verification/internal/errs"
)

const sampleData = `Observation Name, Region, Functional, Variable, Time, Value
===========================================================
Tc99 Obs 1, Obs_r1, Observation Data: Point, Tc-99 Aqueous concentration, 3.1536e+10, 2.5e-04
Tc99 Obs 2, Obs_r2, Observation Data: Point, Tc-99 Aqueous concentration, 3.1536e+10, 1.0e-05
Tc99 Obs 1, Obs_r1, Observation Data: Point, Tc-99 Aqueous concentration, 6.3072e+10, 3.0e-04
`

type fakeDescriptor struct {
	filename string
	coords   map[string][]float64
}

func (f fakeDescriptor) ObservationFilename() (string, error)       { return f.filename, nil }
func (f fakeDescriptor) Coordinates() (map[string][]float64, error) { return f.coords, nil }

func TestReadData(t *testing.T) {
	data, err := ReadData(strings.NewReader(sampleData))
	require.NoError(t, err)
	require.Len(t, data.Observations, 2)

	first := data.Observations[0]
	assert.Equal(t, "Tc99 Obs 1", first.Name)
	assert.Equal(t, "Obs_r1", first.Region)
	assert.Equal(t, "Observation Data: Point", first.Functional)
	assert.Equal(t, "Tc-99 Aqueous concentration", first.Variable)
	assert.Equal(t, []Sample{{Time: 3.1536e+10, Value: 2.5e-04}, {Time: 6.3072e+10, Value: 3.0e-04}}, first.Samples)

	s, ok := first.First()
	require.True(t, ok)
	assert.Equal(t, 2.5e-04, s.Value)

	require.Len(t, data.Observations, 2)
	assert.Equal(t, "Tc99 Obs 2", data.Observations[1].Name)
}

func TestReadData_ShortRow(t *testing.T) {
	_, err := ReadData(strings.NewReader("a, b, c\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 6 fields")
}

func TestReadData_BadNumber(t *testing.T) {
	_, err := ReadData(strings.NewReader("o, r, f, v, 1.0, abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value")
}

func TestFirst_Empty(t *testing.T) {
	_, ok := (&Observation{}).First()
	assert.False(t, ok)
}

func TestLoad_AttachesCoordinates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "observation.out"), []byte(sampleData), 0o644))

	desc := fakeDescriptor{
		filename: "observation.out",
		coords: map[string][]float64{
			"Obs_r1": {0.0, 0.0},
			"Obs_r2": {424.0, 8.0},
			"unused": {1.0, 1.0},
		},
	}

	data, err := Load(desc, dir)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 0.0}, data.Observations[0].Coordinate)
	assert.Equal(t, []float64{424.0, 8.0}, data.Observations[1].Coordinate)
}

func TestLoad_MissingRegionIsLookupError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "observation.out"), []byte(sampleData), 0o644))

	desc := fakeDescriptor{
		filename: "observation.out",
		coords:   map[string][]float64{"Obs_r1": {0.0, 0.0}},
	}

	_, err := Load(desc, dir)
	require.Error(t, err)
	assert.True(t, errs.IsLookup(err))
	assert.Contains(t, err.Error(), "Obs_r2")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(fakeDescriptor{filename: "nope.out"}, t.TempDir())
	require.Error(t, err)
	assert.True(t, errs.IsFileAccess(err))
}

func TestAttach_NormalizesRegionNames(t *testing.T) {
	// Precomposed in the data, decomposed in the descriptor.
	data := &Data{Observations: []*Observation{{Name: "o", Region: "Zon\u00e9"}}}
	err := Attach(data, map[string][]float64{"Zone\u0301": {1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, data.Observations[0].Coordinate)
}
