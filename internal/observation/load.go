package observation

import (
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/amanzi/verification/internal/errs"
)

// Descriptor is the part of a simulator input descriptor the loader needs.
type Descriptor interface {
	// ObservationFilename is the observation output file name, relative to
	// the run directory.
	ObservationFilename() (string, error)

	// Coordinates maps region name to coordinate.
	Coordinates() (map[string][]float64, error)
}

// Load reads the observation file named by desc from dir and attaches each
// observation's coordinate by region.
//
// Every region referenced by the data must have a coordinate; a missing
// region is a lookup error. Region names are compared in Unicode NFC form.
func Load(desc Descriptor, dir string) (*Data, error) {
	name, err := desc.ObservationFilename()
	if err != nil {
		return nil, err
	}
	coords, err := desc.Coordinates()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.FileAccess("open observation file", path, err)
	}
	defer f.Close()

	data, err := ReadData(f)
	if err != nil {
		return nil, err
	}

	if err := Attach(data, coords); err != nil {
		return nil, err
	}
	return data, nil
}

// Attach sets each observation's coordinate from coords.
func Attach(data *Data, coords map[string][]float64) error {
	normalized := make(map[string][]float64, len(coords))
	for region, c := range coords {
		normalized[norm.NFC.String(region)] = c
	}

	for _, obs := range data.Observations {
		c, ok := normalized[norm.NFC.String(obs.Region)]
		if !ok {
			return errs.Lookup("region coordinate", obs.Region)
		}
		obs.Coordinate = append([]float64(nil), c...)
	}
	return nil
}
