package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/amanzi/verification/internal/report"
)

// AssertTableGolden compares the formatted rows of tbl against
// testdata/golden/<name>.golden. Run tests with -update to rewrite the file.
func AssertTableGolden(t *testing.T, name string, tbl *report.Table) {
	t.Helper()

	data, err := json.MarshalIndent(tbl, "", "  ")
	if err != nil {
		t.Fatalf("marshal table %s: %v", name, err)
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
