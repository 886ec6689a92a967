package testutil

// FixedRunIDGenerator returns the same run id every time.
//
// Markers written with a FixedRunIDGenerator are byte-identical across test
// runs, which keeps golden comparisons stable.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a fixed run id generator.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
//
// Implements runner.IDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
