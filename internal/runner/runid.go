package runner

import (
	"github.com/google/uuid"
)

// IDGenerator produces run identifiers recorded in completion markers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Markers from successive runs of the same directory sort by creation time,
// which makes stale output directories easy to spot.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
