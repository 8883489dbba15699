package store

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces build IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates time-sortable UUIDv7 build IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs sort by
// creation time when listed.
type UUIDGenerator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock stamps builds with a wall-clock time. The time is informational
// only; ordering uses seq.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
