package clock

import "time"

// Clock provides current time abstraction for deterministic tests.
// Params: none.
// Returns: current wall-clock time.
type Clock interface {
	Now() time.Time
}

// RealClock reads current UTC time from system clock.
// Params: none.
// Returns: current UTC timestamp.
type RealClock struct{}

// Now returns current UTC time.
// Params: none.
// Returns: current UTC timestamp.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock returns one preset instant on every call.
// Params: frozen timestamp.
// Returns: clock for deterministic evaluation tests.
type FixedClock struct {
	At time.Time
}

// Now returns the frozen instant.
// Params: none.
// Returns: preset timestamp.
func (c FixedClock) Now() time.Time {
	return c.At
}
