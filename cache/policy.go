package cache

import "time"

// Policy bounds how long a stored result stays valid.
type Policy struct {
	// TTL is the validity window measured from the moment a result is
	// stored. Zero (or negative) disables expiry: a stored result is
	// valid until explicitly refreshed.
	TTL time.Duration
}

// Enabled returns true when a TTL is configured.
func (p Policy) Enabled() bool {
	return p.TTL > 0
}

// Valid reports whether a result stored at storedAt is still valid at
// now. A zero storedAt means nothing is stored. The window is strict:
// a result stored at T with TTL 600s is valid at T+599s and stale at
// T+600s.
func (p Policy) Valid(storedAt, now time.Time) bool {
	if storedAt.IsZero() {
		return false
	}
	if !p.Enabled() {
		return true
	}
	return now.Sub(storedAt) < p.TTL
}
