package usage

import "context"

// Store is the usage counter backend.
//
// Implementations must apply Add as a single atomic additive update (no
// read-modify-write): increments are commutative, so two concurrent requests
// in the same bucket never lose a count.
type Store interface {
	// Get returns the bucket's record, reporting absence separately from
	// failure. Absence is normal (first request of a month); a read error
	// is not.
	Get(ctx context.Context, key Key) (Record, bool, error)

	// Add atomically adds delta to the bucket's counters, creating the
	// bucket if absent.
	Add(ctx context.Context, key Key, delta Delta) error
}
