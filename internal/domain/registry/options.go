package registry

import "time"

// Option defines a functional configuration type for the Store.
type Option func(*Store)

// WithClock swaps the wall-clock source. Tests use it to pin timestamps
// and to push entries across the janitor's grace boundary.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}
