package obs

import (
	"sync/atomic"
	"time"
)

// RunIDGenerator creates monotonically increasing run IDs.
type RunIDGenerator struct {
	next atomic.Uint64
}

// NewRunIDGenerator returns a generator seeded with the given value.
// A zero seed uses the current time.
func NewRunIDGenerator(seed uint64) *RunIDGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	g := &RunIDGenerator{}
	g.next.Store(seed)
	return g
}

// Next returns the next run ID.
func (g *RunIDGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return g.next.Add(1)
}
