package testutil

import (
	"fmt"
	"sync"
)

// FixedIDs returns predetermined identifiers in order, for tests that need
// stable run IDs.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator returning ids in order. With no ids it
// returns "run-1", "run-2", ...
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Next returns the next identifier. It panics when a fixed list is
// exhausted so a test creating more runs than it expects fails loudly.
func (g *FixedIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if len(g.ids) == 0 {
		return fmt.Sprintf("run-%d", g.idx)
	}
	if g.idx > len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	return g.ids[g.idx-1]
}
