package graph

import (
	"orderdag/pkg/exception"

	"github.com/yanun0323/errors"
)

// Snapshot is a read-only copy of the store taken at one point in time.
type Snapshot struct {
	items []WorkItem
	deps  [][]int
	edges int
}

// Len returns the number of items.
func (s Snapshot) Len() int {
	return len(s.items)
}

// EdgeCount returns the number of dependency edges.
func (s Snapshot) EdgeCount() int {
	return s.edges
}

// Items returns the items in insertion order.
func (s Snapshot) Items() []WorkItem {
	out := make([]WorkItem, len(s.items))
	copy(out, s.items)
	return out
}

// Plan is the level partition of a graph.
type Plan struct {
	// Levels holds item ids grouped by level, ascending. Levels[0] is level 1.
	Levels [][]string
	// LevelOf maps every item id to its level.
	LevelOf map[string]int
}

// Depth returns the number of levels.
func (p Plan) Depth() int {
	return len(p.Levels)
}

// ComputeLevels partitions the snapshot into levels.
//
// An item without dependencies is level 1; otherwise its level is one more
// than the highest level among its dependencies. The result depends only on
// the dependency structure. Ids within a level keep insertion order.
func ComputeLevels(snap Snapshot) (Plan, error) {
	levels := make([]int, len(snap.items))
	depth := 0
	for i := range snap.items {
		level := 1
		for _, d := range snap.deps[i] {
			if d < 0 || d >= i {
				return Plan{}, errors.Wrapf(exception.ErrCorruptGraph, "item %s depends on later index %d", snap.items[i].ID, d)
			}
			if levels[d]+1 > level {
				level = levels[d] + 1
			}
		}
		levels[i] = level
		depth = max(depth, level)
	}

	plan := Plan{
		Levels:  make([][]string, depth),
		LevelOf: make(map[string]int, len(snap.items)),
	}
	for i, item := range snap.items {
		plan.Levels[levels[i]-1] = append(plan.Levels[levels[i]-1], item.ID)
		plan.LevelOf[item.ID] = levels[i]
	}

	if err := verifyLevels(snap, levels); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func verifyLevels(snap Snapshot, levels []int) error {
	for i := range snap.items {
		for _, d := range snap.deps[i] {
			if levels[d] >= levels[i] {
				return errors.Wrapf(exception.ErrCorruptGraph, "level of %s (%d) not above dependency %s (%d)",
					snap.items[i].ID, levels[i], snap.items[d].ID, levels[d])
			}
		}
	}
	return nil
}
