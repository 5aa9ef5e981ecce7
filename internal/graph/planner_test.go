package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLevelsDiamond(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add("1", nil))
	require.NoError(t, s.Add("2", nil))
	require.NoError(t, s.Add("3", nil, "1"))
	require.NoError(t, s.Add("4", nil, "2", "3"))

	plan, err := ComputeLevels(s.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"1", "2"}, {"3"}, {"4"}}, plan.Levels)
	assert.Equal(t, 3, plan.LevelOf["4"], "item 4 must sit above its deepest dependency")
	assert.Equal(t, 3, plan.Depth())
}

func TestComputeLevelsEmpty(t *testing.T) {
	plan, err := ComputeLevels(NewStore().Snapshot())
	require.NoError(t, err)
	assert.Empty(t, plan.Levels)
	assert.Empty(t, plan.LevelOf)
}

func TestStorePlanRecordsLevels(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add("a", nil))
	require.NoError(t, s.Add("b", nil, "a"))

	_, err := s.Plan()
	require.NoError(t, err)

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, 2, b.Level)
}

func TestComputeLevelsRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		s := NewStore()
		n := 1 + rng.Intn(60)
		for i := 0; i < n; i++ {
			var deps []string
			for j := 0; j < i; j++ {
				if rng.Intn(5) == 0 {
					deps = append(deps, fmt.Sprint(j))
				}
			}
			require.NoError(t, s.Add(fmt.Sprint(i), nil, deps...))
		}

		snap := s.Snapshot()
		plan, err := ComputeLevels(snap)
		require.NoError(t, err)

		seen := make(map[string]int)
		for li, level := range plan.Levels {
			require.NotEmpty(t, level)
			for _, id := range level {
				seen[id]++
				assert.Equal(t, li+1, plan.LevelOf[id])
			}
		}
		require.Len(t, seen, n)
		for id, count := range seen {
			assert.Equalf(t, 1, count, "item %s placed %d times", id, count)
		}

		for _, item := range snap.Items() {
			want := 1
			for _, d := range item.Dependencies {
				want = max(want, plan.LevelOf[d]+1)
			}
			assert.Equalf(t, want, plan.LevelOf[item.ID], "level of %s", item.ID)
		}
	}
}

func TestComputeLevelsRebuildIsStable(t *testing.T) {
	type add struct {
		id   string
		deps []string
	}
	adds := []add{
		{"o1", nil},
		{"o2", nil},
		{"o3", []string{"o1"}},
		{"o4", []string{"o1", "o2"}},
		{"o5", []string{"o4", "o3"}},
		{"o6", []string{"o2"}},
	}

	build := func() Plan {
		s := NewStore()
		for _, a := range adds {
			require.NoError(t, s.Add(a.id, nil, a.deps...))
		}
		plan, err := ComputeLevels(s.Snapshot())
		require.NoError(t, err)
		return plan
	}

	first := build()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build())
	}
}

func TestComputeLevelsCorruptGraph(t *testing.T) {
	snap := Snapshot{
		items: []WorkItem{{ID: "a"}, {ID: "b"}},
		deps:  [][]int{{1}, nil},
		edges: 1,
	}
	_, err := ComputeLevels(snap)
	require.Error(t, err)
}
