package graph

import (
	"sync"

	"orderdag/pkg/exception"

	"github.com/yanun0323/errors"
)

// Store holds work items and their dependency edges.
//
// Items live in a dense arena in insertion order; dependencies are arena
// indices. A dependency must already be present when an item is added, so
// the graph can never contain a cycle and insertion order is always a valid
// topological order.
//
// Add is rejected with exception.ErrStoreBusy while a run holds the store
// (see Acquire).
type Store struct {
	mu    sync.RWMutex
	nodes []node
	index map[string]int
	busy  bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Add inserts a work item. The store is left unchanged on error.
func (s *Store) Add(id string, payload any, dependencies ...string) error {
	if id == "" {
		return errors.Wrap(exception.ErrInvalidArgument, "empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return exception.ErrStoreBusy
	}
	if _, ok := s.index[id]; ok {
		return errors.Wrapf(exception.ErrDuplicateID, "id: %s", id)
	}

	deps := make([]int, 0, len(dependencies))
	seen := make(map[int]struct{}, len(dependencies))
	for _, dep := range dependencies {
		idx, ok := s.index[dep]
		if !ok {
			return errors.Wrapf(exception.ErrUnknownDependency, "id: %s, dependency: %s", id, dep)
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		deps = append(deps, idx)
	}

	s.index[id] = len(s.nodes)
	s.nodes = append(s.nodes, node{
		id:      id,
		payload: payload,
		deps:    deps,
		status:  StatusPending,
		seq:     uint64(len(s.nodes)) + 1,
	})
	return nil
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id string) (WorkItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return WorkItem{}, false
	}
	return s.itemLocked(idx), true
}

// Contains reports whether id is present.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[id]
	return ok
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes)
}

// Snapshot returns an immutable copy of all items and edges.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]WorkItem, len(s.nodes))
	deps := make([][]int, len(s.nodes))
	edges := 0
	for i := range s.nodes {
		items[i] = s.itemLocked(i)
		deps[i] = append([]int(nil), s.nodes[i].deps...)
		edges += len(deps[i])
	}
	return Snapshot{items: items, deps: deps, edges: edges}
}

// Plan computes the level partition of the current graph and records each
// item's level.
func (s *Store) Plan() (Plan, error) {
	plan, err := ComputeLevels(s.Snapshot())
	if err != nil {
		return Plan{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, level := range plan.LevelOf {
		if idx, ok := s.index[id]; ok {
			s.nodes[idx].level = level
		}
	}
	return plan, nil
}

// Acquire marks the store as held by a run. The returned release func must
// be called once the run settles. It fails with exception.ErrStoreBusy when
// another run already holds the store.
func (s *Store) Acquire() (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return nil, exception.ErrStoreBusy
	}
	s.busy = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy = false
			s.mu.Unlock()
		})
	}, nil
}

// SetStatus moves an item along its lifecycle. Terminal statuses are final.
func (s *Store) SetStatus(id string, status Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[id]
	if !ok {
		return errors.Wrapf(exception.ErrUnknownItem, "id: %s", id)
	}
	if err := s.nodes[idx].transition(status, reason); err != nil {
		return errors.Wrapf(err, "id: %s, from: %s, to: %s", id, s.nodes[idx].status, status)
	}
	return nil
}

// Status returns the current status of id.
func (s *Store) Status(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return StatusPending, false
	}
	return s.nodes[idx].status, true
}

func (s *Store) itemLocked(idx int) WorkItem {
	n := &s.nodes[idx]
	deps := make([]string, len(n.deps))
	for i, d := range n.deps {
		deps[i] = s.nodes[d].id
	}
	return WorkItem{
		ID:           n.id,
		Payload:      n.payload,
		Dependencies: deps,
		Status:       n.status,
		Level:        n.level,
		Reason:       n.reason,
		Seq:          n.seq,
	}
}
