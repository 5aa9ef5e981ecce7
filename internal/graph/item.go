package graph

import "orderdag/pkg/exception"

// Status tracks the lifecycle of a work item.
type Status uint8

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// WorkItem is the store's view of one unit of work.
type WorkItem struct {
	ID           string
	Payload      any
	Dependencies []string
	Status       Status
	// Level is 0 until the store has been planned.
	Level  int
	Reason string
	Seq    uint64
}

// node is the arena entry backing a WorkItem. deps hold arena indices.
type node struct {
	id      string
	payload any
	deps    []int
	status  Status
	level   int
	reason  string
	seq     uint64
}

func (n *node) transition(next Status, reason string) error {
	if !canTransition(n.status, next) {
		return exception.ErrInvalidTransition
	}
	n.status = next
	n.reason = reason
	return nil
}

func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusSkipped
	case StatusRunning:
		return to == StatusSucceeded || to == StatusFailed
	default:
		return false
	}
}
