package executor

import (
	"fmt"
	"time"

	"orderdag/internal/graph"
)

// Outcome is the final state of one item in a run.
type Outcome struct {
	ID       string
	Level    int
	Status   graph.Status
	Reason   string
	Err      error
	Duration time.Duration
}

// Text renders the outcome for a notification.
func (o Outcome) Text() string {
	if o.Reason == "" {
		return fmt.Sprintf("item %s (level %d) %s", o.ID, o.Level, o.Status)
	}
	return fmt.Sprintf("item %s (level %d) %s: %s", o.ID, o.Level, o.Status, o.Reason)
}

// Summary reports a run's results.
type Summary struct {
	RunID     uint64
	Levels    int
	Succeeded int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
	Duration  time.Duration
}

func newSummary(runID uint64, levels int) Summary {
	return Summary{RunID: runID, Levels: levels}
}

func (s *Summary) add(o Outcome) {
	switch o.Status {
	case graph.StatusSucceeded:
		s.Succeeded++
	case graph.StatusFailed:
		s.Failed++
	case graph.StatusSkipped:
		s.Skipped++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// Total returns the number of settled items.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// Outcome returns the outcome recorded for id.
func (s Summary) Outcome(id string) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

func (s Summary) String() string {
	return fmt.Sprintf("succeeded: %d, failed: %d, skipped: %d, elapsed: %s", s.Succeeded, s.Failed, s.Skipped, s.Duration)
}
