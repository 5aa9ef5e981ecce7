package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"orderdag/internal/executor"
	"orderdag/internal/graph"

	"github.com/yanun0323/errors"
)

// Recorder persists the report of a finished run.
type Recorder interface {
	Record(ctx context.Context, report Report) error
}

// Report is the audit view of one run.
type Report struct {
	RunID      uint64       `json:"runId"`
	FinishedAt time.Time    `json:"finishedAt"`
	Duration   string       `json:"duration"`
	Levels     int          `json:"levels"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Items      []ItemRecord `json:"items"`
}

// ItemRecord is one work item as it stood after the run.
type ItemRecord struct {
	ID           string   `json:"id"`
	Level        int      `json:"level"`
	Status       string   `json:"status"`
	Reason       string   `json:"reason,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	DurationNs   int64    `json:"durationNs"`
}

// NewReport joins the run summary with the store snapshot. Items keep
// insertion order.
func NewReport(summary executor.Summary, snap graph.Snapshot, finishedAt time.Time) Report {
	durations := make(map[string]time.Duration, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		durations[o.ID] = o.Duration
	}

	items := snap.Items()
	records := make([]ItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, ItemRecord{
			ID:           item.ID,
			Level:        item.Level,
			Status:       item.Status.String(),
			Reason:       item.Reason,
			Dependencies: item.Dependencies,
			DurationNs:   int64(durations[item.ID]),
		})
	}

	return Report{
		RunID:      summary.RunID,
		FinishedAt: finishedAt.UTC(),
		Duration:   summary.Duration.String(),
		Levels:     summary.Levels,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Items:      records,
	}
}

// FileRecorder writes the latest report to a JSON file.
type FileRecorder struct {
	path string
}

// NewFileRecorder creates a recorder writing to path.
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path}
}

// Record implements Recorder.
func (r *FileRecorder) Record(_ context.Context, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	dir := filepath.Dir(r.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create report dir")
		}
	}
	return os.WriteFile(r.path, data, 0o644)
}

// ReadReport loads a report written by FileRecorder.
func ReadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, errors.Wrapf(err, "read report %s", path)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, errors.Wrapf(err, "decode report %s", path)
	}
	return report, nil
}

// Multi fans a report out to several recorders, returning the first error
// after trying all of them.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, report Report) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}
