package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"orderdag/internal/executor"
	"orderdag/internal/graph"
	"orderdag/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func runDiamond(t *testing.T) (executor.Summary, graph.Snapshot) {
	t.Helper()
	store := graph.NewStore()
	require.NoError(t, store.Add("1", nil))
	require.NoError(t, store.Add("2", nil))
	require.NoError(t, store.Add("3", nil, "1"))
	require.NoError(t, store.Add("4", nil, "2", "3"))

	strategy := executor.StrategyFunc(func(_ context.Context, _ any) error { return nil })
	summary, err := executor.New(nil).Process(t.Context(), store, strategy)
	require.NoError(t, err)
	return summary, store.Snapshot()
}

func TestNewReport(t *testing.T) {
	summary, snap := runDiamond(t)
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	report := NewReport(summary, snap, finished)
	assert.Equal(t, summary.RunID, report.RunID)
	assert.Equal(t, 3, report.Levels)
	assert.Equal(t, 4, report.Succeeded)
	require.Len(t, report.Items, 4)
	assert.Equal(t, ItemRecord{ID: "4", Level: 3, Status: "succeeded", Dependencies: []string{"2", "3"}, DurationNs: report.Items[3].DurationNs}, report.Items[3])
	assert.Equal(t, finished, report.FinishedAt)
}

func TestFileRecorderRoundTrip(t *testing.T) {
	summary, snap := runDiamond(t)
	report := NewReport(summary, snap, time.Now())

	path := filepath.Join(t.TempDir(), "reports", "last.json")
	require.NoError(t, NewFileRecorder(path).Record(t.Context(), report))

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.Items, got.Items)
	assert.True(t, report.FinishedAt.Equal(got.FinishedAt))
}

func TestReadReportErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadReport(filepath.Join(dir, "missing.json"))
	require.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "read report")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o644))
	_, err = ReadReport(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode report")
}

func TestRows(t *testing.T) {
	summary, snap := runDiamond(t)
	report := NewReport(summary, snap, time.Now())

	rows := Rows(report)
	require.Len(t, rows, 4)
	assert.Equal(t, "2,3", rows[3].Dependencies)
	assert.Equal(t, report.RunID, rows[0].RunID)
	assert.Equal(t, "work_item_runs", WorkItemRun{}.TableName())
}

func TestPostgresRecorderNilDB(t *testing.T) {
	require.True(t, errors.Is(NewPostgresRecorder(nil).Record(t.Context(), Report{}), exception.ErrNilInstance))
}

type recorderFunc func(ctx context.Context, report Report) error

func (f recorderFunc) Record(ctx context.Context, report Report) error { return f(ctx, report) }

func TestMultiTriesAllRecorders(t *testing.T) {
	errFirst := errors.New("first")
	calls := 0
	m := Multi{
		recorderFunc(func(context.Context, Report) error { calls++; return errFirst }),
		nil,
		recorderFunc(func(context.Context, Report) error { calls++; return errors.New("second") }),
	}
	require.True(t, errors.Is(m.Record(t.Context(), Report{}), errFirst))
	assert.Equal(t, 2, calls)
}
