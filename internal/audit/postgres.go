package audit

import (
	"context"
	"strings"
	"time"

	"orderdag/pkg/exception"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
)

const _insertBatchSize = 200

// WorkItemRun is one row of run history.
type WorkItemRun struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	RunID        uint64    `gorm:"index:idx_work_item_runs_run"`
	ItemID       string    `gorm:"size:128;index"`
	Level        int       `gorm:"not null"`
	Status       string    `gorm:"size:16;not null"`
	Reason       string    `gorm:"type:text"`
	Dependencies string    `gorm:"type:text"`
	DurationNs   int64     `gorm:"not null"`
	FinishedAt   time.Time `gorm:"not null"`
}

// TableName implements gorm's tabler.
func (WorkItemRun) TableName() string {
	return "work_item_runs"
}

// PostgresRecorder appends run history rows through gorm.
type PostgresRecorder struct {
	db *gorm.DB
}

// NewPostgresRecorder creates a recorder on db.
func NewPostgresRecorder(db *gorm.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Migrate creates or updates the history table.
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return exception.ErrNilInstance
	}
	if err := r.db.WithContext(ctx).AutoMigrate(&WorkItemRun{}); err != nil {
		return errors.Wrap(err, "migrate work_item_runs")
	}
	return nil
}

// Record implements Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, report Report) error {
	if r == nil || r.db == nil {
		return exception.ErrNilInstance
	}
	rows := Rows(report)
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(rows, _insertBatchSize).Error; err != nil {
		return errors.Wrapf(err, "insert run %d", report.RunID)
	}
	return nil
}

// Rows flattens a report into history rows.
func Rows(report Report) []WorkItemRun {
	rows := make([]WorkItemRun, 0, len(report.Items))
	for _, item := range report.Items {
		rows = append(rows, WorkItemRun{
			RunID:        report.RunID,
			ItemID:       item.ID,
			Level:        item.Level,
			Status:       item.Status,
			Reason:       item.Reason,
			Dependencies: strings.Join(item.Dependencies, ","),
			DurationNs:   item.DurationNs,
			FinishedAt:   report.FinishedAt,
		})
	}
	return rows
}
