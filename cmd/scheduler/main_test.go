package main

import (
	"path/filepath"
	"testing"

	"orderdag/internal/audit"
	"orderdag/internal/ops"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDemoWorkload(t *testing.T) {
	t.Setenv(ops.EnvWebhookURL, "")
	t.Setenv(ops.EnvPostgresDSN, "")

	loaded := ops.Default()
	loaded.ReportPath = filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, run(t.Context(), loaded, ""))

	report, err := audit.ReadReport(loaded.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Levels)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)

	levels := make(map[string]int)
	for _, item := range report.Items {
		levels[item.ID] = item.Level
	}
	assert.Equal(t, map[string]int{
		"btc-open":   1,
		"eth-open":   1,
		"btc-hedge":  2,
		"rebalance":  3,
		"bad-size":   1,
		"sol-follow": 2,
	}, levels)
}
