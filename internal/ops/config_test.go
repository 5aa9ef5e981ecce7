package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"orderdag/internal/bus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	t.Setenv(EnvPostgresDSN, "")

	loaded := Default()
	assert.Equal(t, bus.DefaultCapacity, loaded.Notification.Capacity)
	assert.Equal(t, bus.PolicyBlock, loaded.Notification.Policy)
	assert.Equal(t, bus.CategoryOperations, loaded.Notification.Category)
	assert.Equal(t, SinkLog, loaded.Notification.Sink)
	assert.Zero(t, loaded.Executor.MaxConcurrency)
	assert.Zero(t, loaded.Executor.LevelTimeout)
	assert.Nil(t, loaded.Postgres)
	assert.False(t, loaded.Profiling.Enabled)
	assert.False(t, loaded.Chaos.Enabled())
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	t.Setenv(EnvPostgresDSN, "")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"notification": {"capacity": 8, "policy": "drop-oldest", "category": "orders", "webhookUrl": "http://hooks.local/x"},
		"executor": {"maxConcurrency": 4, "levelTimeout": "2s"},
		"paper": {"latency": "15ms"},
		"chaos": {"seed": 9, "failRate": 0.25, "maxDelay": "5ms"},
		"audit": {"reportPath": "out/report.json", "postgres": {"host": "db", "database": "orderdag"}},
		"profiling": {"enabled": true}
	}`), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, loaded.Notification.Capacity)
	assert.Equal(t, bus.PolicyDropOldest, loaded.Notification.Policy)
	assert.Equal(t, "orders", loaded.Notification.Category)
	assert.Equal(t, SinkWebhook, loaded.Notification.Sink)
	assert.Equal(t, 4, loaded.Executor.MaxConcurrency)
	assert.Equal(t, 2*time.Second, loaded.Executor.LevelTimeout)
	assert.Equal(t, 15*time.Millisecond, loaded.PaperLatency)
	assert.Equal(t, 0.25, loaded.Chaos.FailRate)
	assert.Equal(t, 5*time.Millisecond, loaded.Chaos.MaxDelay)
	assert.True(t, loaded.Chaos.Enabled())
	assert.Equal(t, "out/report.json", loaded.ReportPath)
	require.NotNil(t, loaded.Postgres)
	assert.Equal(t, "db", loaded.Postgres.Host)
	assert.Equal(t, "orderdag.scheduler", loaded.Profiling.ApplicationName)
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv(EnvWebhookURL, "http://hooks.local/env")
	t.Setenv(EnvPostgresDSN, "postgres://u@db:5432/orderdag")

	loaded, err := Resolve(FileConfig{})
	require.NoError(t, err)
	assert.Equal(t, SinkWebhook, loaded.Notification.Sink)
	assert.Equal(t, "http://hooks.local/env", loaded.Notification.WebhookURL)
	require.NotNil(t, loaded.Postgres)
	assert.Equal(t, "postgres://u@db:5432/orderdag", loaded.Postgres.ConnString)
}

func TestResolveRejectsInvalid(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	t.Setenv(EnvPostgresDSN, "")

	for name, cfg := range map[string]FileConfig{
		"policy":        {Notification: NotificationConfig{Policy: "lossy"}},
		"capacity":      {Notification: NotificationConfig{Capacity: -1}},
		"sink":          {Notification: NotificationConfig{Sink: "pager"}},
		"webhook":       {Notification: NotificationConfig{Sink: SinkWebhook}},
		"concurrency":   {Executor: ExecutorConfig{MaxConcurrency: -2}},
		"level timeout": {Executor: ExecutorConfig{LevelTimeout: "soon"}},
		"latency":       {Paper: PaperConfig{Latency: "-1s"}},
		"chaos":         {Chaos: ChaosConfig{FailRate: 1.5}},
	} {
		_, err := Resolve(cfg)
		assert.Errorf(t, err, "case %s", name)
	}
}
