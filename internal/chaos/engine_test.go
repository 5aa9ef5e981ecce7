package chaos

import (
	"context"
	"testing"
	"time"

	"orderdag/internal/executor"
	"orderdag/internal/graph"
	"orderdag/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

var okStrategy = executor.StrategyFunc(func(context.Context, any) error { return nil })

func TestConfigValidate(t *testing.T) {
	require.NoError(t, Config{}.Validate())
	require.NoError(t, Config{FailRate: 0.3, PanicRate: 0.2, MaxDelay: time.Millisecond}.Validate())

	for _, cfg := range []Config{
		{FailRate: -0.1},
		{FailRate: 1.1},
		{PanicRate: 2},
		{FailRate: 0.6, PanicRate: 0.6},
		{MaxDelay: -time.Second},
	} {
		assert.Errorf(t, cfg.Validate(), "%+v", cfg)
	}
}

func TestNewEngineRejectsNilStrategy(t *testing.T) {
	_, err := NewEngine(Config{}, nil)
	require.True(t, errors.Is(err, exception.ErrNilStrategy))
}

func TestEngineAlwaysFails(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, FailRate: 1}, okStrategy)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.True(t, errors.Is(e.Execute(t.Context(), nil), ErrInjected))
	}
}

func TestEnginePassThrough(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1}, okStrategy)
	require.NoError(t, err)
	assert.False(t, Config{}.Enabled())
	require.NoError(t, e.Execute(t.Context(), nil))
}

func TestEnginePanicIsContainedByExecutor(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1, PanicRate: 1}, okStrategy)
	require.NoError(t, err)

	store := graph.NewStore()
	require.NoError(t, store.Add("a", nil))
	require.NoError(t, store.Add("b", nil, "a"))

	summary, err := executor.New(nil).Process(t.Context(), store, e)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)

	a, _ := summary.Outcome("a")
	require.True(t, errors.Is(a.Err, exception.ErrExecutionPanic))
}

func TestEngineDelayHonorsContext(t *testing.T) {
	e, err := NewEngine(Config{Seed: 3, MaxDelay: time.Hour}, okStrategy)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	require.True(t, errors.Is(e.Execute(ctx, nil), context.DeadlineExceeded))
}
