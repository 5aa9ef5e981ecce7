package executor

import (
	"time"

	"orderdag/internal/bus"
	"orderdag/internal/obs"
)

type config struct {
	maxConcurrency int
	levelTimeout   time.Duration
	category       string
	metrics        *obs.Metrics
	runIDs         *obs.RunIDGenerator
}

func defaultConfig() config {
	return config{
		category: bus.CategoryOperations,
		runIDs:   obs.NewRunIDGenerator(0),
	}
}

// Option configures an Executor.
type Option func(*config)

// WithMaxConcurrency caps how many items of one level run at once.
// Zero or less means no cap.
func WithMaxConcurrency(n int) Option {
	return func(c *config) {
		c.maxConcurrency = n
	}
}

// WithLevelTimeout bounds each level with a deadline passed to the strategy.
func WithLevelTimeout(d time.Duration) Option {
	return func(c *config) {
		c.levelTimeout = d
	}
}

// WithCategory sets the notification category.
func WithCategory(category string) Option {
	return func(c *config) {
		if category != "" {
			c.category = category
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *obs.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithRunIDs sets the run id source.
func WithRunIDs(g *obs.RunIDGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.runIDs = g
		}
	}
}
