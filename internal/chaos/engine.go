package chaos

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"orderdag/internal/executor"
	"orderdag/pkg/exception"

	"github.com/yanun0323/errors"
)

// ErrInjected marks a failure produced by the chaos engine.
var ErrInjected = errors.New("chaos: injected failure")

// Config controls fault injection.
type Config struct {
	Seed      int64
	FailRate  float64
	PanicRate float64
	MaxDelay  time.Duration
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.FailRate < 0 || c.FailRate > 1 {
		return fmt.Errorf("failRate must be between 0 and 1")
	}
	if c.PanicRate < 0 || c.PanicRate > 1 {
		return fmt.Errorf("panicRate must be between 0 and 1")
	}
	if c.FailRate+c.PanicRate > 1 {
		return fmt.Errorf("failRate + panicRate must be <= 1")
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("maxDelay must be >= 0")
	}
	return nil
}

// Enabled reports whether any fault would be injected.
func (c Config) Enabled() bool {
	return c.FailRate > 0 || c.PanicRate > 0 || c.MaxDelay > 0
}

// Engine wraps a strategy and injects delays, failures and panics in front
// of it. It is safe for concurrent use.
type Engine struct {
	cfg  Config
	next executor.Strategy

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates a chaos engine around next.
func NewEngine(cfg Config, next executor.Strategy) (*Engine, error) {
	if next == nil {
		return nil, exception.ErrNilStrategy
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg:  cfg,
		next: next,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

type fault uint8

const (
	faultNone fault = iota
	faultFail
	faultPanic
)

// Execute implements executor.Strategy.
func (e *Engine) Execute(ctx context.Context, payload any) error {
	f, delay := e.roll()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	switch f {
	case faultFail:
		return ErrInjected
	case faultPanic:
		panic("chaos: injected panic")
	default:
		return e.next.Execute(ctx, payload)
	}
}

func (e *Engine) roll() (fault, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var delay time.Duration
	if maxDelay := e.cfg.MaxDelay.Nanoseconds(); maxDelay > 0 {
		delay = time.Duration(e.rng.Int63n(maxDelay + 1))
	}

	r := e.rng.Float64()
	switch {
	case r < e.cfg.FailRate:
		return faultFail, delay
	case r < e.cfg.FailRate+e.cfg.PanicRate:
		return faultPanic, delay
	default:
		return faultNone, delay
	}
}
