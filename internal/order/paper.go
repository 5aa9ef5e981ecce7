package order

import (
	"context"
	"sync"
	"time"

	"orderdag/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// PaperStrategy accepts valid orders without touching a venue. It keeps the
// accepted orders so the run can be inspected afterwards.
type PaperStrategy struct {
	latency time.Duration

	mu     sync.Mutex
	filled []Order
}

// NewPaperStrategy creates a paper strategy that spends latency on each order.
func NewPaperStrategy(latency time.Duration) *PaperStrategy {
	return &PaperStrategy{latency: latency}
}

// Execute validates and accepts one order.
func (p *PaperStrategy) Execute(ctx context.Context, payload any) error {
	var o Order
	switch v := payload.(type) {
	case Order:
		o = v
	case *Order:
		if v == nil {
			return exception.ErrNilInstance
		}
		o = *v
	default:
		return errors.Wrapf(exception.ErrInvalidArgument, "unexpected payload %T", payload)
	}

	if err := o.validate(); err != nil {
		return err
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	p.filled = append(p.filled, o)
	p.mu.Unlock()

	logs.Infof("paper fill %s %s %s %s @ %s", o.ID, o.Side, o.Market, o.Quantity.String(), o.Price.String())
	return nil
}

// Filled returns the accepted orders.
func (p *PaperStrategy) Filled() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Order(nil), p.filled...)
}
