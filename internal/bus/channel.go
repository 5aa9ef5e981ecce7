package bus

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"orderdag/internal/obs"
	"orderdag/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// DefaultCapacity is the queue size used when none is configured.
const DefaultCapacity = 32

// CategoryOperations routes run status messages.
const CategoryOperations = "operations"

// Notification is a single status message on its way to a sink.
type Notification struct {
	Text     string
	Category string
	Time     time.Time
}

// Policy decides what Send does when the queue is full.
type Policy uint8

const (
	// PolicyBlock suspends the sender until space frees up or its context ends.
	PolicyBlock Policy = iota
	// PolicyDropNewest rejects the incoming notification with ErrQueueFull.
	PolicyDropNewest
	// PolicyDropOldest evicts the oldest queued notification to make room.
	PolicyDropOldest
)

func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyDropNewest:
		return "drop-newest"
	case PolicyDropOldest:
		return "drop-oldest"
	default:
		return "unknown"
	}
}

// ParsePolicy resolves a policy name. An empty name is PolicyBlock.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "block":
		return PolicyBlock, nil
	case "drop-newest", "drop-new":
		return PolicyDropNewest, nil
	case "drop-oldest":
		return PolicyDropOldest, nil
	default:
		return PolicyBlock, errors.Wrapf(exception.ErrInvalidArgument, "unknown backpressure policy: %s", name)
	}
}

// Channel is a bounded many-producer, single-consumer notification queue.
//
// The consumer side is Run. Close stops new sends; notifications accepted
// before Close are still handed to the sink.
type Channel struct {
	ch      chan Notification
	policy  Policy
	metrics *obs.Metrics

	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	closing chan struct{}
	sealed  chan struct{}
	dropped atomic.Uint64
	running atomic.Bool
}

// NewChannel allocates a channel with the given capacity and full-queue policy.
// metrics may be nil.
func NewChannel(capacity int, policy Policy, metrics *obs.Metrics) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		ch:      make(chan Notification, capacity),
		policy:  policy,
		metrics: metrics,
		closing: make(chan struct{}),
		sealed:  make(chan struct{}),
	}
}

// Policy returns the configured full-queue policy.
func (c *Channel) Policy() Policy {
	return c.policy
}

// Cap returns the queue capacity.
func (c *Channel) Cap() int {
	return cap(c.ch)
}

// Len returns the number of queued notifications.
func (c *Channel) Len() int {
	return len(c.ch)
}

// Dropped returns how many notifications were lost to the queue policy.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// Send enqueues n, stamping its time when unset.
func (c *Channel) Send(ctx context.Context, n Notification) error {
	if n.Time.IsZero() {
		n.Time = time.Now().UTC()
	}
	if n.Category == "" {
		n.Category = CategoryOperations
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		c.metrics.IncNotificationClosed()
		return exception.ErrQueueClosed
	}

	switch c.policy {
	case PolicyDropNewest:
		select {
		case c.ch <- n:
		default:
			c.dropped.Add(1)
			c.metrics.IncNotificationDropped()
			return exception.ErrQueueFull
		}
	case PolicyDropOldest:
		for {
			select {
			case c.ch <- n:
				c.metrics.IncNotificationSent()
				return nil
			default:
			}
			select {
			case <-c.ch:
				c.dropped.Add(1)
				c.metrics.IncNotificationDropped()
			default:
			}
		}
	default:
		select {
		case c.ch <- n:
			c.metrics.IncNotificationSent()
			return nil
		default:
		}
		// A done ctx only stops a sender that would otherwise wait.
		select {
		case c.ch <- n:
		case <-c.closing:
			c.metrics.IncNotificationClosed()
			return exception.ErrQueueClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.metrics.IncNotificationSent()
	return nil
}

// Close stops the channel from accepting new notifications. Blocked senders
// return ErrQueueClosed.
func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.closing)
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.sealed)
	})
}

// Run delivers notifications to sink until ctx is done or the channel is
// closed and drained. Delivery failures are logged and skipped. Only one Run
// may be active per channel.
func (c *Channel) Run(ctx context.Context, sink Sink) {
	if sink == nil {
		logs.Errorf("notification consumer not started, err: %+v", exception.ErrNilInstance)
		return
	}
	if c.running.Swap(true) {
		return
	}
	defer c.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-c.ch:
			c.deliver(ctx, sink, n)
		case <-c.sealed:
			for {
				select {
				case n := <-c.ch:
					c.deliver(ctx, sink, n)
				default:
					return
				}
			}
		}
	}
}

func (c *Channel) deliver(ctx context.Context, sink Sink, n Notification) {
	start := time.Now()
	err := sink.Deliver(ctx, n)
	c.metrics.ObserveDelivery(err, time.Since(start))
	if err != nil {
		logs.Errorf("deliver notification, category: %s, err: %+v", n.Category, err)
	}
}
