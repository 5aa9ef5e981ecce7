package bus

import (
	"context"

	"github.com/yanun0323/logs"
)

// Sink delivers notifications to the outside world.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogSink writes notifications to the process log.
type LogSink struct{}

// Deliver implements Sink.
func (LogSink) Deliver(_ context.Context, n Notification) error {
	logs.Infof("[%s] %s %s", n.Category, n.Time.Format("15:04:05.000"), n.Text)
	return nil
}
