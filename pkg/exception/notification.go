package exception

import "github.com/yanun0323/errors"

var (
	ErrQueueFull      = errors.New("notification: queue full")
	ErrQueueClosed    = errors.New("notification: queue closed")
	ErrDeliveryFailed = errors.New("notification: delivery failed")
)
