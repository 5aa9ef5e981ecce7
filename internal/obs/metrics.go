package obs

import (
	"sync/atomic"
	"time"

	"orderdag/internal/graph"
)

const maxStatus = int(graph.StatusSkipped)

// Metrics collects lightweight counters and latency stats for scheduler runs.
type Metrics struct {
	statusCounts [maxStatus + 1]atomic.Uint64
	levels       atomic.Uint64
	panics       atomic.Uint64

	notifySent     atomic.Uint64
	notifyDropped  atomic.Uint64
	notifyClosed   atomic.Uint64
	delivered      atomic.Uint64
	deliveryFailed atomic.Uint64

	itemLatency     LatencyStats
	levelLatency    LatencyStats
	deliveryLatency LatencyStats
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	StatusCounts         map[graph.Status]uint64
	Levels               uint64
	Panics               uint64
	NotificationsSent    uint64
	NotificationsDropped uint64
	NotificationsClosed  uint64
	Delivered            uint64
	DeliveryFailed       uint64
	ItemLatency          LatencySnapshot
	LevelLatency         LatencySnapshot
	DeliveryLatency      LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveItem counts a settled item and, for executed items, its latency.
func (m *Metrics) ObserveItem(status graph.Status, d time.Duration) {
	if m == nil {
		return
	}
	idx := int(status)
	if idx >= 0 && idx < len(m.statusCounts) {
		m.statusCounts[idx].Add(1)
	}
	if d > 0 {
		m.itemLatency.Observe(d)
	}
}

// ObserveLevel measures the time from dispatch to barrier for one level.
func (m *Metrics) ObserveLevel(d time.Duration) {
	if m == nil {
		return
	}
	m.levels.Add(1)
	m.levelLatency.Observe(d)
}

// IncPanic records a strategy panic converted into a failure.
func (m *Metrics) IncPanic() {
	if m == nil {
		return
	}
	m.panics.Add(1)
}

// IncNotificationSent records an accepted notification.
func (m *Metrics) IncNotificationSent() {
	if m == nil {
		return
	}
	m.notifySent.Add(1)
}

// IncNotificationDropped records a notification lost to the queue policy.
func (m *Metrics) IncNotificationDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Add(1)
}

// IncNotificationClosed records a send attempt on a closed channel.
func (m *Metrics) IncNotificationClosed() {
	if m == nil {
		return
	}
	m.notifyClosed.Add(1)
}

// ObserveDelivery records one sink delivery attempt.
func (m *Metrics) ObserveDelivery(err error, d time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.deliveryFailed.Add(1)
	} else {
		m.delivered.Add(1)
	}
	m.deliveryLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	counts := make(map[graph.Status]uint64)
	for i := range m.statusCounts {
		if v := m.statusCounts[i].Load(); v > 0 {
			counts[graph.Status(i)] = v
		}
	}
	return Snapshot{
		StatusCounts:         counts,
		Levels:               m.levels.Load(),
		Panics:               m.panics.Load(),
		NotificationsSent:    m.notifySent.Load(),
		NotificationsDropped: m.notifyDropped.Load(),
		NotificationsClosed:  m.notifyClosed.Load(),
		Delivered:            m.delivered.Load(),
		DeliveryFailed:       m.deliveryFailed.Load(),
		ItemLatency:          m.itemLatency.Snapshot(),
		LevelLatency:         m.levelLatency.Snapshot(),
		DeliveryLatency:      m.deliveryLatency.Snapshot(),
	}
}
