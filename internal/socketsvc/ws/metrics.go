package ws

import (
	"sync/atomic"
	"time"
)

// Metrics tracks hub statistics with atomic counters.
type Metrics struct {
	EventsReceived   atomic.Int64
	EventsSent       atomic.Int64
	EventsDropped    atomic.Int64
	ConnectedClients atomic.Int32
	StartTime        time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	EventsReceived   int64     `json:"eventsReceived"`
	EventsSent       int64     `json:"eventsSent"`
	EventsDropped    int64     `json:"eventsDropped"`
	ConnectedClients int32     `json:"connectedClients"`
	StartTime        time.Time `json:"startTime"`
	Uptime           string    `json:"uptime"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		EventsReceived:   m.EventsReceived.Load(),
		EventsSent:       m.EventsSent.Load(),
		EventsDropped:    m.EventsDropped.Load(),
		ConnectedClients: m.ConnectedClients.Load(),
		StartTime:        m.StartTime,
		Uptime:           time.Since(m.StartTime).Round(time.Second).String(),
	}
}
