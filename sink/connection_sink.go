// Package sink bridges the fanout to individual realtime connections.
package sink

import (
	"context"

	"cms-messaging/domain/event"
)

// ConnectionSink buffers events for one live connection. Consume is
// called by the fanout worker; the connection's writer goroutine drains
// Events and pushes frames on the wire. A full buffer drops the event
// rather than blocking the fanout: a slow client re-syncs by fetching.
type ConnectionSink struct {
	Events chan event.DomainEvent
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Backpressure: the connection is too slow, drop.
		return nil
	}
}
