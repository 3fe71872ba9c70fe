// Package runtime handles event propagation and live-session tracking.
// It orchestrates the realtime side of the system without containing
// business logic or domain rules.
package runtime

import (
	"fmt"
	"log/slog"

	"cms-messaging/domain/event"
)

// Bus is the fire-and-forget boundary between persistence and realtime
// delivery. Publish never blocks and never fails the caller: when the
// buffer is full the event is dropped and logged, because the persisted
// deliveredTo/readBy sets remain the source of truth and reconnecting
// clients re-fetch.
type Bus struct {
	log    *slog.Logger
	events chan event.DomainEvent
}

func NewBus(log *slog.Logger, bufferSize int) *Bus {
	return &Bus{
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
	}
}

func (b *Bus) Publish(e event.DomainEvent) {
	select {
	case b.events <- e:
	default:
		b.log.Warn(fmt.Sprintf("Event channel full, dropping %s", e.Name()))
	}
}

// Events exposes the consuming side for the fanout worker.
func (b *Bus) Events() <-chan event.DomainEvent {
	return b.events
}
