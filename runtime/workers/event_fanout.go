package workers

import (
	"context"
	"log/slog"

	"cms-messaging/contract"
	"cms-messaging/domain/event"
)

// EventFanout broadcasts domain events to the live connections that
// should hear them: conversation-scoped events go to connections joined
// to that conversation's channel, presence events go to every live
// connection.
//
// Fan-out is best-effort with no guarantees regarding delivery,
// ordering, durability, or retries. It runs strictly downstream of a
// successful persistence mutation and can never fail the request that
// triggered the event: sink errors are only logged.
type EventFanout struct {
	log      *slog.Logger
	registry contract.IRegistry
	events   <-chan event.DomainEvent
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, events <-chan event.DomainEvent) *EventFanout {
	return &EventFanout{log: log, registry: registry, events: events}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout resolves the target sinks for one event and delivers to each.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var sinks []contract.EventSink
	if scope := evt.ConversationID(); scope != "" {
		sinks = w.registry.SinksForConversation(scope)
	} else {
		sinks = w.registry.AllSinks()
	}

	for _, sink := range sinks {
		if err := sink.Consume(ctx, evt); err != nil {
			w.log.Warn("Sink rejected event", "event", evt.Name(), "error", err)
		}
	}
}
