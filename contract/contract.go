//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"cms-messaging/domain/event"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// EventSink receives fanned-out events. Implementations must never block
// the fanout loop: drop and report instead.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IPublisher decouples persistence from realtime delivery.
// Publish is fire-and-forget: a full buffer or a missing consumer must
// never fail the operation that triggered the event.
type IPublisher interface {
	Publish(e event.DomainEvent)
}

// IRegistry tracks live connections per principal and their
// conversation-channel subscriptions. In a multi-instance deployment a
// broker-backed implementation would replace the in-memory one behind
// this interface.
type IRegistry interface {
	RegisterConnection(principalID, connID string, sink EventSink)
	UnregisterConnection(principalID, connID string)
	JoinConversation(connID, conversationID string)
	LeaveConversation(connID, conversationID string)
	IsOnline(principalID string) bool
	SinksForConversation(conversationID string) []EventSink
	AllSinks() []EventSink
}
