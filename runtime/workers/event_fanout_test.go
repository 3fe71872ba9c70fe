package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cms-messaging/contract"
	"cms-messaging/domain/event"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fakeRegistry struct {
	channels map[string][]contract.EventSink
	all      []contract.EventSink
}

func (r *fakeRegistry) RegisterConnection(string, string, contract.EventSink) {}
func (r *fakeRegistry) UnregisterConnection(string, string)                   {}
func (r *fakeRegistry) JoinConversation(string, string)                       {}
func (r *fakeRegistry) LeaveConversation(string, string)                      {}
func (r *fakeRegistry) IsOnline(string) bool                                  { return false }

func (r *fakeRegistry) SinksForConversation(conversationID string) []contract.EventSink {
	return r.channels[conversationID]
}

func (r *fakeRegistry) AllSinks() []contract.EventSink {
	return r.all
}

func TestFanout_Scopes_Conversation_Events_To_Their_Channel(t *testing.T) {
	req := require.New(t)
	joined := &recordingSink{}
	elsewhere := &recordingSink{}
	registry := &fakeRegistry{
		channels: map[string][]contract.EventSink{"convo-1": {joined}},
		all:      []contract.EventSink{joined, elsewhere},
	}
	fanout := NewEventFanout(slog.Default(), registry, nil)

	// When a message event for convo-1 is fanned out
	fanout.Fanout(context.Background(), event.MessageNew{ID: "m1", Conversation: "convo-1"})

	// Then only the joined connection hears it
	req.Len(joined.events, 1)
	req.Empty(elsewhere.events)
}

func TestFanout_Broadcasts_Presence_To_Everyone(t *testing.T) {
	req := require.New(t)
	first := &recordingSink{}
	second := &recordingSink{}
	registry := &fakeRegistry{all: []contract.EventSink{first, second}}
	fanout := NewEventFanout(slog.Default(), registry, nil)

	// Presence events have no conversation scope
	fanout.Fanout(context.Background(), event.PresenceUpdate{UserID: "alice", Online: true})

	req.Len(first.events, 1)
	req.Len(second.events, 1)
}

func TestFanout_Survives_A_Failing_Sink(t *testing.T) {
	req := require.New(t)
	healthy := &recordingSink{}
	registry := &fakeRegistry{
		channels: map[string][]contract.EventSink{"convo-1": {failingSink{}, healthy}},
	}
	fanout := NewEventFanout(slog.Default(), registry, nil)

	fanout.Fanout(context.Background(), event.MessageRead{Conversation: "convo-1", By: "bob", All: true})

	// The error is swallowed and the remaining sink still gets the event
	req.Len(healthy.events, 1)
}

type failingSink struct{}

func (failingSink) Consume(context.Context, event.DomainEvent) error {
	return context.DeadlineExceeded
}

func TestRun_Drains_The_Event_Channel_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	sink := &recordingSink{}
	registry := &fakeRegistry{all: []contract.EventSink{sink}}

	events := make(chan event.DomainEvent, 1)
	fanout := NewEventFanout(slog.Default(), registry, events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	events <- event.PresenceUpdate{UserID: "alice", Online: true}

	req.Eventually(func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	req.NoError(<-done)
}
