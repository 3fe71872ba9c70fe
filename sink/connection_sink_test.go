package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cms-messaging/domain/event"
)

func TestConsume_Drops_When_The_Connection_Lags(t *testing.T) {
	req := require.New(t)
	connectionSink := NewConnectionSink(1)

	// Given a connection that never drains, the second event is dropped
	// without an error so the fanout keeps moving
	req.NoError(connectionSink.Consume(context.Background(), event.PresenceUpdate{UserID: "alice", Online: true}))
	req.NoError(connectionSink.Consume(context.Background(), event.PresenceUpdate{UserID: "bob", Online: true}))

	req.Len(connectionSink.Events, 1)
	first := <-connectionSink.Events
	req.Equal(event.PresenceUpdate{UserID: "alice", Online: true}, first)
}
