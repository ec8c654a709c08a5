package broadcast_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naf-chat-server/internal/domain/notification"
	"naf-chat-server/internal/infrastructure/broadcast"
)

func recvEvent(t *testing.T, c <-chan notification.Event) notification.Event {
	t.Helper()
	select {
	case event, ok := <-c:
		require.True(t, ok, "channel closed unexpectedly")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return notification.Event{}
	}
}

func TestHub_ConnectedEventIsFirst(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	sub := hub.Connect("coord_a", 3)
	hub.Publish(notification.Event{Type: notification.EventNewChatRequest}, "")

	first := recvEvent(t, sub.C)
	assert.Equal(t, notification.EventConnected, first.Type)
	assert.Equal(t, 3, first.Payload.TotalPending)

	second := recvEvent(t, sub.C)
	assert.Equal(t, notification.EventNewChatRequest, second.Type)
}

func TestHub_PublishExcludesCausingCoordinator(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	winner := hub.Connect("coord_winner", 0)
	other := hub.Connect("coord_other", 0)
	recvEvent(t, winner.C) // drain connected
	recvEvent(t, other.C)

	hub.Publish(notification.Event{Type: notification.EventClaimed, ConversationID: "conv_1"}, "coord_winner")

	event := recvEvent(t, other.C)
	assert.Equal(t, notification.EventClaimed, event.Type)

	select {
	case event := <-winner.C:
		t.Fatalf("excluded coordinator received %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishTo(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	target := hub.Connect("coord_target", 0)
	bystander := hub.Connect("coord_bystander", 0)
	recvEvent(t, target.C)
	recvEvent(t, bystander.C)

	hub.PublishTo("coord_target", notification.Event{Type: notification.EventTransferred})
	hub.PublishTo("coord_absent", notification.Event{Type: notification.EventTransferred})

	event := recvEvent(t, target.C)
	assert.Equal(t, notification.EventTransferred, event.Type)

	select {
	case event := <-bystander.C:
		t.Fatalf("bystander received %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SlowConsumerDoesNotBlockOthers(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	slow := hub.Connect("coord_slow", 0)
	fast := hub.Connect("coord_fast", 0)
	recvEvent(t, fast.C)

	// Fill the slow consumer's buffer without draining it. The connected
	// event already occupies one slot.
	for i := 0; i < broadcast.DefaultChannelBuffer+5; i++ {
		hub.Publish(notification.Event{Type: notification.EventNewChatRequest}, "")
	}

	// The fast consumer still gets every event.
	for i := 0; i < broadcast.DefaultChannelBuffer+5; i++ {
		event := recvEvent(t, fast.C)
		assert.Equal(t, notification.EventNewChatRequest, event.Type)
	}

	// The slow consumer got its buffer's worth, the rest were dropped.
	drained := 0
	for {
		select {
		case <-slow.C:
			drained++
			continue
		case <-time.After(50 * time.Millisecond):
		}
		break
	}
	assert.Equal(t, broadcast.DefaultChannelBuffer, drained)
}

func TestHub_ReconnectReplacesChannel(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	first := hub.Connect("coord_a", 0)
	recvEvent(t, first.C)

	second := hub.Connect("coord_a", 2)

	_, ok := <-first.C
	assert.False(t, ok, "previous channel must be closed on reconnect")

	event := recvEvent(t, second.C)
	assert.Equal(t, notification.EventConnected, event.Type)
	assert.Equal(t, 2, event.Payload.TotalPending)

	assert.Equal(t, 1, hub.ConnectedCount())
}

func TestHub_DisconnectIsIdempotent(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	sub := hub.Connect("coord_a", 0)
	recvEvent(t, sub.C)

	hub.Disconnect(sub)
	hub.Disconnect(sub)
	hub.Disconnect(nil)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ConnectedCount())

	// Publishing to an empty hub is a no-op.
	hub.Publish(notification.Event{Type: notification.EventEnded}, "")
}

func TestHub_StaleDisconnectKeepsReplacementChannel(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	stale := hub.Connect("coord_a", 0)
	recvEvent(t, stale.C)

	replacement := hub.Connect("coord_a", 0)
	recvEvent(t, replacement.C)

	// A handler still holding the pre-reconnect subscription must not tear
	// down the replacement when its own context ends.
	hub.Disconnect(stale)
	assert.Equal(t, 1, hub.ConnectedCount())

	hub.Publish(notification.Event{Type: notification.EventNewChatRequest}, "")
	event := recvEvent(t, replacement.C)
	assert.Equal(t, notification.EventNewChatRequest, event.Type)

	hub.Disconnect(replacement)
	assert.Equal(t, 0, hub.ConnectedCount())
}

func TestHub_ConcurrentReconnectsSameCoordinator(t *testing.T) {
	hub := broadcast.NewHub(zerolog.Nop())

	// Racing reconnects close and replace each other's channels; none of
	// them may panic sending the connected event.
	for i := 0; i < 200; i++ {
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				hub.Connect("coord_a", 0)
			}()
		}
		wg.Wait()
	}

	assert.Equal(t, 1, hub.ConnectedCount())

	sub := hub.Connect("coord_a", 4)
	event := recvEvent(t, sub.C)
	assert.Equal(t, notification.EventConnected, event.Type)
	assert.Equal(t, 4, event.Payload.TotalPending)
}
