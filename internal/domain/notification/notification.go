// Package notification defines the queue-change events pushed to connected
// coordinators and the broadcaster contract that delivers them.
package notification

import "time"

// EventType identifies the kind of queue-change event.
type EventType string

const (
	// EventConnected is emitted once when a coordinator's channel opens,
	// together with a pending-count snapshot.
	EventConnected EventType = "connected"
	// EventNewChatRequest signals a fresh escalation entering the queue.
	EventNewChatRequest EventType = "new_chat_request"
	// EventClaimed tells other coordinators to drop the entry from their
	// pending views.
	EventClaimed EventType = "claimed"
	// EventTransferred informs the new assignee directly and refreshes
	// everyone else's queue views.
	EventTransferred EventType = "transferred"
	// EventEnded signals the conversation reached its terminal state.
	EventEnded EventType = "ended"
)

// Payload carries enough context for a client to render the event without a
// follow-up fetch. Clients must still tolerate stale or duplicate events by
// re-deriving truth from the pending/active lists.
type Payload struct {
	UserName       string `json:"user_name,omitempty"`
	Snippet        string `json:"snippet,omitempty"`
	WaitingSeconds int64  `json:"waiting_seconds,omitempty"`
	TotalPending   int    `json:"total_pending"`
	CoordinatorID  string `json:"coordinator_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Event is ephemeral: it exists only for delivery and is never persisted.
// A client that misses one reconciles from the conversation store.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Payload        Payload   `json:"payload"`
	Timestamp      time.Time `json:"timestamp"`
}

// Broadcaster fans queue-change events out to every connected coordinator
// with best-effort, at-least-once-per-connected-client semantics. There is no
// durable queue; a disconnected coordinator fetches current state on
// reconnect instead of replaying missed events.
type Broadcaster interface {
	// Connect opens the coordinator's push channel, replacing any previous
	// one, and immediately emits a connected event with the pending count.
	Connect(coordinatorID string, totalPending int) *Subscription

	// Publish fans the event to all connected channels except the excluded
	// coordinator (the one who caused the event). A slow or dead channel is
	// skipped; delivery to it is logged and dropped, never blocking others.
	Publish(event Event, excludeCoordinatorID string)

	// PublishTo delivers an event to a single coordinator, if connected.
	PublishTo(coordinatorID string, event Event)

	// Disconnect closes and removes the subscription's channel. Idempotent.
	// A stale subscription from before a reconnect is ignored so it cannot
	// close the replacement channel.
	Disconnect(sub *Subscription)
}

// Subscription is one coordinator's exclusive push channel. It is owned by
// that coordinator's connection and never shared or migrated.
type Subscription struct {
	CoordinatorID string
	C             <-chan Event
}
