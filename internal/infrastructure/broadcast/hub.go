// Package broadcast implements the notification broadcaster as an in-process
// hub with one buffered channel per connected coordinator.
package broadcast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"naf-chat-server/internal/domain/notification"
	"naf-chat-server/internal/infrastructure/metrics"
)

// DefaultChannelBuffer is the per-coordinator event buffer. A coordinator
// whose buffer fills up loses events and reconciles from the pending list.
const DefaultChannelBuffer = 16

type subscriber struct {
	coordinatorID string
	ch            chan notification.Event
}

// Hub fans queue-change events out to connected coordinators. Publication
// never blocks: a full or closed channel drops that delivery only.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	buffer      int
	log         zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]*subscriber),
		buffer:      DefaultChannelBuffer,
		log:         log.With().Str("component", "notification-hub").Logger(),
	}
}

// Connect opens the coordinator's push channel. A coordinator has at most one
// channel: reconnecting closes and replaces the previous one. The connected
// event with the pending-count snapshot is queued before the method returns,
// so it is always the first event the consumer sees.
func (h *Hub) Connect(coordinatorID string, totalPending int) *notification.Subscription {
	h.mu.Lock()
	if prev, ok := h.subscribers[coordinatorID]; ok {
		close(prev.ch)
	} else {
		metrics.ConnectedCoordinators.Inc()
	}

	sub := &subscriber{
		coordinatorID: coordinatorID,
		ch:            make(chan notification.Event, h.buffer),
	}
	h.subscribers[coordinatorID] = sub

	// Queued under the lock: the channel is fresh and buffered, so this
	// cannot block, and a concurrent reconnect cannot close it first.
	sub.ch <- notification.Event{
		Type:      notification.EventConnected,
		Payload:   notification.Payload{TotalPending: totalPending},
		Timestamp: time.Now(),
	}
	h.mu.Unlock()

	h.log.Info().Str("coordinator_id", coordinatorID).Msg("coordinator connected")
	return &notification.Subscription{
		CoordinatorID: coordinatorID,
		C:             sub.ch,
	}
}

// Publish fans the event to every connected coordinator except the excluded
// one. Deliveries to slow or dead channels are dropped and logged; they never
// fail or delay delivery to other recipients.
func (h *Hub) Publish(event notification.Event, excludeCoordinatorID string) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		if id == excludeCoordinatorID {
			continue
		}
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.deliver(sub, event)
	}
}

// PublishTo delivers an event to a single coordinator, if connected.
func (h *Hub) PublishTo(coordinatorID string, event notification.Event) {
	h.mu.RLock()
	sub, ok := h.subscribers[coordinatorID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(sub, event)
}

// Disconnect closes and removes the subscription's channel. Idempotent, and
// keyed on channel identity: a stale handle left over from before a reconnect
// does not tear down the successor's channel.
func (h *Hub) Disconnect(sub *notification.Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.subscribers[sub.CoordinatorID]
	if !ok || cur.ch != sub.C {
		return
	}
	delete(h.subscribers, sub.CoordinatorID)
	close(cur.ch)
	metrics.ConnectedCoordinators.Dec()
	h.log.Info().Str("coordinator_id", sub.CoordinatorID).Msg("coordinator disconnected")
}

// ConnectedCount returns the number of open channels.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) deliver(sub *subscriber, event notification.Event) {
	defer func() {
		// The channel may have been closed by a concurrent reconnect or
		// disconnect; treat the lost delivery like a full buffer.
		if recover() != nil {
			metrics.RecordNotificationDropped()
		}
	}()

	select {
	case sub.ch <- event:
		metrics.RecordNotificationPublished(string(event.Type))
	default:
		metrics.RecordNotificationDropped()
		h.log.Warn().
			Str("coordinator_id", sub.coordinatorID).
			Str("event_type", string(event.Type)).
			Msg("notification channel full, event dropped")
	}
}
