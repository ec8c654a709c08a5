// Package metrics provides Prometheus metrics for the chat coordination engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConversations tracks conversations that have not ended yet.
	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_conversations",
			Help: "Number of conversations that have not reached the ended state",
		},
	)

	// ConversationsCreated tracks the total number of conversations created.
	ConversationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_conversations_created_total",
			Help: "Total number of conversations created",
		},
	)

	// Claims tracks accept outcomes. The "lost" outcome is an expected race
	// result, not an error.
	Claims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_claims_total",
			Help: "Total accept attempts by outcome (won, lost)",
		},
		[]string{"outcome"},
	)

	// Rejections tracks per-coordinator offer withdrawals.
	Rejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rejections_total",
			Help: "Total pending-request rejections by individual coordinators",
		},
	)

	// Transfers tracks ownership hand-offs between coordinators.
	Transfers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_transfers_total",
			Help: "Total conversation transfers between coordinators",
		},
	)

	// StateTransitions tracks conversation state changes.
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// MessagesAppended tracks transcript growth by sender type.
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Total messages appended to conversation transcripts",
		},
		[]string{"sender_type"},
	)

	// ConnectedCoordinators tracks open notification channels.
	ConnectedCoordinators = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connected_coordinators",
			Help: "Number of coordinators with an open notification channel",
		},
	)

	// NotificationsPublished tracks fan-out deliveries by event type.
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_published_total",
			Help: "Total notification events delivered to coordinator channels",
		},
		[]string{"type"},
	)

	// NotificationsDropped tracks deliveries skipped because a channel was
	// full or closed. Slow consumers never block publication to others.
	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_notifications_dropped_total",
			Help: "Total notification events dropped due to slow or dead channels",
		},
	)
)

// RecordConversationCreated increments conversation creation metrics.
func RecordConversationCreated() {
	ConversationsCreated.Inc()
	ActiveConversations.Inc()
}

// RecordConversationEnded decrements the active conversation gauge.
func RecordConversationEnded() {
	ActiveConversations.Dec()
}

// RecordClaim records an accept attempt outcome ("won" or "lost").
func RecordClaim(outcome string) {
	Claims.WithLabelValues(outcome).Inc()
}

// RecordRejection records a single coordinator withdrawing their offer.
func RecordRejection() {
	Rejections.Inc()
}

// RecordTransfer records a conversation hand-off.
func RecordTransfer() {
	Transfers.Inc()
}

// RecordStateTransition records a conversation state change.
func RecordStateTransition(fromState, toState string) {
	StateTransitions.WithLabelValues(fromState, toState).Inc()
}

// RecordMessageAppended records transcript growth.
func RecordMessageAppended(senderType string) {
	MessagesAppended.WithLabelValues(senderType).Inc()
}

// RecordNotificationPublished records one successful channel delivery.
func RecordNotificationPublished(eventType string) {
	NotificationsPublished.WithLabelValues(eventType).Inc()
}

// RecordNotificationDropped records one skipped delivery.
func RecordNotificationDropped() {
	NotificationsDropped.Inc()
}
