package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"naf-chat-server/internal/domain/notification"
	"naf-chat-server/internal/domain/presence"
	"naf-chat-server/internal/infrastructure/metrics"
	"naf-chat-server/internal/utils/idgen"
)

// ErrCoordinatorOffline is returned when a transfer targets a coordinator
// without a live heartbeat.
var ErrCoordinatorOffline = errors.New("target coordinator is offline")

const snippetMaxLen = 120

// AuditEvent records a coordination action for dashboards. Delivery is
// fire-and-forget; a failed publish never surfaces to the caller.
type AuditEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	CoordinatorID  string    `json:"coordinator_id,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AuditPublisher ships audit events to an external trail.
type AuditPublisher interface {
	Publish(ctx context.Context, event AuditEvent)
}

// Service orchestrates the conversation state machine: it sequences the
// store, the message log and the broadcaster for each operation and returns
// store guard failures to the caller unchanged.
type Service interface {
	CreateConversation(ctx context.Context, userID, userName, userEmail string) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	RequestHuman(ctx context.Context, id string) (*Conversation, error)
	Accept(ctx context.Context, id, coordinatorID, coordinatorName string) (*Conversation, error)
	Reject(ctx context.Context, id, coordinatorID string) error
	Transfer(ctx context.Context, id, fromCoordinatorID, toCoordinatorID, toCoordinatorName, reason string) (*Conversation, error)
	End(ctx context.Context, id string, endedBy EndedBy, actorID string) (*Conversation, error)
	SetUserOnline(ctx context.Context, id string, online bool) error

	SendMessage(ctx context.Context, conversationID string, senderType SenderType, senderID, senderName, content string) (*Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
	MarkRead(ctx context.Context, conversationID string, readerRole SenderType) error

	ListPending(ctx context.Context, coordinatorID string) ([]*Conversation, error)
	ListActive(ctx context.Context, coordinatorID string) ([]*Conversation, error)

	Subscribe(ctx context.Context, coordinatorID string) (*notification.Subscription, error)
	Unsubscribe(sub *notification.Subscription)
}

type service struct {
	store       Store
	messages    MessageLog
	broadcaster notification.Broadcaster
	presence    presence.Store
	audit       AuditPublisher
	log         zerolog.Logger
}

// NewService creates the session orchestrator.
func NewService(
	store Store,
	messages MessageLog,
	broadcaster notification.Broadcaster,
	presenceStore presence.Store,
	audit AuditPublisher,
	log zerolog.Logger,
) Service {
	return &service{
		store:       store,
		messages:    messages,
		broadcaster: broadcaster,
		presence:    presenceStore,
		audit:       audit,
		log:         log.With().Str("component", "chat-service").Logger(),
	}
}

func (s *service) CreateConversation(ctx context.Context, userID, userName, userEmail string) (*Conversation, error) {
	id, err := idgen.GenerateSecureID("conv", 24)
	if err != nil {
		return nil, err
	}

	conv := NewConversation(id, userID, userName, userEmail)
	if err := s.store.Create(ctx, conv); err != nil {
		return nil, err
	}

	metrics.RecordConversationCreated()
	s.log.Info().
		Str("conversation_id", conv.ID).
		Str("user_id", userID).
		Msg("conversation created")
	return conv, nil
}

func (s *service) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return s.store.Get(ctx, id)
}

// RequestHuman escalates the conversation to the pending queue and fans a
// new_chat_request event to every connected coordinator.
func (s *service) RequestHuman(ctx context.Context, id string) (*Conversation, error) {
	conv, err := s.store.RequestHuman(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.RecordStateTransition(string(StateAIActive), string(StatePendingHuman))

	totalPending, _ := s.store.CountPending(ctx)
	s.broadcaster.Publish(notification.Event{
		Type:           notification.EventNewChatRequest,
		ConversationID: conv.ID,
		Payload: notification.Payload{
			UserName:     conv.UserName,
			Snippet:      s.lastUserSnippet(ctx, conv.ID),
			TotalPending: totalPending,
		},
		Timestamp: time.Now(),
	}, "")

	s.log.Info().
		Str("conversation_id", conv.ID).
		Int("total_pending", totalPending).
		Msg("human requested")
	return conv, nil
}

// Accept performs the race-free claim. Exactly one caller wins; losers get
// ErrAlreadyClaimed and must refresh their pending list. The winner's
// coordinator is excluded from the claimed broadcast.
func (s *service) Accept(ctx context.Context, id, coordinatorID, coordinatorName string) (*Conversation, error) {
	conv, err := s.store.Claim(ctx, id, coordinatorID, coordinatorName)
	if err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			metrics.RecordClaim("lost")
		}
		return nil, err
	}

	metrics.RecordClaim("won")
	metrics.RecordStateTransition(string(StatePendingHuman), string(StateActiveHuman))

	s.appendSystem(ctx, conv.ID, fmt.Sprintf("%s joined the conversation", coordinatorName))

	totalPending, _ := s.store.CountPending(ctx)
	s.broadcaster.Publish(notification.Event{
		Type:           notification.EventClaimed,
		ConversationID: conv.ID,
		Payload: notification.Payload{
			UserName:      conv.UserName,
			CoordinatorID: coordinatorID,
			TotalPending:  totalPending,
		},
		Timestamp: time.Now(),
	}, coordinatorID)

	s.publishAudit(ctx, "claimed", conv.ID, coordinatorID, "")

	s.log.Info().
		Str("conversation_id", conv.ID).
		Str("coordinator_id", coordinatorID).
		Msg("conversation claimed")
	return conv, nil
}

// Reject withdraws this coordinator's offer. The request stays queued for
// everyone else, so nobody is notified; only the audit trail records it.
func (s *service) Reject(ctx context.Context, id, coordinatorID string) error {
	if err := s.store.Release(ctx, id, coordinatorID); err != nil {
		return err
	}

	metrics.RecordRejection()
	s.publishAudit(ctx, "rejected_by_one", id, coordinatorID, "")

	s.log.Info().
		Str("conversation_id", id).
		Str("coordinator_id", coordinatorID).
		Msg("pending request rejected by coordinator")
	return nil
}

// Transfer hands an active conversation to another coordinator. The caller
// must be the current owner and the new owner must have a live heartbeat.
func (s *service) Transfer(ctx context.Context, id, fromCoordinatorID, toCoordinatorID, toCoordinatorName, reason string) (*Conversation, error) {
	online, err := s.presence.IsOnline(ctx, toCoordinatorID)
	if err != nil && !errors.Is(err, presence.ErrNotFound) {
		return nil, err
	}
	if !online {
		return nil, ErrCoordinatorOffline
	}

	conv, err := s.store.Reassign(ctx, id, fromCoordinatorID, toCoordinatorID, toCoordinatorName)
	if err != nil {
		return nil, err
	}

	metrics.RecordTransfer()

	note := fmt.Sprintf("conversation transferred to %s", toCoordinatorName)
	if reason != "" {
		note = fmt.Sprintf("%s (reason: %s)", note, reason)
	}
	s.appendSystem(ctx, conv.ID, note)

	event := notification.Event{
		Type:           notification.EventTransferred,
		ConversationID: conv.ID,
		Payload: notification.Payload{
			UserName:      conv.UserName,
			CoordinatorID: toCoordinatorID,
			Reason:        reason,
		},
		Timestamp: time.Now(),
	}
	// The new assignee gets the event even if a broadcast copy is dropped;
	// everyone else just refreshes their queue views.
	s.broadcaster.PublishTo(toCoordinatorID, event)
	s.broadcaster.Publish(event, toCoordinatorID)

	s.publishAudit(ctx, "transferred", conv.ID, fromCoordinatorID, reason)

	s.log.Info().
		Str("conversation_id", conv.ID).
		Str("from", fromCoordinatorID).
		Str("to", toCoordinatorID).
		Msg("conversation transferred")
	return conv, nil
}

// End closes the conversation. Idempotent: a second call returns the same
// terminal snapshot without re-emitting events.
func (s *service) End(ctx context.Context, id string, endedBy EndedBy, actorID string) (*Conversation, error) {
	conv, changed, err := s.store.End(ctx, id, endedBy, actorID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return conv, nil
	}

	metrics.RecordConversationEnded()

	totalPending, _ := s.store.CountPending(ctx)
	s.broadcaster.Publish(notification.Event{
		Type:           notification.EventEnded,
		ConversationID: conv.ID,
		Payload: notification.Payload{
			UserName:     conv.UserName,
			TotalPending: totalPending,
		},
		Timestamp: time.Now(),
	}, "")

	s.publishAudit(ctx, "ended", conv.ID, actorID, string(endedBy))

	s.log.Info().
		Str("conversation_id", conv.ID).
		Str("ended_by", string(endedBy)).
		Msg("conversation ended")
	return conv, nil
}

func (s *service) SetUserOnline(ctx context.Context, id string, online bool) error {
	return s.store.SetUserOnline(ctx, id, online)
}

func (s *service) SendMessage(ctx context.Context, conversationID string, senderType SenderType, senderID, senderName, content string) (*Message, error) {
	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.State.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	msgID, err := idgen.GenerateSecureID("msg", 24)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ID:             msgID,
		ConversationID: conversationID,
		Content:        content,
		SenderType:     senderType,
		SenderID:       senderID,
		SenderName:     senderName,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, err
	}

	metrics.RecordMessageAppended(string(senderType))
	return msg, nil
}

func (s *service) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	if _, err := s.store.Get(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, conversationID)
}

func (s *service) MarkRead(ctx context.Context, conversationID string, readerRole SenderType) error {
	if _, err := s.store.Get(ctx, conversationID); err != nil {
		return err
	}
	return s.messages.MarkRead(ctx, conversationID, readerRole)
}

func (s *service) ListPending(ctx context.Context, coordinatorID string) ([]*Conversation, error) {
	return s.store.ListPending(ctx, coordinatorID)
}

func (s *service) ListActive(ctx context.Context, coordinatorID string) ([]*Conversation, error) {
	return s.store.ListActive(ctx, coordinatorID)
}

// Subscribe opens the coordinator's push channel. The first event on it is
// the connected snapshot with the current pending count.
func (s *service) Subscribe(ctx context.Context, coordinatorID string) (*notification.Subscription, error) {
	totalPending, err := s.store.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	return s.broadcaster.Connect(coordinatorID, totalPending), nil
}

func (s *service) Unsubscribe(sub *notification.Subscription) {
	s.broadcaster.Disconnect(sub)
}

// appendSystem records an engine-authored transcript entry. Failures are
// logged and swallowed: the state transition already committed and must not
// be rolled back over a transcript note.
func (s *service) appendSystem(ctx context.Context, conversationID, content string) {
	msgID, err := idgen.GenerateSecureID("msg", 24)
	if err != nil {
		s.log.Error().Err(err).Msg("generate system message id")
		return
	}
	msg := &Message{
		ID:             msgID,
		ConversationID: conversationID,
		Content:        content,
		SenderType:     SenderSystem,
		SenderID:       "system",
		SenderName:     "system",
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		s.log.Error().Err(err).
			Str("conversation_id", conversationID).
			Msg("append system message")
	}
}

func (s *service) lastUserSnippet(ctx context.Context, conversationID string) string {
	msgs, err := s.messages.List(ctx, conversationID)
	if err != nil {
		return ""
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderType == SenderUser {
			return truncate(msgs[i].Content, snippetMaxLen)
		}
	}
	return ""
}

func (s *service) publishAudit(ctx context.Context, eventType, conversationID, coordinatorID, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Publish(ctx, AuditEvent{
		Type:           eventType,
		ConversationID: conversationID,
		CoordinatorID:  coordinatorID,
		Detail:         detail,
		Timestamp:      time.Now().UTC(),
	})
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
