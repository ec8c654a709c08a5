package handlers

import (
	"context"

	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/domain/notification"
)

// ChatHandler handles conversation lifecycle HTTP requests.
type ChatHandler struct {
	service chat.Service
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(service chat.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

// CreateConversation opens a fresh AI-handled conversation.
func (h *ChatHandler) CreateConversation(ctx context.Context, userID, userName, userEmail string) (*chat.Conversation, error) {
	return h.service.CreateConversation(ctx, userID, userName, userEmail)
}

// GetConversation retrieves a conversation snapshot by ID.
func (h *ChatHandler) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	return h.service.GetConversation(ctx, id)
}

// RequestHuman escalates the conversation to the pending queue.
func (h *ChatHandler) RequestHuman(ctx context.Context, id string) (*chat.Conversation, error) {
	return h.service.RequestHuman(ctx, id)
}

// Accept claims a pending conversation for one coordinator.
func (h *ChatHandler) Accept(ctx context.Context, id, coordinatorID, coordinatorName string) (*chat.Conversation, error) {
	return h.service.Accept(ctx, id, coordinatorID, coordinatorName)
}

// Reject withdraws the coordinator's offer for a pending request.
func (h *ChatHandler) Reject(ctx context.Context, id, coordinatorID string) error {
	return h.service.Reject(ctx, id, coordinatorID)
}

// Transfer hands an active conversation to another coordinator.
func (h *ChatHandler) Transfer(ctx context.Context, id, fromID, toID, toName, reason string) (*chat.Conversation, error) {
	return h.service.Transfer(ctx, id, fromID, toID, toName, reason)
}

// End closes the conversation.
func (h *ChatHandler) End(ctx context.Context, id string, endedBy chat.EndedBy, actorID string) (*chat.Conversation, error) {
	return h.service.End(ctx, id, endedBy, actorID)
}

// SetUserOnline updates the requesting user's liveness flag.
func (h *ChatHandler) SetUserOnline(ctx context.Context, id string, online bool) error {
	return h.service.SetUserOnline(ctx, id, online)
}

// SendMessage appends one transcript entry.
func (h *ChatHandler) SendMessage(ctx context.Context, conversationID string, senderType chat.SenderType, senderID, senderName, content string) (*chat.Message, error) {
	return h.service.SendMessage(ctx, conversationID, senderType, senderID, senderName, content)
}

// ListMessages returns the transcript in insertion order.
func (h *ChatHandler) ListMessages(ctx context.Context, conversationID string) ([]*chat.Message, error) {
	return h.service.ListMessages(ctx, conversationID)
}

// MarkRead marks messages not authored by readerRole as read.
func (h *ChatHandler) MarkRead(ctx context.Context, conversationID string, readerRole chat.SenderType) error {
	return h.service.MarkRead(ctx, conversationID, readerRole)
}

// ListPending returns queued requests visible to the coordinator.
func (h *ChatHandler) ListPending(ctx context.Context, coordinatorID string) ([]*chat.Conversation, error) {
	return h.service.ListPending(ctx, coordinatorID)
}

// ListActive returns conversations owned by the coordinator.
func (h *ChatHandler) ListActive(ctx context.Context, coordinatorID string) ([]*chat.Conversation, error) {
	return h.service.ListActive(ctx, coordinatorID)
}

// Subscribe opens the coordinator's push channel.
func (h *ChatHandler) Subscribe(ctx context.Context, coordinatorID string) (*notification.Subscription, error) {
	return h.service.Subscribe(ctx, coordinatorID)
}

// Unsubscribe closes the subscription's push channel.
func (h *ChatHandler) Unsubscribe(sub *notification.Subscription) {
	h.service.Unsubscribe(sub)
}
