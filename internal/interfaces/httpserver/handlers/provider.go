package handlers

import (
	"github.com/google/wire"

	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/domain/presence"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Chat     *ChatHandler
	Presence *PresenceHandler
}

// NewProvider creates a new handler provider.
func NewProvider(chatService chat.Service, presenceStore presence.Store) *Provider {
	return &Provider{
		Chat:     NewChatHandler(chatService),
		Presence: NewPresenceHandler(presenceStore),
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewChatHandler,
	NewPresenceHandler,
	NewProvider,
)
