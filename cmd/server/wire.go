//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"naf-chat-server/internal/config"
	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/domain/notification"
	"naf-chat-server/internal/domain/presence"
	"naf-chat-server/internal/infrastructure/audit"
	"naf-chat-server/internal/infrastructure/auth"
	"naf-chat-server/internal/infrastructure/broadcast"
	presencestore "naf-chat-server/internal/infrastructure/presence"
	"naf-chat-server/internal/infrastructure/store"
	"naf-chat-server/internal/interfaces/httpserver"
)

// ProviderSet is the wire provider set for the application. It wires the
// in-memory backends; buildApplication in server.go swaps in Postgres, Redis
// and AMQP when configured.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideConversationStore,
	ProvideMessageLog,
	ProvideBroadcaster,
	ProvidePresenceStore,
	ProvideAuditPublisher,
	ProvideAuthValidator,

	// Domain providers
	chat.NewService,

	// Interface providers
	httpserver.New,

	// Application
	NewApplication,
)

// ProvideConversationStore provides the conversation store.
func ProvideConversationStore(log zerolog.Logger) chat.Store {
	return store.NewMemoryStore(log)
}

// ProvideMessageLog provides the transcript log.
func ProvideMessageLog(s chat.Store) chat.MessageLog {
	return s.(chat.MessageLog)
}

// ProvideBroadcaster provides the notification hub.
func ProvideBroadcaster(log zerolog.Logger) notification.Broadcaster {
	return broadcast.NewHub(log)
}

// ProvidePresenceStore provides the coordinator presence store.
func ProvidePresenceStore(cfg *config.Config) presence.Store {
	return presencestore.NewMemoryStore(cfg.PresenceTTL)
}

// ProvideAuditPublisher provides the audit trail publisher.
func ProvideAuditPublisher() chat.AuditPublisher {
	return audit.NoopPublisher{}
}

// ProvideAuthValidator provides an auth validator.
func ProvideAuthValidator(cfg *config.Config, log zerolog.Logger) *auth.Validator {
	return auth.NewValidator(cfg, log)
}

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
