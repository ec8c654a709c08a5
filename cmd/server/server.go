// @title           NAF Chat Server
// @version         1.0
// @description     Live support-chat hand-off and session coordination engine.
// @description     Manages escalation from AI-handled conversations to human
// @description     coordinators with race-free claiming and push notifications.

// @host      localhost:8190
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Platform-issued JWT bearer token

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"naf-chat-server/internal/config"
	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/domain/notification"
	"naf-chat-server/internal/domain/presence"
	"naf-chat-server/internal/infrastructure/audit"
	"naf-chat-server/internal/infrastructure/auth"
	"naf-chat-server/internal/infrastructure/broadcast"
	"naf-chat-server/internal/infrastructure/database"
	"naf-chat-server/internal/infrastructure/logger"
	"naf-chat-server/internal/infrastructure/observability"
	presencestore "naf-chat-server/internal/infrastructure/presence"
	chatrepo "naf-chat-server/internal/infrastructure/repository/chat"
	"naf-chat-server/internal/infrastructure/store"
	"naf-chat-server/internal/interfaces/httpserver"
)

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	closers    []func()
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(httpServer *httpserver.HTTPServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

// OnShutdown registers a cleanup callback invoked after the server stops.
func (a *Application) OnShutdown(fn func()) {
	a.closers = append(a.closers, fn)
}

// Start runs the application.
func (a *Application) Start(ctx context.Context) error {
	err := a.httpServer.Run(ctx)

	for _, closer := range a.closers {
		closer()
	}

	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(fmt.Sprintf("failed to configure logger: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup observability
	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	app, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// buildApplication assembles the dependency graph, selecting backing
// implementations from config: Postgres vs in-memory conversation store,
// Redis vs in-memory presence, AMQP vs no-op audit trail.
func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	conversationStore, messageLog, closeDB, err := buildConversationStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	presenceStore, err := buildPresenceStore(cfg, log)
	if err != nil {
		return nil, err
	}

	auditPublisher, closeAudit, err := buildAuditPublisher(cfg, log)
	if err != nil {
		return nil, err
	}

	var broadcaster notification.Broadcaster = broadcast.NewHub(log)

	chatService := chat.NewService(conversationStore, messageLog, broadcaster, presenceStore, auditPublisher, log)

	authValidator := auth.NewValidator(cfg, log)
	httpServer := httpserver.New(cfg, log, chatService, presenceStore, authValidator)

	app := NewApplication(httpServer, log)
	if closeDB != nil {
		app.OnShutdown(closeDB)
	}
	if closeAudit != nil {
		app.OnShutdown(closeAudit)
	}
	return app, nil
}

func buildConversationStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (chat.Store, chat.MessageLog, func(), error) {
	if cfg.DatabaseURL == "" {
		memoryStore := store.NewMemoryStore(log)
		log.Info().Msg("using in-memory conversation store")
		return memoryStore, memoryStore, nil, nil
	}

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormLogLevel(cfg.DBLogLevel),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, nil, nil, err
		}
	}

	pgStore := chatrepo.NewPostgresStore(db)
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	log.Info().Msg("using postgres conversation store")
	return pgStore, pgStore, closeDB, nil
}

func buildPresenceStore(cfg *config.Config, log zerolog.Logger) (presence.Store, error) {
	if cfg.RedisURL == "" {
		log.Info().Dur("ttl", cfg.PresenceTTL).Msg("using in-memory presence store")
		return presencestore.NewMemoryStore(cfg.PresenceTTL), nil
	}
	return presencestore.NewRedisStore(cfg.RedisURL, cfg.PresenceTTL, log)
}

func buildAuditPublisher(cfg *config.Config, log zerolog.Logger) (chat.AuditPublisher, func(), error) {
	if cfg.AMQPURL == "" {
		return audit.NoopPublisher{}, nil, nil
	}
	publisher, err := audit.NewAMQPPublisher(cfg.AMQPURL, log)
	if err != nil {
		return nil, nil, err
	}
	return publisher, publisher.Close, nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
