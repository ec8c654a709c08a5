package v1

import (
	"github.com/gin-gonic/gin"

	"naf-chat-server/internal/config"
	"naf-chat-server/internal/interfaces/httpserver/handlers"
)

// Routes holds the v1 route configuration.
type Routes struct {
	cfg      *config.Config
	handlers *handlers.Provider
}

// NewRoutes creates a new v1 routes instance.
func NewRoutes(cfg *config.Config, handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		cfg:      cfg,
		handlers: handlerProvider,
	}
}

// Register registers all v1 routes on the engine.
// If authMiddleware is provided, it will be applied to all v1 routes.
func (r *Routes) Register(engine *gin.Engine, authMiddleware gin.HandlerFunc) {
	v1 := engine.Group("/v1")
	if authMiddleware != nil {
		v1.Use(authMiddleware)
	}
	RegisterChatRoutes(v1, r.handlers.Chat)
	RegisterCoordinatorRoutes(v1, r.cfg, r.handlers.Chat, r.handlers.Presence)
}
