package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"naf-chat-server/internal/config"
	domainpresence "naf-chat-server/internal/domain/presence"
	"naf-chat-server/internal/interfaces/httpserver/handlers"
	"naf-chat-server/internal/interfaces/httpserver/middlewares"
	chatreq "naf-chat-server/internal/interfaces/httpserver/requests/chat"
	"naf-chat-server/internal/interfaces/httpserver/responses"
	chatres "naf-chat-server/internal/interfaces/httpserver/responses/chat"
	"naf-chat-server/internal/utils/platformerrors"
)

// RegisterCoordinatorRoutes registers the coordinator queue, presence and
// notification stream routes.
func RegisterCoordinatorRoutes(router gin.IRoutes, cfg *config.Config, chatHandler *handlers.ChatHandler, presenceHandler *handlers.PresenceHandler) {
	router.GET("/coordinator/queue", listQueue(chatHandler))
	router.GET("/coordinator/active", listActive(chatHandler))
	router.GET("/coordinator/notifications", streamNotifications(cfg, chatHandler))

	router.POST("/coordinator/heartbeat", heartbeat(presenceHandler))
	router.GET("/coordinator/online", listOnline(presenceHandler))
	router.GET("/coordinator/:id/presence", getPresence(presenceHandler))
}

// listQueue godoc
// @Summary      List pending conversations
// @Description  Returns queued escalations visible to this coordinator,
// @Description  longest-waiting first. Requests this coordinator rejected are omitted.
// @Tags         Coordinator
// @Produce      json
// @Success      200 {object} chatres.ListConversationsResponse
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /coordinator/queue [get]
func listQueue(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		coordID, _ := coordinatorIdentity(c, c.Query("coordinator_id"), "")
		if coordID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "coordinator identity is required")
			return
		}

		convs, err := handler.ListPending(c.Request.Context(), coordID)
		if err != nil {
			responses.HandleError(c, err, "failed to list pending conversations")
			return
		}
		c.JSON(http.StatusOK, chatres.NewListConversationsResponse(convs))
	}
}

// listActive godoc
// @Summary      List active conversations
// @Description  Returns conversations currently owned by this coordinator.
// @Tags         Coordinator
// @Produce      json
// @Success      200 {object} chatres.ListConversationsResponse
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /coordinator/active [get]
func listActive(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		coordID, _ := coordinatorIdentity(c, c.Query("coordinator_id"), "")
		if coordID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "coordinator identity is required")
			return
		}

		convs, err := handler.ListActive(c.Request.Context(), coordID)
		if err != nil {
			responses.HandleError(c, err, "failed to list active conversations")
			return
		}
		c.JSON(http.StatusOK, chatres.NewListConversationsResponse(convs))
	}
}

// streamNotifications godoc
// @Summary      Stream queue notifications
// @Description  Opens a Server-Sent Events stream of queue-change events. The
// @Description  first event is always "connected" with the current pending count.
// @Description  Reconnecting replaces any previous stream for the same coordinator.
// @Tags         Coordinator
// @Produce      text/event-stream
// @Success      200 {string} string "event stream"
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /coordinator/notifications [get]
func streamNotifications(cfg *config.Config, handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		coordID, _ := coordinatorIdentity(c, c.Query("coordinator_id"), "")
		if coordID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "coordinator identity is required")
			return
		}

		flusher, ok := middlewares.PrepareSSE(c)
		if !ok {
			responses.HandleNewError(c, platformerrors.ErrorTypeInternal, "streaming unsupported")
			return
		}

		sub, err := handler.Subscribe(c.Request.Context(), coordID)
		if err != nil {
			responses.HandleError(c, err, "failed to subscribe")
			return
		}

		keepAlive := time.NewTicker(cfg.SSEKeepAliveInterval)
		defer keepAlive.Stop()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				handler.Unsubscribe(sub)
				return
			case <-keepAlive.C:
				fmt.Fprint(c.Writer, ": keep-alive\n\n")
				flusher.Flush()
			case event, open := <-sub.C:
				if !open {
					// Channel replaced by a reconnect or closed by shutdown.
					// Not ours to disconnect anymore.
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, data)
				flusher.Flush()
			}
		}
	}
}

// heartbeat godoc
// @Summary      Coordinator heartbeat
// @Description  Upserts the coordinator's presence record and refreshes its
// @Description  liveness TTL. Clients send this periodically while connected.
// @Tags         Coordinator
// @Accept       json
// @Produce      json
// @Param        request body chatreq.HeartbeatRequest true "Presence details"
// @Success      200 {object} chatres.CoordinatorResponse
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /coordinator/heartbeat [post]
func heartbeat(handler *handlers.PresenceHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.HeartbeatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		coordID, coordName := coordinatorIdentity(c, req.CoordinatorID, req.Name)
		if coordID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "coordinator identity is required")
			return
		}

		coord, err := handler.Heartbeat(c.Request.Context(), coordID, coordName, domainpresence.Status(req.Status), req.Specialties)
		if err != nil {
			responses.HandleError(c, err, "failed to record heartbeat")
			return
		}
		c.JSON(http.StatusOK, chatres.NewCoordinatorResponse(coord))
	}
}

// listOnline godoc
// @Summary      List online coordinators
// @Description  Returns every coordinator with a live heartbeat.
// @Tags         Coordinator
// @Produce      json
// @Success      200 {object} chatres.ListCoordinatorsResponse
// @Security     BearerAuth
// @Router       /coordinator/online [get]
func listOnline(handler *handlers.PresenceHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		coords, err := handler.ListOnline(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "failed to list online coordinators")
			return
		}
		c.JSON(http.StatusOK, chatres.NewListCoordinatorsResponse(coords))
	}
}

// getPresence godoc
// @Summary      Get coordinator presence
// @Description  Returns one coordinator's presence record.
// @Tags         Coordinator
// @Produce      json
// @Param        id path string true "Coordinator ID"
// @Success      200 {object} chatres.CoordinatorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /coordinator/{id}/presence [get]
func getPresence(handler *handlers.PresenceHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		coord, err := handler.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, "coordinator not found")
			return
		}
		c.JSON(http.StatusOK, chatres.NewCoordinatorResponse(coord))
	}
}
