package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainchat "naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/infrastructure/auth"
	"naf-chat-server/internal/interfaces/httpserver/handlers"
	chatreq "naf-chat-server/internal/interfaces/httpserver/requests/chat"
	"naf-chat-server/internal/interfaces/httpserver/responses"
	chatres "naf-chat-server/internal/interfaces/httpserver/responses/chat"
	"naf-chat-server/internal/utils/platformerrors"
)

// RegisterChatRoutes registers the conversation lifecycle routes.
func RegisterChatRoutes(router gin.IRoutes, handler *handlers.ChatHandler) {
	router.POST("/conversations", createConversation(handler))
	router.GET("/conversations/:id", getConversation(handler))
	router.POST("/conversations/:id/request-human", requestHuman(handler))
	router.POST("/conversations/:id/accept", acceptConversation(handler))
	router.POST("/conversations/:id/reject", rejectConversation(handler))
	router.POST("/conversations/:id/transfer", transferConversation(handler))
	router.POST("/conversations/:id/end", endConversation(handler))
	router.PUT("/conversations/:id/online", setUserOnline(handler))

	router.POST("/conversations/:id/messages", sendMessage(handler))
	router.GET("/conversations/:id/messages", listMessages(handler))
	router.POST("/conversations/:id/messages/read", markMessagesRead(handler))
}

// createConversation godoc
// @Summary      Create a conversation
// @Description  Opens a new AI-handled support conversation for a user.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        request body chatreq.CreateConversationRequest true "Conversation details"
// @Success      201 {object} chatres.ConversationResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      500 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations [post]
func createConversation(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.CreateConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		userID, userName, _ := auth.Identity(c)
		if userID == "" {
			userID = req.UserID
		}
		if userName == "" {
			userName = req.UserName
		}

		conv, err := handler.CreateConversation(c.Request.Context(), userID, userName, req.UserEmail)
		if err != nil {
			responses.HandleError(c, err, "failed to create conversation")
			return
		}

		c.JSON(http.StatusCreated, chatres.NewConversationResponse(conv))
	}
}

// getConversation godoc
// @Summary      Get a conversation
// @Description  Returns the current conversation snapshot including state and assignment.
// @Tags         Conversations
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Success      200 {object} chatres.ConversationResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id} [get]
func getConversation(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		conv, err := handler.GetConversation(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, "conversation not found")
			return
		}
		c.JSON(http.StatusOK, chatres.NewConversationResponse(conv))
	}
}

// requestHuman godoc
// @Summary      Request a human coordinator
// @Description  Escalates an AI-handled conversation into the pending queue and
// @Description  notifies every connected coordinator.
// @Tags         Conversations
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Success      200 {object} chatres.ConversationResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      409 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/request-human [post]
func requestHuman(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		conv, err := handler.RequestHuman(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, "conversation cannot be escalated in its current state")
			return
		}
		c.JSON(http.StatusOK, chatres.NewConversationResponse(conv))
	}
}

// acceptConversation godoc
// @Summary      Accept a pending conversation
// @Description  Claims a queued request for this coordinator. Exactly one
// @Description  concurrent caller wins; losers receive 409 with code already_claimed.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body chatreq.AcceptRequest false "Coordinator identity fallback"
// @Success      200 {object} chatres.ConversationResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      409 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/accept [post]
func acceptConversation(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.AcceptRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		coordID, coordName := coordinatorIdentity(c, req.CoordinatorID, req.CoordinatorName)
		if coordID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "coordinator identity is required")
			return
		}

		conv, err := handler.Accept(c.Request.Context(), c.Param("id"), coordID, coordName)
		if err != nil {
			responses.HandleError(c, err, "conversation cannot be accepted in its current state")
			return
		}
		c.JSON(http.StatusOK, chatres.NewConversationResponse(conv))
	}
}

// rejectConversation godoc
// @Summary      Reject a pending conversation
// @Description  Withdraws this coordinator's offer. The request stays queued for
// @Description  other coordinators; no events are emitted.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body chatreq.RejectRequest false "Coordinator identity fallback"
// @Success      204
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/reject [post]
func rejectConversation(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.RejectRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		coordID, _ := coordinatorIdentity(c, req.CoordinatorID, "")
		if coordID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "coordinator identity is required")
			return
		}

		if err := handler.Reject(c.Request.Context(), c.Param("id"), coordID); err != nil {
			responses.HandleError(c, err, "failed to reject conversation")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// transferConversation godoc
// @Summary      Transfer an active conversation
// @Description  Moves ownership to another online coordinator. Only the current
// @Description  owner may transfer; the target must have a live heartbeat.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body chatreq.TransferRequest true "Transfer details"
// @Success      200 {object} chatres.ConversationResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      403 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      409 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/transfer [post]
func transferConversation(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		fromID, _ := coordinatorIdentity(c, req.FromCoordinatorID, "")
		if fromID == "" {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "coordinator identity is required")
			return
		}

		conv, err := handler.Transfer(c.Request.Context(), c.Param("id"), fromID, req.ToCoordinatorID, req.ToCoordinatorName, req.Reason)
		if err != nil {
			responses.HandleError(c, err, "failed to transfer conversation")
			return
		}
		c.JSON(http.StatusOK, chatres.NewConversationResponse(conv))
	}
}

// endConversation godoc
// @Summary      End a conversation
// @Description  Moves the conversation to its terminal state. Idempotent: ending
// @Description  an already ended conversation returns the same snapshot.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body chatreq.EndRequest true "Who ended the conversation"
// @Success      200 {object} chatres.ConversationResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/end [post]
func endConversation(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.EndRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		actorID := req.ActorID
		if id, _, _ := auth.Identity(c); id != "" {
			actorID = id
		}

		conv, err := handler.End(c.Request.Context(), c.Param("id"), domainchat.EndedBy(req.EndedBy), actorID)
		if err != nil {
			responses.HandleError(c, err, "failed to end conversation")
			return
		}
		c.JSON(http.StatusOK, chatres.NewConversationResponse(conv))
	}
}

// setUserOnline godoc
// @Summary      Update user liveness
// @Description  Flags the requesting user as connected or disconnected.
// @Tags         Conversations
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body chatreq.OnlineRequest true "Liveness flag"
// @Success      204
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/online [put]
func setUserOnline(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.OnlineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		if err := handler.SetUserOnline(c.Request.Context(), c.Param("id"), *req.Online); err != nil {
			responses.HandleError(c, err, "failed to update user liveness")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// sendMessage godoc
// @Summary      Send a message
// @Description  Appends one entry to the conversation transcript. Rejected once
// @Description  the conversation has ended.
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body chatreq.SendMessageRequest true "Message content"
// @Success      201 {object} chatres.MessageResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      409 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/messages [post]
func sendMessage(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		senderID, senderName, role := auth.Identity(c)
		if senderID == "" {
			senderID = req.SenderID
		}
		if senderName == "" {
			senderName = req.SenderName
		}

		senderType := domainchat.SenderType(req.SenderType)
		if senderType == "" {
			if role == auth.RoleCoordinator {
				senderType = domainchat.SenderCoordinator
			} else {
				senderType = domainchat.SenderUser
			}
		}

		msg, err := handler.SendMessage(c.Request.Context(), c.Param("id"), senderType, senderID, senderName, req.Content)
		if err != nil {
			responses.HandleError(c, err, "conversation is not accepting messages")
			return
		}
		c.JSON(http.StatusCreated, chatres.NewMessageResponse(msg))
	}
}

// listMessages godoc
// @Summary      List messages
// @Description  Returns the transcript in insertion order with the unread count
// @Description  for the requesting side.
// @Tags         Messages
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        reader_role query string false "Reader role for the unread count" Enums(user, coordinator)
// @Success      200 {object} chatres.ListMessagesResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/messages [get]
func listMessages(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := handler.ListMessages(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, "conversation not found")
			return
		}

		readerRole := domainchat.SenderType(c.DefaultQuery("reader_role", string(domainchat.SenderUser)))
		c.JSON(http.StatusOK, chatres.NewListMessagesResponse(msgs, readerRole))
	}
}

// markMessagesRead godoc
// @Summary      Mark messages read
// @Description  Marks every message not authored by the reader as read.
// @Tags         Messages
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body chatreq.MarkReadRequest true "Reader role"
// @Success      204
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /conversations/{id}/messages/read [post]
func markMessagesRead(handler *handlers.ChatHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatreq.MarkReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}

		if err := handler.MarkRead(c.Request.Context(), c.Param("id"), domainchat.SenderType(req.ReaderRole)); err != nil {
			responses.HandleError(c, err, "conversation not found")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// coordinatorIdentity resolves the acting coordinator, preferring the
// authenticated principal over body fields.
func coordinatorIdentity(c *gin.Context, bodyID, bodyName string) (string, string) {
	id, name, _ := auth.Identity(c)
	if id == "" {
		id = bodyID
	}
	if name == "" {
		name = bodyName
	}
	return id, name
}
