package responses

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/domain/presence"
	"naf-chat-server/internal/utils/platformerrors"
)

// HandleError maps domain guard failures and platform errors to HTTP status
// codes. A lost claim race gets its own machine readable code so clients can
// refresh their queue instead of showing a generic conflict.
func HandleError(c *gin.Context, err error, message string) {
	logger := log.With().Str("path", c.Request.URL.Path).Logger()

	switch {
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, presence.ErrNotFound):
		platformerrors.WriteNotFound(c, message)
		return
	case errors.Is(err, chat.ErrAlreadyClaimed):
		platformerrors.WriteConflictWithCode(c, "conversation already claimed by another coordinator", "already_claimed")
		return
	case errors.Is(err, chat.ErrInvalidTransition):
		platformerrors.WriteConflict(c, message)
		return
	case errors.Is(err, chat.ErrNotOwner):
		platformerrors.WriteForbidden(c, "conversation is assigned to another coordinator")
		return
	case errors.Is(err, chat.ErrCoordinatorOffline):
		platformerrors.WriteValidationError(c, "target coordinator is offline")
		return
	}

	platformerrors.WriteError(c, err, logger)
}

// HandleNewError creates and writes a new typed error response.
// Use this for route-level errors like validation or authorization failures.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	status := platformerrors.ErrorTypeToHTTPStatus(errorType)
	c.JSON(status, ErrorResponse{
		Error: &ErrorDetail{
			Message: message,
			Type:    errorTypeToString(errorType),
		},
	})
}

// errorTypeToString converts an ErrorType to a snake_case string for API responses.
func errorTypeToString(t platformerrors.ErrorType) string {
	switch t {
	case platformerrors.ErrorTypeNotFound:
		return "not_found_error"
	case platformerrors.ErrorTypeValidation:
		return "validation_error"
	case platformerrors.ErrorTypeConflict:
		return "conflict_error"
	case platformerrors.ErrorTypeUnauthorized:
		return "unauthorized_error"
	case platformerrors.ErrorTypeForbidden:
		return "forbidden_error"
	default:
		return "internal_error"
	}
}
