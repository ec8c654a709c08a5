// Package chatreq contains request DTOs for the conversation endpoints.
package chatreq

// CreateConversationRequest opens a new AI-handled conversation.
type CreateConversationRequest struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name" binding:"required"`
	UserEmail string `json:"user_email"`
}

// SendMessageRequest appends one transcript entry.
type SendMessageRequest struct {
	Content    string `json:"content" binding:"required"`
	SenderType string `json:"sender_type" binding:"omitempty,oneof=user assistant coordinator system"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
}

// MarkReadRequest flips the unread flag on messages not authored by the reader.
type MarkReadRequest struct {
	ReaderRole string `json:"reader_role" binding:"required,oneof=user coordinator"`
}

// AcceptRequest claims a pending conversation. Coordinator identity comes
// from the auth context when present; the body is the fallback.
type AcceptRequest struct {
	CoordinatorID   string `json:"coordinator_id"`
	CoordinatorName string `json:"coordinator_name"`
}

// RejectRequest withdraws the coordinator's offer for a pending request.
type RejectRequest struct {
	CoordinatorID string `json:"coordinator_id"`
}

// TransferRequest hands an active conversation to another coordinator.
type TransferRequest struct {
	FromCoordinatorID string `json:"from_coordinator_id"`
	ToCoordinatorID   string `json:"to_coordinator_id" binding:"required"`
	ToCoordinatorName string `json:"to_coordinator_name"`
	Reason            string `json:"reason"`
}

// EndRequest closes the conversation.
type EndRequest struct {
	EndedBy string `json:"ended_by" binding:"required,oneof=user coordinator"`
	ActorID string `json:"actor_id"`
}

// OnlineRequest updates the requesting user's liveness flag.
type OnlineRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// HeartbeatRequest refreshes a coordinator's presence record.
type HeartbeatRequest struct {
	CoordinatorID string   `json:"coordinator_id"`
	Name          string   `json:"name"`
	Status        string   `json:"status" binding:"omitempty,oneof=available busy offline"`
	Specialties   []string `json:"specialties"`
}
