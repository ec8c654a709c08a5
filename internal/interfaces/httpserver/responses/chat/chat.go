// Package chatres contains response DTOs for the conversation endpoints.
package chatres

import (
	"time"

	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/domain/presence"
)

// ConversationResponse is the API view of a conversation. WaitingSeconds is
// derived at render time; zero outside pending_human.
type ConversationResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email,omitempty"`

	State string `json:"state"`

	AssignedCoordinatorID   *string `json:"assigned_coordinator_id,omitempty"`
	AssignedCoordinatorName *string `json:"assigned_coordinator_name,omitempty"`

	HumanRequestedAt *time.Time `json:"human_requested_at,omitempty"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	EndedBy          *string    `json:"ended_by,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`

	WaitingSeconds int64 `json:"waiting_seconds,omitempty"`
	UnreadCount    int   `json:"unread_count,omitempty"`

	IsOnline bool `json:"is_online"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationResponse maps a domain conversation to its API view.
func NewConversationResponse(conv *chat.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:                      conv.ID,
		UserID:                  conv.UserID,
		UserName:                conv.UserName,
		UserEmail:               conv.UserEmail,
		State:                   conv.State.String(),
		AssignedCoordinatorID:   conv.AssignedCoordinatorID,
		AssignedCoordinatorName: conv.AssignedCoordinatorName,
		HumanRequestedAt:        conv.HumanRequestedAt,
		AcceptedAt:              conv.AcceptedAt,
		EndedAt:                 conv.EndedAt,
		WaitingSeconds:          int64(conv.WaitingTime(time.Now()).Seconds()),
		IsOnline:                conv.IsOnline,
		CreatedAt:               conv.CreatedAt,
		UpdatedAt:               conv.UpdatedAt,
	}
	if conv.EndedBy != nil {
		endedBy := string(*conv.EndedBy)
		resp.EndedBy = &endedBy
	}
	return resp
}

// ListConversationsResponse wraps a queue view.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Total         int                    `json:"total"`
}

// NewListConversationsResponse maps a conversation list to its API view.
func NewListConversationsResponse(convs []*chat.Conversation) ListConversationsResponse {
	items := make([]ConversationResponse, len(convs))
	for i, conv := range convs {
		items[i] = NewConversationResponse(conv)
	}
	return ListConversationsResponse{Conversations: items, Total: len(items)}
}

// MessageResponse is the API view of one transcript entry.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	SenderType     string    `json:"sender_type"`
	SenderID       string    `json:"sender_id,omitempty"`
	SenderName     string    `json:"sender_name,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessageResponse maps a domain message to its API view.
func NewMessageResponse(msg *chat.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		SenderType:     string(msg.SenderType),
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		IsRead:         msg.IsRead,
		CreatedAt:      msg.CreatedAt,
	}
}

// ListMessagesResponse wraps a transcript in insertion order, with the count
// of entries the reader has not seen yet.
type ListMessagesResponse struct {
	Messages    []MessageResponse `json:"messages"`
	Total       int               `json:"total"`
	UnreadCount int               `json:"unread_count"`
}

// NewListMessagesResponse maps a transcript to its API view. readerRole is
// used to count unread entries authored by the other side.
func NewListMessagesResponse(msgs []*chat.Message, readerRole chat.SenderType) ListMessagesResponse {
	items := make([]MessageResponse, len(msgs))
	unread := 0
	for i, msg := range msgs {
		items[i] = NewMessageResponse(msg)
		if !msg.IsRead && msg.SenderType != readerRole {
			unread++
		}
	}
	return ListMessagesResponse{Messages: items, Total: len(items), UnreadCount: unread}
}

// CoordinatorResponse is the API view of a presence record.
type CoordinatorResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Specialties []string  `json:"specialties,omitempty"`
	Status      string    `json:"status"`
	IsOnline    bool      `json:"is_online"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// NewCoordinatorResponse maps a presence record to its API view.
func NewCoordinatorResponse(coord *presence.Coordinator) CoordinatorResponse {
	return CoordinatorResponse{
		ID:          coord.ID,
		Name:        coord.Name,
		Specialties: coord.Specialties,
		Status:      string(coord.Status),
		IsOnline:    coord.IsOnline,
		LastSeenAt:  coord.LastSeenAt,
	}
}

// ListCoordinatorsResponse wraps the online coordinator roster.
type ListCoordinatorsResponse struct {
	Coordinators []CoordinatorResponse `json:"coordinators"`
	Total        int                   `json:"total"`
}

// NewListCoordinatorsResponse maps a roster to its API view.
func NewListCoordinatorsResponse(coords []*presence.Coordinator) ListCoordinatorsResponse {
	items := make([]CoordinatorResponse, len(coords))
	for i, coord := range coords {
		items[i] = NewCoordinatorResponse(coord)
	}
	return ListCoordinatorsResponse{Coordinators: items, Total: len(items)}
}
