package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"naf-chat-server/internal/domain/chat"
)

// Conversation is the persisted conversation record. The state column plus
// assigned_coordinator_id are the compare-and-set target for claims.
type Conversation struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"size:64;index"`
	UserName  string `gorm:"size:255"`
	UserEmail string `gorm:"size:255"`

	State string `gorm:"size:32;index"`

	AssignedCoordinatorID   *string `gorm:"size:64;index"`
	AssignedCoordinatorName *string `gorm:"size:255"`

	HumanRequestedAt *time.Time `gorm:"index"`
	AcceptedBy       *string    `gorm:"size:64"`
	AcceptedAt       *time.Time
	EndedBy          *string `gorm:"size:16"`
	EndedAt          *time.Time

	RejectedBy datatypes.JSON `gorm:"type:jsonb"`

	IsOnline bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversationEntity maps a domain conversation onto its row form.
func NewConversationEntity(conv *chat.Conversation) *Conversation {
	entity := &Conversation{
		ID:                      conv.ID,
		UserID:                  conv.UserID,
		UserName:                conv.UserName,
		UserEmail:               conv.UserEmail,
		State:                   string(conv.State),
		AssignedCoordinatorID:   conv.AssignedCoordinatorID,
		AssignedCoordinatorName: conv.AssignedCoordinatorName,
		HumanRequestedAt:        conv.HumanRequestedAt,
		AcceptedBy:              conv.AcceptedBy,
		AcceptedAt:              conv.AcceptedAt,
		EndedAt:                 conv.EndedAt,
		IsOnline:                conv.IsOnline,
		CreatedAt:               conv.CreatedAt,
		UpdatedAt:               conv.UpdatedAt,
	}
	if conv.EndedBy != nil {
		endedBy := string(*conv.EndedBy)
		entity.EndedBy = &endedBy
	}
	if rejected, err := json.Marshal(conv.RejectedBy); err == nil {
		entity.RejectedBy = rejected
	}
	return entity
}

// ToDomain maps the row back to the domain model.
func (e *Conversation) ToDomain() *chat.Conversation {
	conv := &chat.Conversation{
		ID:                      e.ID,
		UserID:                  e.UserID,
		UserName:                e.UserName,
		UserEmail:               e.UserEmail,
		State:                   chat.ConversationState(e.State),
		AssignedCoordinatorID:   e.AssignedCoordinatorID,
		AssignedCoordinatorName: e.AssignedCoordinatorName,
		HumanRequestedAt:        e.HumanRequestedAt,
		AcceptedBy:              e.AcceptedBy,
		AcceptedAt:              e.AcceptedAt,
		EndedAt:                 e.EndedAt,
		IsOnline:                e.IsOnline,
		CreatedAt:               e.CreatedAt,
		UpdatedAt:               e.UpdatedAt,
	}
	if e.EndedBy != nil {
		endedBy := chat.EndedBy(*e.EndedBy)
		conv.EndedBy = &endedBy
	}
	if len(e.RejectedBy) > 0 {
		_ = json.Unmarshal(e.RejectedBy, &conv.RejectedBy)
	}
	return conv
}
