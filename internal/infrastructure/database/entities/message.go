package entities

import (
	"time"

	"naf-chat-server/internal/domain/chat"
)

// Message is one persisted transcript entry. Seq is a global monotonic
// insert counter; transcript order is (created_at, seq).
type Message struct {
	Seq            int64  `gorm:"primaryKey;autoIncrement"`
	PublicID       string `gorm:"uniqueIndex;size:64"`
	ConversationID string `gorm:"size:64;index"`
	Content        string `gorm:"type:text"`
	SenderType     string `gorm:"size:16;index"`
	SenderID       string `gorm:"size:64"`
	SenderName     string `gorm:"size:255"`
	IsRead         bool
	CreatedAt      time.Time
}

// NewMessageEntity maps a domain message onto its row form.
func NewMessageEntity(msg *chat.Message) *Message {
	return &Message{
		PublicID:       msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		SenderType:     string(msg.SenderType),
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		IsRead:         msg.IsRead,
		CreatedAt:      msg.CreatedAt,
	}
}

// ToDomain maps the row back to the domain model.
func (e *Message) ToDomain() *chat.Message {
	return &chat.Message{
		ID:             e.PublicID,
		ConversationID: e.ConversationID,
		Content:        e.Content,
		SenderType:     chat.SenderType(e.SenderType),
		SenderID:       e.SenderID,
		SenderName:     e.SenderName,
		IsRead:         e.IsRead,
		Seq:            e.Seq,
		CreatedAt:      e.CreatedAt,
	}
}
