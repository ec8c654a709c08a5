// Package chatrepo persists conversations and transcripts in PostgreSQL.
// Claim and Reassign are conditional UPDATEs: the WHERE clause re-checks the
// expected prior state and RowsAffected == 0 means the compare-and-set lost.
package chatrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/infrastructure/database/entities"
	"naf-chat-server/internal/utils/platformerrors"
)

// PostgresStore implements chat.Store and chat.MessageLog on GORM.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore builds a conversation store backed by PostgreSQL.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts the conversation record.
func (r *PostgresStore) Create(ctx context.Context, conv *chat.Conversation) error {
	entity := entities.NewConversationEntity(conv)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return r.dbError(ctx, "failed to create conversation", err)
	}
	return nil
}

// Get fetches a conversation by id.
func (r *PostgresStore) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	var entity entities.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, r.dbError(ctx, "failed to fetch conversation", err)
	}
	return entity.ToDomain(), nil
}

// RequestHuman transitions ai_active -> pending_human with a conditional update.
func (r *PostgresStore) RequestHuman(ctx context.Context, id string) (*chat.Conversation, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ? AND state = ?", id, string(chat.StateAIActive)).
		Updates(map[string]any{
			"state":              string(chat.StatePendingHuman),
			"human_requested_at": now,
			"updated_at":         now,
		})
	if res.Error != nil {
		return nil, r.dbError(ctx, "failed to request human", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, chat.ErrInvalidTransition
	}
	return r.Get(ctx, id)
}

// Claim atomically assigns a pending conversation to one coordinator. The
// row-level conditional update is the serialization point.
func (r *PostgresStore) Claim(ctx context.Context, id, coordinatorID, coordinatorName string) (*chat.Conversation, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ? AND state = ? AND assigned_coordinator_id IS NULL", id, string(chat.StatePendingHuman)).
		Updates(map[string]any{
			"state":                     string(chat.StateActiveHuman),
			"assigned_coordinator_id":   coordinatorID,
			"assigned_coordinator_name": coordinatorName,
			"accepted_by":               coordinatorID,
			"accepted_at":               now,
			"human_requested_at":        nil,
			"updated_at":                now,
		})
	if res.Error != nil {
		return nil, r.dbError(ctx, "failed to claim conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		conv, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv.State == chat.StateActiveHuman {
			return nil, chat.ErrAlreadyClaimed
		}
		return nil, chat.ErrInvalidTransition
	}
	return r.Get(ctx, id)
}

// Release appends the coordinator to the rejected set while the request is
// still pending. Row-locked read-modify-write; no-op once claimed or ended.
func (r *PostgresStore) Release(ctx context.Context, id, coordinatorID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity entities.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&entity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chat.ErrNotFound
		}
		if err != nil {
			return r.dbError(ctx, "failed to fetch conversation for release", err)
		}
		if entity.State != string(chat.StatePendingHuman) {
			return nil
		}

		var rejected []string
		if len(entity.RejectedBy) > 0 {
			_ = json.Unmarshal(entity.RejectedBy, &rejected)
		}
		for _, existing := range rejected {
			if existing == coordinatorID {
				return nil
			}
		}
		rejected = append(rejected, coordinatorID)

		payload, err := json.Marshal(rejected)
		if err != nil {
			return err
		}
		return tx.Model(&entity).Updates(map[string]any{
			"rejected_by": payload,
			"updated_at":  time.Now(),
		}).Error
	})
}

// Reassign atomically moves ownership between coordinators.
func (r *PostgresStore) Reassign(ctx context.Context, id, fromCoordinatorID, toCoordinatorID, toCoordinatorName string) (*chat.Conversation, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ? AND state = ? AND assigned_coordinator_id = ?", id, string(chat.StateActiveHuman), fromCoordinatorID).
		Updates(map[string]any{
			"assigned_coordinator_id":   toCoordinatorID,
			"assigned_coordinator_name": toCoordinatorName,
			"accepted_by":               toCoordinatorID,
			"accepted_at":               now,
			"updated_at":                now,
		})
	if res.Error != nil {
		return nil, r.dbError(ctx, "failed to reassign conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		conv, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv.State != chat.StateActiveHuman {
			return nil, chat.ErrInvalidTransition
		}
		return nil, chat.ErrNotOwner
	}
	return r.Get(ctx, id)
}

// End transitions to the terminal state; a second call reports changed=false.
func (r *PostgresStore) End(ctx context.Context, id string, endedBy chat.EndedBy, actorID string) (*chat.Conversation, bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ? AND state IN ?", id, []string{string(chat.StatePendingHuman), string(chat.StateActiveHuman)}).
		Updates(map[string]any{
			"state":                     string(chat.StateEnded),
			"ended_by":                  string(endedBy),
			"ended_at":                  now,
			"assigned_coordinator_id":   nil,
			"assigned_coordinator_name": nil,
			"human_requested_at":        nil,
			"updated_at":                now,
		})
	if res.Error != nil {
		return nil, false, r.dbError(ctx, "failed to end conversation", res.Error)
	}

	conv, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected == 0 {
		if conv.State != chat.StateEnded {
			return nil, false, chat.ErrInvalidTransition
		}
		return conv, false, nil
	}
	return conv, true, nil
}

// SetUserOnline updates the requester's liveness flag.
func (r *PostgresStore) SetUserOnline(ctx context.Context, id string, online bool) error {
	res := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_online":  online,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return r.dbError(ctx, "failed to update user liveness", res.Error)
	}
	if res.RowsAffected == 0 {
		return chat.ErrNotFound
	}
	return nil
}

// ListPending returns pending conversations visible to the coordinator,
// longest-waiting first. The rejected filter happens in SQL so a rejected
// request never round-trips to the client.
func (r *PostgresStore) ListPending(ctx context.Context, coordinatorID string) ([]*chat.Conversation, error) {
	var rows []entities.Conversation
	err := r.db.WithContext(ctx).
		Where("state = ?", string(chat.StatePendingHuman)).
		Where("rejected_by IS NULL OR NOT (rejected_by @> ?::jsonb)", jsonArray(coordinatorID)).
		Order("human_requested_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.dbError(ctx, "failed to list pending conversations", err)
	}
	return toDomainList(rows), nil
}

// ListActive returns active conversations owned by the coordinator.
func (r *PostgresStore) ListActive(ctx context.Context, coordinatorID string) ([]*chat.Conversation, error) {
	var rows []entities.Conversation
	err := r.db.WithContext(ctx).
		Where("state = ? AND assigned_coordinator_id = ?", string(chat.StateActiveHuman), coordinatorID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, r.dbError(ctx, "failed to list active conversations", err)
	}
	return toDomainList(rows), nil
}

// CountPending returns the number of pending_human conversations.
func (r *PostgresStore) CountPending(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Conversation{}).
		Where("state = ?", string(chat.StatePendingHuman)).
		Count(&count).Error
	if err != nil {
		return 0, r.dbError(ctx, "failed to count pending conversations", err)
	}
	return int(count), nil
}

// Append inserts a transcript entry and reports back its sequence.
func (r *PostgresStore) Append(ctx context.Context, msg *chat.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	entity := entities.NewMessageEntity(msg)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return r.dbError(ctx, "failed to append message", err)
	}
	msg.Seq = entity.Seq
	return nil
}

// List returns the transcript in insertion order.
func (r *PostgresStore) List(ctx context.Context, conversationID string) ([]*chat.Message, error) {
	var rows []entities.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.dbError(ctx, "failed to list messages", err)
	}

	result := make([]*chat.Message, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

// MarkRead flips is_read on all messages not authored by readerRole.
func (r *PostgresStore) MarkRead(ctx context.Context, conversationID string, readerRole chat.SenderType) error {
	err := r.db.WithContext(ctx).Model(&entities.Message{}).
		Where("conversation_id = ? AND sender_type <> ? AND is_read = false", conversationID, string(readerRole)).
		Update("is_read", true).Error
	if err != nil {
		return r.dbError(ctx, "failed to mark messages read", err)
	}
	return nil
}

func (r *PostgresStore) dbError(ctx context.Context, message string, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, message, err)
}

func toDomainList(rows []entities.Conversation) []*chat.Conversation {
	result := make([]*chat.Conversation, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result
}

func jsonArray(value string) string {
	payload, _ := json.Marshal([]string{value})
	return string(payload)
}
