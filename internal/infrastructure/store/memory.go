// Package store provides the default mutex-based in-memory implementation of
// the conversation store and message log. The store mutex is the
// serialization point that makes Claim and Reassign race-free.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"naf-chat-server/internal/domain/chat"
)

// MemoryStore holds conversations and transcripts in process memory.
// Thread-safe via sync.RWMutex; every returned record is a deep copy.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*chat.Conversation
	messages      map[string][]*chat.Message
	seq           int64
	log           zerolog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*chat.Conversation),
		messages:      make(map[string][]*chat.Message),
		log:           log.With().Str("component", "memory-store").Logger(),
	}
}

// Create stores a new conversation.
func (s *MemoryStore) Create(ctx context.Context, conv *chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conv.ID] = conv.Clone()
	return nil
}

// Get returns a snapshot of the conversation.
func (s *MemoryStore) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return conv.Clone(), nil
}

// RequestHuman transitions ai_active -> pending_human.
func (s *MemoryStore) RequestHuman(ctx context.Context, id string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	if conv.State != chat.StateAIActive {
		return nil, chat.ErrInvalidTransition
	}

	now := time.Now()
	conv.State = chat.StatePendingHuman
	conv.HumanRequestedAt = &now
	s.bump(conv, now)
	return conv.Clone(), nil
}

// Claim is the compare-and-set accept: it succeeds only while the stored
// state is still pending_human with no assignee. Exactly one concurrent
// caller can observe that state under the store mutex.
func (s *MemoryStore) Claim(ctx context.Context, id, coordinatorID, coordinatorName string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, chat.ErrNotFound
	}

	switch conv.State {
	case chat.StatePendingHuman:
		// fall through to claim
	case chat.StateActiveHuman:
		return nil, chat.ErrAlreadyClaimed
	default:
		return nil, chat.ErrInvalidTransition
	}
	if conv.AssignedCoordinatorID != nil {
		return nil, chat.ErrAlreadyClaimed
	}

	now := time.Now()
	conv.State = chat.StateActiveHuman
	conv.AssignedCoordinatorID = &coordinatorID
	conv.AssignedCoordinatorName = &coordinatorName
	conv.AcceptedBy = &coordinatorID
	conv.AcceptedAt = &now
	conv.HumanRequestedAt = nil
	s.bump(conv, now)
	return conv.Clone(), nil
}

// Release withdraws one coordinator's offer on a pending request. If the
// conversation has since been claimed or ended this is a no-op.
func (s *MemoryStore) Release(ctx context.Context, id, coordinatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return chat.ErrNotFound
	}
	if conv.State != chat.StatePendingHuman {
		return nil
	}
	if conv.RejectedByCoordinator(coordinatorID) {
		return nil
	}

	conv.RejectedBy = append(conv.RejectedBy, coordinatorID)
	s.bump(conv, time.Now())
	return nil
}

// Reassign is the compare-and-set transfer: it requires the current assignee
// to match the caller while the conversation is active_human.
func (s *MemoryStore) Reassign(ctx context.Context, id, fromCoordinatorID, toCoordinatorID, toCoordinatorName string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	if conv.State != chat.StateActiveHuman {
		return nil, chat.ErrInvalidTransition
	}
	if conv.AssignedCoordinatorID == nil || *conv.AssignedCoordinatorID != fromCoordinatorID {
		return nil, chat.ErrNotOwner
	}

	now := time.Now()
	conv.AssignedCoordinatorID = &toCoordinatorID
	conv.AssignedCoordinatorName = &toCoordinatorName
	conv.AcceptedBy = &toCoordinatorID
	conv.AcceptedAt = &now
	s.bump(conv, now)
	return conv.Clone(), nil
}

// End transitions to the terminal ended state. Idempotent.
func (s *MemoryStore) End(ctx context.Context, id string, endedBy chat.EndedBy, actorID string) (*chat.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, false, chat.ErrNotFound
	}
	if conv.State == chat.StateEnded {
		return conv.Clone(), false, nil
	}
	if !conv.State.CanTransitionTo(chat.StateEnded) {
		return nil, false, chat.ErrInvalidTransition
	}

	now := time.Now()
	conv.State = chat.StateEnded
	conv.EndedBy = &endedBy
	conv.EndedAt = &now
	conv.AssignedCoordinatorID = nil
	conv.AssignedCoordinatorName = nil
	conv.HumanRequestedAt = nil
	s.bump(conv, now)
	return conv.Clone(), true, nil
}

// SetUserOnline updates the requester's liveness flag.
func (s *MemoryStore) SetUserOnline(ctx context.Context, id string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return chat.ErrNotFound
	}
	conv.IsOnline = online
	s.bump(conv, time.Now())
	return nil
}

// ListPending returns pending conversations visible to the coordinator,
// longest-waiting first.
func (s *MemoryStore) ListPending(ctx context.Context, coordinatorID string) ([]*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*chat.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.State != chat.StatePendingHuman {
			continue
		}
		if conv.RejectedByCoordinator(coordinatorID) {
			continue
		}
		result = append(result, conv.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].HumanRequestedAt.Before(*result[j].HumanRequestedAt)
	})
	return result, nil
}

// ListActive returns active conversations owned by the coordinator.
func (s *MemoryStore) ListActive(ctx context.Context, coordinatorID string) ([]*chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*chat.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.State != chat.StateActiveHuman {
			continue
		}
		if conv.AssignedCoordinatorID == nil || *conv.AssignedCoordinatorID != coordinatorID {
			continue
		}
		result = append(result, conv.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

// CountPending returns the number of pending_human conversations.
func (s *MemoryStore) CountPending(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, conv := range s.conversations {
		if conv.State == chat.StatePendingHuman {
			count++
		}
	}
	return count, nil
}

// Append inserts a message at the end of the conversation's transcript.
func (s *MemoryStore) Append(ctx context.Context, msg *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return chat.ErrNotFound
	}

	s.seq++
	msg.Seq = s.seq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	stored := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &stored)
	return nil
}

// List returns the transcript in insertion order.
func (s *MemoryStore) List(ctx context.Context, conversationID string) ([]*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[conversationID]
	result := make([]*chat.Message, len(msgs))
	for i, m := range msgs {
		copied := *m
		result[i] = &copied
	}
	return result, nil
}

// MarkRead flips IsRead on all messages not authored by readerRole.
func (s *MemoryStore) MarkRead(ctx context.Context, conversationID string, readerRole chat.SenderType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages[conversationID] {
		if m.SenderType != readerRole {
			m.IsRead = true
		}
	}
	return nil
}

// bump keeps UpdatedAt monotonically non-decreasing.
func (s *MemoryStore) bump(conv *chat.Conversation, now time.Time) {
	if now.After(conv.UpdatedAt) {
		conv.UpdatedAt = now
	}
}
