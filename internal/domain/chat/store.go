package chat

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a conversation or message id is unknown.
	ErrNotFound = errors.New("conversation not found")
	// ErrInvalidTransition is returned when a state machine guard is violated.
	// Callers recover by refetching the current state and re-deciding.
	ErrInvalidTransition = errors.New("invalid conversation state transition")
	// ErrAlreadyClaimed is the expected outcome of losing an accept race.
	// Callers refresh their pending list; this is not a fault.
	ErrAlreadyClaimed = errors.New("conversation already claimed")
	// ErrNotOwner is returned when a transfer is attempted by a coordinator
	// who is not the current assignee.
	ErrNotOwner = errors.New("conversation not owned by coordinator")
)

// Store is the single source of truth for conversation state. All lifecycle
// transitions are conditional writes: Claim and Reassign are compare-and-set
// operations and the only mutual-exclusion primitive the engine relies on.
type Store interface {
	// Create inserts a new ai_active conversation.
	Create(ctx context.Context, conv *Conversation) error

	// Get returns the current snapshot of a conversation.
	Get(ctx context.Context, id string) (*Conversation, error)

	// RequestHuman transitions ai_active -> pending_human and stamps
	// HumanRequestedAt. Any other starting state fails with ErrInvalidTransition.
	RequestHuman(ctx context.Context, id string) (*Conversation, error)

	// Claim atomically transitions pending_human -> active_human for exactly
	// one caller. Losing the race returns ErrAlreadyClaimed without mutating
	// anything. Claiming a conversation that never requested a human (or has
	// ended) returns ErrInvalidTransition.
	Claim(ctx context.Context, id, coordinatorID, coordinatorName string) (*Conversation, error)

	// Release withdraws one coordinator's offer on a pending request. The
	// conversation stays pending_human and visible to everyone else. If it
	// has since been claimed or ended this is a no-op.
	Release(ctx context.Context, id, coordinatorID string) error

	// Reassign atomically moves ownership of an active_human conversation from
	// one coordinator to another. Fails with ErrNotOwner when the caller is
	// not the current assignee.
	Reassign(ctx context.Context, id, fromCoordinatorID, toCoordinatorID, toCoordinatorName string) (*Conversation, error)

	// End transitions to the terminal ended state from pending_human or
	// active_human. Idempotent: ending an ended conversation returns the same
	// snapshot with changed=false.
	End(ctx context.Context, id string, endedBy EndedBy, actorID string) (conv *Conversation, changed bool, err error)

	// SetUserOnline updates the requesting user's liveness flag independently
	// of lifecycle state.
	SetUserOnline(ctx context.Context, id string, online bool) error

	// ListPending returns pending_human conversations visible to the
	// coordinator (excluding ones they rejected), ordered by HumanRequestedAt
	// ascending so the longest-waiting request is first.
	ListPending(ctx context.Context, coordinatorID string) ([]*Conversation, error)

	// ListActive returns active_human conversations owned by the coordinator.
	ListActive(ctx context.Context, coordinatorID string) ([]*Conversation, error)

	// CountPending returns the total number of pending_human conversations.
	CountPending(ctx context.Context) (int, error)
}

// MessageLog is the append-only transcript with read-state tracking.
// No message is ever deleted or edited; corrections are new messages.
type MessageLog interface {
	// Append inserts a message, assigning id, sequence and CreatedAt.
	Append(ctx context.Context, msg *Message) error

	// List returns the conversation's messages in insertion order.
	List(ctx context.Context, conversationID string) ([]*Message, error)

	// MarkRead flips IsRead on every message not authored by readerRole.
	// Idempotent; IsRead never flips back.
	MarkRead(ctx context.Context, conversationID string, readerRole SenderType) error
}
