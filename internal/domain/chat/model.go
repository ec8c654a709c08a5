// Package chat contains the conversation lifecycle model for the live
// support-chat hand-off engine: the state machine, the message log contract,
// and the orchestrator that sequences escalation, claim, transfer and end.
package chat

import "time"

// ConversationState represents the lifecycle state of a conversation.
type ConversationState string

const (
	// StateAIActive indicates the automated assistant is handling the conversation.
	StateAIActive ConversationState = "ai_active"
	// StatePendingHuman indicates the user asked for a human and the request is queued.
	StatePendingHuman ConversationState = "pending_human"
	// StateActiveHuman indicates exactly one coordinator owns the conversation.
	StateActiveHuman ConversationState = "active_human"
	// StateEnded is terminal. A conversation never leaves it.
	StateEnded ConversationState = "ended"
)

// String returns the string representation of the state.
func (s ConversationState) String() string {
	return string(s)
}

// IsTerminal returns true if the state allows no further transitions.
func (s ConversationState) IsTerminal() bool {
	return s == StateEnded
}

// ValidTransitions defines allowed conversation state transitions.
// Rejecting a pending request is not a transition: the conversation stays
// pending_human and only the rejecting coordinator's offer is withdrawn.
var ValidTransitions = map[ConversationState][]ConversationState{
	StateAIActive:     {StatePendingHuman},
	StatePendingHuman: {StateActiveHuman, StateEnded},
	StateActiveHuman:  {StateEnded},
	StateEnded:        {},
}

// CanTransitionTo checks if a transition from the current state to target is valid.
func (s ConversationState) CanTransitionTo(target ConversationState) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// SenderType identifies who authored a chat message.
type SenderType string

const (
	SenderUser        SenderType = "user"
	SenderAssistant   SenderType = "assistant"
	SenderCoordinator SenderType = "coordinator"
	// SenderSystem is used for transfer/join records appended by the engine itself.
	SenderSystem SenderType = "system"
)

// EndedBy identifies which side closed a conversation.
type EndedBy string

const (
	EndedByUser        EndedBy = "user"
	EndedByCoordinator EndedBy = "coordinator"
)

// Conversation is one support-chat session. Assignment fields are nil outside
// the states that define them: AssignedCoordinatorID is non-nil iff the state
// is active_human, HumanRequestedAt is non-nil iff the state is pending_human.
type Conversation struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`

	State ConversationState `json:"state"`

	AssignedCoordinatorID   *string `json:"assigned_coordinator_id,omitempty"`
	AssignedCoordinatorName *string `json:"assigned_coordinator_name,omitempty"`

	HumanRequestedAt *time.Time `json:"human_requested_at,omitempty"`
	AcceptedBy       *string    `json:"accepted_by,omitempty"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty"`
	EndedBy          *EndedBy   `json:"ended_by,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`

	// RejectedBy holds coordinators who withdrew their offer while the request
	// is pending. It only filters their own pending view; the request stays
	// queued for everyone else.
	RejectedBy []string `json:"-"`

	IsOnline bool `json:"is_online"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WaitingTime returns how long the conversation has been queued for a human.
// Computed on read, not by a background timer. Zero when not pending.
func (c *Conversation) WaitingTime(now time.Time) time.Duration {
	if c.HumanRequestedAt == nil {
		return 0
	}
	return now.Sub(*c.HumanRequestedAt)
}

// RejectedByCoordinator reports whether the coordinator already withdrew
// their offer for this request.
func (c *Conversation) RejectedByCoordinator(coordinatorID string) bool {
	for _, id := range c.RejectedBy {
		if id == coordinatorID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stored records never escape by reference.
func (c *Conversation) Clone() *Conversation {
	clone := *c
	clone.AssignedCoordinatorID = clonePtr(c.AssignedCoordinatorID)
	clone.AssignedCoordinatorName = clonePtr(c.AssignedCoordinatorName)
	clone.HumanRequestedAt = clonePtr(c.HumanRequestedAt)
	clone.AcceptedBy = clonePtr(c.AcceptedBy)
	clone.AcceptedAt = clonePtr(c.AcceptedAt)
	clone.EndedBy = clonePtr(c.EndedBy)
	clone.EndedAt = clonePtr(c.EndedAt)
	clone.RejectedBy = append([]string(nil), c.RejectedBy...)
	return &clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Message is one entry in a conversation's append-only transcript.
// Seq is the log's insertion sequence and breaks CreatedAt ties.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Content        string     `json:"content"`
	SenderType     SenderType `json:"sender_type"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name"`
	IsRead         bool       `json:"is_read"`
	Seq            int64      `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewConversation builds a fresh ai_active conversation record.
func NewConversation(id, userID, userName, userEmail string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        id,
		UserID:    userID,
		UserName:  userName,
		UserEmail: userEmail,
		State:     StateAIActive,
		IsOnline:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
