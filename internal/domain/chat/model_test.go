package chat_test

import (
	"testing"
	"time"

	"naf-chat-server/internal/domain/chat"
)

func TestConversationState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     chat.ConversationState
		to       chat.ConversationState
		expected bool
	}{
		{"ai_active to pending_human", chat.StateAIActive, chat.StatePendingHuman, true},
		{"ai_active to ended without escalation", chat.StateAIActive, chat.StateEnded, false},
		{"ai_active to active_human skips the queue", chat.StateAIActive, chat.StateActiveHuman, false},
		{"pending_human to active_human", chat.StatePendingHuman, chat.StateActiveHuman, true},
		{"pending_human to ended", chat.StatePendingHuman, chat.StateEnded, true},
		{"pending_human back to ai_active", chat.StatePendingHuman, chat.StateAIActive, false},
		{"active_human to ended", chat.StateActiveHuman, chat.StateEnded, true},
		{"active_human back to pending_human", chat.StateActiveHuman, chat.StatePendingHuman, false},
		{"ended to ai_active", chat.StateEnded, chat.StateAIActive, false},
		{"ended to pending_human", chat.StateEnded, chat.StatePendingHuman, false},
		{"ended to ended", chat.StateEnded, chat.StateEnded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.expected {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestConversationState_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		state    chat.ConversationState
		expected bool
	}{
		{"ai_active is not terminal", chat.StateAIActive, false},
		{"pending_human is not terminal", chat.StatePendingHuman, false},
		{"active_human is not terminal", chat.StateActiveHuman, false},
		{"ended is terminal", chat.StateEnded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("IsTerminal(%s) = %v, want %v", tt.state, got, tt.expected)
			}
		})
	}
}

func TestConversation_WaitingTime(t *testing.T) {
	now := time.Now()

	conv := chat.NewConversation("conv_1", "user_1", "Alice", "alice@example.com")
	if got := conv.WaitingTime(now); got != 0 {
		t.Errorf("WaitingTime before escalation = %v, want 0", got)
	}

	requested := now.Add(-90 * time.Second)
	conv.State = chat.StatePendingHuman
	conv.HumanRequestedAt = &requested
	if got := conv.WaitingTime(now); got != 90*time.Second {
		t.Errorf("WaitingTime = %v, want 90s", got)
	}
}

func TestConversation_RejectedByCoordinator(t *testing.T) {
	conv := chat.NewConversation("conv_1", "user_1", "Alice", "")
	conv.RejectedBy = []string{"coord_a"}

	if !conv.RejectedByCoordinator("coord_a") {
		t.Error("expected coord_a to be rejected")
	}
	if conv.RejectedByCoordinator("coord_b") {
		t.Error("expected coord_b not to be rejected")
	}
}

func TestConversation_Clone(t *testing.T) {
	coordID := "coord_a"
	requested := time.Now()

	conv := chat.NewConversation("conv_1", "user_1", "Alice", "")
	conv.State = chat.StateActiveHuman
	conv.AssignedCoordinatorID = &coordID
	conv.HumanRequestedAt = &requested
	conv.RejectedBy = []string{"coord_b"}

	clone := conv.Clone()
	*clone.AssignedCoordinatorID = "coord_x"
	clone.RejectedBy[0] = "coord_y"

	if *conv.AssignedCoordinatorID != "coord_a" {
		t.Error("mutating clone assignment leaked into original")
	}
	if conv.RejectedBy[0] != "coord_b" {
		t.Error("mutating clone rejected list leaked into original")
	}
}
