package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naf-chat-server/internal/domain/chat"
	"naf-chat-server/internal/infrastructure/store"
)

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	return store.NewMemoryStore(zerolog.Nop())
}

func createPending(t *testing.T, s *store.MemoryStore, id string) *chat.Conversation {
	t.Helper()
	ctx := context.Background()

	conv := chat.NewConversation(id, "user_1", "Alice", "alice@example.com")
	require.NoError(t, s.Create(ctx, conv))

	pending, err := s.RequestHuman(ctx, id)
	require.NoError(t, err)
	require.Equal(t, chat.StatePendingHuman, pending.State)
	require.NotNil(t, pending.HumanRequestedAt)
	return pending
}

func TestMemoryStore_Claim_SingleWinnerUnderContention(t *testing.T) {
	s := newTestStore(t)
	createPending(t, s, "conv_1")

	const contenders = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losses  int
	)

	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		coordID := string(rune('a' + i%26))
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start
			conv, err := s.Claim(context.Background(), "conv_1", id, "Coordinator "+id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, *conv.AssignedCoordinatorID)
				return
			}
			assert.ErrorIs(t, err, chat.ErrAlreadyClaimed)
			losses++
		}(coordID)
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1, "exactly one claim must win")
	assert.Equal(t, contenders-1, losses)

	conv, err := s.Get(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, chat.StateActiveHuman, conv.State)
	assert.Equal(t, winners[0], *conv.AssignedCoordinatorID)
	assert.Nil(t, conv.HumanRequestedAt)
}

func TestMemoryStore_Claim_GuardFailures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := chat.NewConversation("conv_ai", "user_1", "Alice", "")
	require.NoError(t, s.Create(ctx, conv))

	_, err := s.Claim(ctx, "conv_ai", "coord_a", "A")
	assert.ErrorIs(t, err, chat.ErrInvalidTransition, "claiming an ai_active conversation")

	_, err = s.RequestHuman(ctx, "conv_ai")
	require.NoError(t, err)
	_, _, err = s.End(ctx, "conv_ai", chat.EndedByUser, "user_1")
	require.NoError(t, err)
	_, err = s.Claim(ctx, "conv_ai", "coord_a", "A")
	assert.ErrorIs(t, err, chat.ErrInvalidTransition, "claiming an ended conversation")

	_, err = s.Claim(ctx, "missing", "coord_a", "A")
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestMemoryStore_Release_FiltersPendingView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createPending(t, s, "conv_1")

	require.NoError(t, s.Release(ctx, "conv_1", "coord_a"))
	// Repeat releases are no-ops.
	require.NoError(t, s.Release(ctx, "conv_1", "coord_a"))

	forRejector, err := s.ListPending(ctx, "coord_a")
	require.NoError(t, err)
	assert.Empty(t, forRejector, "rejector must not see the request")

	forOthers, err := s.ListPending(ctx, "coord_b")
	require.NoError(t, err)
	require.Len(t, forOthers, 1, "request stays queued for other coordinators")
	assert.Equal(t, chat.StatePendingHuman, forOthers[0].State)

	// The rejector can still win an explicit claim.
	conv, err := s.Claim(ctx, "conv_1", "coord_a", "A")
	require.NoError(t, err)
	assert.Equal(t, chat.StateActiveHuman, conv.State)
}

func TestMemoryStore_Release_AfterClaimIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createPending(t, s, "conv_1")

	_, err := s.Claim(ctx, "conv_1", "coord_a", "A")
	require.NoError(t, err)

	require.NoError(t, s.Release(ctx, "conv_1", "coord_b"))

	conv, err := s.Get(ctx, "conv_1")
	require.NoError(t, err)
	assert.Equal(t, chat.StateActiveHuman, conv.State)
	assert.Empty(t, conv.RejectedBy)
}

func TestMemoryStore_Reassign(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createPending(t, s, "conv_1")

	_, err := s.Reassign(ctx, "conv_1", "coord_a", "coord_b", "B")
	assert.ErrorIs(t, err, chat.ErrInvalidTransition, "transfer requires active_human")

	_, err = s.Claim(ctx, "conv_1", "coord_a", "A")
	require.NoError(t, err)

	_, err = s.Reassign(ctx, "conv_1", "coord_x", "coord_b", "B")
	assert.ErrorIs(t, err, chat.ErrNotOwner, "only the assignee may transfer")

	conv, err := s.Reassign(ctx, "conv_1", "coord_a", "coord_b", "B")
	require.NoError(t, err)
	assert.Equal(t, "coord_b", *conv.AssignedCoordinatorID)
	assert.Equal(t, chat.StateActiveHuman, conv.State)
}

func TestMemoryStore_End_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createPending(t, s, "conv_1")

	conv, changed, err := s.End(ctx, "conv_1", chat.EndedByCoordinator, "coord_a")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, chat.StateEnded, conv.State)
	assert.Equal(t, chat.EndedByCoordinator, *conv.EndedBy)
	assert.Nil(t, conv.AssignedCoordinatorID)
	assert.Nil(t, conv.HumanRequestedAt)

	again, changed, err := s.End(ctx, "conv_1", chat.EndedByUser, "user_1")
	require.NoError(t, err)
	assert.False(t, changed, "second end must not re-apply")
	assert.Equal(t, chat.EndedByCoordinator, *again.EndedBy, "first terminal record wins")
}

func TestMemoryStore_End_RequiresEscalation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := chat.NewConversation("conv_ai", "user_1", "Alice", "")
	require.NoError(t, s.Create(ctx, conv))

	_, _, err := s.End(ctx, "conv_ai", chat.EndedByUser, "user_1")
	assert.ErrorIs(t, err, chat.ErrInvalidTransition)

	unchanged, err := s.Get(ctx, "conv_ai")
	require.NoError(t, err)
	assert.Equal(t, chat.StateAIActive, unchanged.State)
	assert.Nil(t, unchanged.EndedBy)
	assert.Nil(t, unchanged.EndedAt)
}

func TestMemoryStore_ListPending_LongestWaitingFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createPending(t, s, "conv_old")
	time.Sleep(2 * time.Millisecond)
	createPending(t, s, "conv_new")

	pending, err := s.ListPending(ctx, "coord_a")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "conv_old", pending[0].ID)
	assert.Equal(t, "conv_new", pending[1].ID)
}

func TestMemoryStore_CountPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createPending(t, s, "conv_1")
	createPending(t, s, "conv_2")

	count, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = s.Claim(ctx, "conv_1", "coord_a", "A")
	require.NoError(t, err)

	count, err = s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStore_Messages_AppendListMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := chat.NewConversation("conv_1", "user_1", "Alice", "")
	require.NoError(t, s.Create(ctx, conv))

	for i, m := range []*chat.Message{
		{ID: "msg_1", ConversationID: "conv_1", Content: "hello", SenderType: chat.SenderUser},
		{ID: "msg_2", ConversationID: "conv_1", Content: "hi there", SenderType: chat.SenderAssistant},
		{ID: "msg_3", ConversationID: "conv_1", Content: "agent here", SenderType: chat.SenderCoordinator},
	} {
		require.NoError(t, s.Append(ctx, m))
		assert.Equal(t, int64(i+1), m.Seq)
	}

	err := s.Append(ctx, &chat.Message{ID: "msg_x", ConversationID: "missing"})
	assert.ErrorIs(t, err, chat.ErrNotFound)

	msgs, err := s.List(ctx, "conv_1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg_1", msgs[0].ID)
	assert.Equal(t, "msg_3", msgs[2].ID)

	require.NoError(t, s.MarkRead(ctx, "conv_1", chat.SenderUser))

	msgs, err = s.List(ctx, "conv_1")
	require.NoError(t, err)
	assert.False(t, msgs[0].IsRead, "reader's own message stays unread")
	assert.True(t, msgs[1].IsRead)
	assert.True(t, msgs[2].IsRead)

	// Marking again changes nothing.
	require.NoError(t, s.MarkRead(ctx, "conv_1", chat.SenderUser))

	repeat, err := s.List(ctx, "conv_1")
	require.NoError(t, err)
	require.Len(t, repeat, 3)
	for i := range repeat {
		assert.Equal(t, msgs[i].IsRead, repeat[i].IsRead)
	}
}
