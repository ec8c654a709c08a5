package presencestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"naf-chat-server/internal/domain/presence"
	presencestore "naf-chat-server/internal/infrastructure/presence"
)

func TestMemoryStore_HeartbeatAndExpiry(t *testing.T) {
	s := presencestore.NewMemoryStore(30 * time.Millisecond)
	ctx := context.Background()

	err := s.Heartbeat(ctx, &presence.Coordinator{ID: "coord_a", Name: "Ann", Status: presence.StatusAvailable})
	require.NoError(t, err)

	online, err := s.IsOnline(ctx, "coord_a")
	require.NoError(t, err)
	assert.True(t, online)

	coord, err := s.Get(ctx, "coord_a")
	require.NoError(t, err)
	assert.Equal(t, "Ann", coord.Name)
	assert.True(t, coord.IsOnline)

	time.Sleep(50 * time.Millisecond)

	online, err = s.IsOnline(ctx, "coord_a")
	require.NoError(t, err)
	assert.False(t, online, "lapsed heartbeat means offline")

	_, err = s.Get(ctx, "coord_a")
	assert.ErrorIs(t, err, presence.ErrNotFound)
}

func TestMemoryStore_OfflineStatusIsNotOnline(t *testing.T) {
	s := presencestore.NewMemoryStore(time.Minute)
	ctx := context.Background()

	err := s.Heartbeat(ctx, &presence.Coordinator{ID: "coord_a", Name: "Ann", Status: presence.StatusOffline})
	require.NoError(t, err)

	online, err := s.IsOnline(ctx, "coord_a")
	require.NoError(t, err)
	assert.False(t, online, "explicit offline status wins over a live heartbeat")

	coords, err := s.ListOnline(ctx)
	require.NoError(t, err)
	assert.Empty(t, coords)
}

func TestMemoryStore_ListOnline(t *testing.T) {
	s := presencestore.NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Heartbeat(ctx, &presence.Coordinator{ID: "coord_a", Name: "Ann", Status: presence.StatusAvailable}))
	require.NoError(t, s.Heartbeat(ctx, &presence.Coordinator{ID: "coord_b", Name: "Ben", Status: presence.StatusBusy, Specialties: []string{"billing"}}))

	coords, err := s.ListOnline(ctx)
	require.NoError(t, err)
	assert.Len(t, coords, 2)

	// IsOnline is about liveness, not availability.
	online, err := s.IsOnline(ctx, "coord_b")
	require.NoError(t, err)
	assert.True(t, online)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, presence.ErrNotFound)
}
