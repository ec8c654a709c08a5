package handlers

import (
	"context"
	"time"

	"naf-chat-server/internal/domain/presence"
)

// PresenceHandler handles coordinator presence HTTP requests.
type PresenceHandler struct {
	store presence.Store
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(store presence.Store) *PresenceHandler {
	return &PresenceHandler{store: store}
}

// Heartbeat refreshes the coordinator's presence record.
func (h *PresenceHandler) Heartbeat(ctx context.Context, id, name string, status presence.Status, specialties []string) (*presence.Coordinator, error) {
	if status == "" {
		status = presence.StatusAvailable
	}
	coord := &presence.Coordinator{
		ID:          id,
		Name:        name,
		Specialties: specialties,
		Status:      status,
		IsOnline:    status != presence.StatusOffline,
		LastSeenAt:  time.Now(),
	}
	if err := h.store.Heartbeat(ctx, coord); err != nil {
		return nil, err
	}
	return coord, nil
}

// Get returns one coordinator's presence record.
func (h *PresenceHandler) Get(ctx context.Context, id string) (*presence.Coordinator, error) {
	return h.store.Get(ctx, id)
}

// ListOnline returns the coordinators with live heartbeats.
func (h *PresenceHandler) ListOnline(ctx context.Context) ([]*presence.Coordinator, error) {
	return h.store.ListOnline(ctx)
}
