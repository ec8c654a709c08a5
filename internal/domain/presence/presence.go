// Package presence models coordinator liveness. Records are created and
// refreshed by heartbeats from connected clients; the chat engine only reads
// them (the transfer guard checks the new owner is online).
package presence

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no presence record exists for a coordinator.
var ErrNotFound = errors.New("coordinator not found")

// Status is the coordinator's self-reported availability.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

// Coordinator is a presence record, not an account: identity comes from the
// authentication layer, this only tracks liveness and specialties.
type Coordinator struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Specialties []string  `json:"specialties,omitempty"`
	Status      Status    `json:"status"`
	IsOnline    bool      `json:"is_online"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Store tracks coordinator presence with heartbeat-driven expiry.
type Store interface {
	// Heartbeat upserts the record and refreshes its liveness TTL.
	Heartbeat(ctx context.Context, coord *Coordinator) error

	// Get returns the presence record, with IsOnline derived from the TTL.
	Get(ctx context.Context, id string) (*Coordinator, error)

	// IsOnline reports whether the coordinator has a live heartbeat and a
	// status other than offline.
	IsOnline(ctx context.Context, id string) (bool, error)

	// ListOnline returns all coordinators with live heartbeats.
	ListOnline(ctx context.Context) ([]*Coordinator, error)
}
