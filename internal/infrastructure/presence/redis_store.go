// Package presencestore provides coordinator presence tracking backed by
// Redis TTL keys, with an in-memory fallback for single-node deployments.
package presencestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"naf-chat-server/internal/domain/presence"
)

const (
	keyPrefix = "chat:presence:"
	indexKey  = "chat:presence-index"
)

// RedisStore keeps one TTL key per coordinator plus an index set. A
// coordinator whose heartbeat key expired is offline; stale index entries
// are pruned on read.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration, log zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "presence-store").Logger(),
	}, nil
}

// Heartbeat upserts the presence record and refreshes its TTL.
func (s *RedisStore) Heartbeat(ctx context.Context, coord *presence.Coordinator) error {
	coord.LastSeenAt = time.Now()
	coord.IsOnline = coord.Status != presence.StatusOffline

	payload, err := json.Marshal(coord)
	if err != nil {
		return fmt.Errorf("marshal presence record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+coord.ID, payload, s.ttl)
	pipe.SAdd(ctx, indexKey, coord.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store presence record: %w", err)
	}
	return nil
}

// Get returns the presence record, or ErrNotFound when the heartbeat expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*presence.Coordinator, error) {
	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, presence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch presence record: %w", err)
	}

	var coord presence.Coordinator
	if err := json.Unmarshal(payload, &coord); err != nil {
		return nil, fmt.Errorf("decode presence record: %w", err)
	}
	return &coord, nil
}

// IsOnline reports whether the coordinator has a live, non-offline heartbeat.
func (s *RedisStore) IsOnline(ctx context.Context, id string) (bool, error) {
	coord, err := s.Get(ctx, id)
	if errors.Is(err, presence.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return coord.Status != presence.StatusOffline, nil
}

// ListOnline returns all coordinators with live heartbeats, pruning expired
// index entries as it goes.
func (s *RedisStore) ListOnline(ctx context.Context) ([]*presence.Coordinator, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list presence index: %w", err)
	}

	result := make([]*presence.Coordinator, 0, len(ids))
	for _, id := range ids {
		coord, err := s.Get(ctx, id)
		if errors.Is(err, presence.ErrNotFound) {
			if err := s.client.SRem(ctx, indexKey, id).Err(); err != nil {
				s.log.Warn().Err(err).Str("coordinator_id", id).Msg("prune stale presence entry")
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if coord.Status == presence.StatusOffline {
			continue
		}
		result = append(result, coord)
	}
	return result, nil
}
