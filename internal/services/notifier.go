package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sellerforge/listingops-backend/internal/logger"
)

const poolEventsChannel = "pool.events"

// PoolEvent is published after every successful pool mutation so other
// systems (UI push, content generation) can react without polling.
type PoolEvent struct {
	Type           string    `json:"type"`
	PoolID         uuid.UUID `json:"pool_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	At             time.Time `json:"at"`
}

type PoolNotifier interface {
	PublishPoolEvent(ctx context.Context, ev PoolEvent) error
}

// RedisNotifier fans pool events out over a Redis pub/sub channel.
type RedisNotifier struct {
	log *logger.Logger
	rdb *redis.Client
}

func NewRedisNotifier(baseLog *logger.Logger, addr string) *RedisNotifier {
	return &RedisNotifier{
		log: baseLog.With("service", "RedisNotifier"),
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (n *RedisNotifier) PublishPoolEvent(ctx context.Context, ev PoolEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, poolEventsChannel, payload).Err()
}

// NopNotifier is used when no Redis address is configured.
type NopNotifier struct{}

func (NopNotifier) PublishPoolEvent(ctx context.Context, ev PoolEvent) error { return nil }
