package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fiado-app/fiado/internal/scoring"
)

const redisKeyPrefix = "credit_profile:"

// Redis caches profiles as JSON values with a server-side TTL. Cache errors
// degrade to misses; the cache must never fail a profile read.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(addr string, ttl time.Duration) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (c *Redis) Get(ctx context.Context, debtorID uuid.UUID) (*scoring.CreditProfile, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+debtorID.String()).Result()
	if err != nil {
		return nil, false
	}

	var p scoring.CreditProfile
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, false
	}

	return &p, true
}

func (c *Redis) Set(ctx context.Context, debtorID uuid.UUID, p *scoring.CreditProfile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+debtorID.String(), data, c.ttl).Err(); err != nil {
		slog.Warn("failed to cache credit profile", "debtor_id", debtorID, "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, debtorID uuid.UUID) {
	if err := c.client.Del(ctx, redisKeyPrefix+debtorID.String()).Err(); err != nil {
		slog.Warn("failed to invalidate credit profile", "debtor_id", debtorID, "error", err)
	}
}
