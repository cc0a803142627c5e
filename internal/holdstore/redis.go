package holdstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// Redis stores holds in a shared Redis instance so several API nodes see the
// same pending holds. Expiry is delegated to Redis key TTLs.
type Redis struct {
	client *redis.Client
	clock  clock.Clock
	ttl    time.Duration
	prefix string
}

type RedisOption func(*Redis)

// WithRedisTTL overrides the default hold TTL.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.ttl = d
		}
	}
}

func NewRedis(client *redis.Client, clk clock.Clock, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		clock:  clk,
		ttl:    DefaultTTL,
		prefix: "hold",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k domain.HoldKey) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, k.TenantID, k.CustomerID)
}

func (r *Redis) Put(ctx context.Context, hold domain.Hold) (domain.Hold, error) {
	now := r.clock.Now()
	hold.CreatedAt = now
	hold.ExpiresAt = now.Add(r.ttl)

	payload, err := json.Marshal(holdPayload(hold))
	if err != nil {
		return domain.Hold{}, fmt.Errorf("marshal hold: %w", err)
	}
	if err := r.client.Set(ctx, r.key(hold.Key()), payload, r.ttl).Err(); err != nil {
		return domain.Hold{}, fmt.Errorf("store hold: %w", err)
	}
	return hold, nil
}

func (r *Redis) Get(ctx context.Context, key domain.HoldKey) (domain.Hold, bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Hold{}, false, nil
		}
		return domain.Hold{}, false, fmt.Errorf("read hold: %w", err)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Hold{}, false, fmt.Errorf("decode hold: %w", err)
	}
	hold := p.hold()
	// Redis expiry has second granularity; re-check against the clock so the
	// TTL boundary matches the in-memory store exactly.
	if !hold.ExpiresAt.After(r.clock.Now()) {
		return domain.Hold{}, false, nil
	}
	return hold, true, nil
}

func (r *Redis) Remove(ctx context.Context, key domain.HoldKey) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("remove hold: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts expired keys server-side.
func (r *Redis) Sweep(context.Context) (int, error) {
	return 0, nil
}

type payload struct {
	CustomerID   string    `json:"customer_id"`
	TenantID     string    `json:"tenant_id"`
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	ServiceID    string    `json:"service_id"`
	ServiceName  string    `json:"service_name"`
	StartsAt     time.Time `json:"starts_at"`
	DurationSec  int64     `json:"duration_sec"`
	PriceCents   int64     `json:"price_cents"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func holdPayload(h domain.Hold) payload {
	return payload{
		CustomerID:   h.CustomerID,
		TenantID:     h.TenantID,
		ResourceID:   h.ResourceID,
		ResourceName: h.ResourceName,
		ServiceID:    h.ServiceID,
		ServiceName:  h.ServiceName,
		StartsAt:     h.StartsAt,
		DurationSec:  int64(h.Duration / time.Second),
		PriceCents:   h.PriceCents,
		CreatedAt:    h.CreatedAt,
		ExpiresAt:    h.ExpiresAt,
	}
}

func (p payload) hold() domain.Hold {
	return domain.Hold{
		CustomerID:   p.CustomerID,
		TenantID:     p.TenantID,
		ResourceID:   p.ResourceID,
		ResourceName: p.ResourceName,
		ServiceID:    p.ServiceID,
		ServiceName:  p.ServiceName,
		StartsAt:     p.StartsAt,
		Duration:     time.Duration(p.DurationSec) * time.Second,
		PriceCents:   p.PriceCents,
		CreatedAt:    p.CreatedAt,
		ExpiresAt:    p.ExpiresAt,
	}
}
