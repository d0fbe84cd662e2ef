package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vendora-market/vendora-backend/pkg/redis"
)

// WebhookGuard deduplicates gateway webhook deliveries. Stripe retries
// aggressively, and Confirm is idempotent anyway, so the guard is a cheap
// first line that keeps replays from reaching the database at all.
type WebhookGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewWebhookGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*WebhookGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &WebhookGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark returns true when the event was already seen.
func (g *WebhookGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete unmarks an event so a retry can process it after a handler failure.
func (g *WebhookGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	return g.store.Del(ctx, key)
}
