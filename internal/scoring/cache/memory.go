// Package cache provides the TTL caches that sit in front of credit-profile
// recomputation: an in-process map for single-node deployments and a redis
// variant for shared ones.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/scoring"
)

type entry struct {
	profile   *scoring.CreditProfile
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory profile cache with TTL. Expired
// entries are dropped lazily on read.
type InMemory struct {
	mu    sync.RWMutex
	items map[uuid.UUID]entry
	ttl   time.Duration
}

func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{
		items: make(map[uuid.UUID]entry),
		ttl:   ttl,
	}
}

func (c *InMemory) Get(_ context.Context, debtorID uuid.UUID) (*scoring.CreditProfile, bool) {
	c.mu.RLock()
	e, ok := c.items[debtorID]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.Invalidate(context.Background(), debtorID)
		return nil, false
	}

	return e.profile, true
}

func (c *InMemory) Set(_ context.Context, debtorID uuid.UUID, p *scoring.CreditProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[debtorID] = entry{
		profile:   p,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *InMemory) Invalidate(_ context.Context, debtorID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, debtorID)
}
