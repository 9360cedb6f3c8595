package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiado-app/fiado/internal/scoring"
	"github.com/fiado-app/fiado/internal/scoring/cache"
)

func TestInMemory_SetAndGet(t *testing.T) {
	c := cache.NewInMemory(time.Minute)
	debtorID := uuid.New()

	_, ok := c.Get(context.Background(), debtorID)
	require.False(t, ok)

	profile := &scoring.CreditProfile{DebtorID: debtorID, Score: 67}
	c.Set(context.Background(), debtorID, profile)

	got, ok := c.Get(context.Background(), debtorID)
	require.True(t, ok)
	assert.Same(t, profile, got)
}

func TestInMemory_ExpiredEntryIsAMiss(t *testing.T) {
	// A negative TTL makes every entry expired on arrival, no sleeping needed.
	c := cache.NewInMemory(-time.Second)
	debtorID := uuid.New()

	c.Set(context.Background(), debtorID, &scoring.CreditProfile{DebtorID: debtorID})

	_, ok := c.Get(context.Background(), debtorID)
	assert.False(t, ok)

	// The expired entry was dropped, not just hidden.
	_, ok = c.Get(context.Background(), debtorID)
	assert.False(t, ok)
}

func TestInMemory_Invalidate(t *testing.T) {
	c := cache.NewInMemory(time.Minute)
	debtorID := uuid.New()

	c.Set(context.Background(), debtorID, &scoring.CreditProfile{DebtorID: debtorID})
	c.Invalidate(context.Background(), debtorID)

	_, ok := c.Get(context.Background(), debtorID)
	assert.False(t, ok)

	// Invalidating an absent key is a no-op.
	c.Invalidate(context.Background(), uuid.New())
}
