package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiado-app/fiado/internal/ledger"
	"github.com/fiado-app/fiado/internal/scoring"
)

type stubHistory struct {
	listFn func(ctx context.Context, debtorID uuid.UUID) ([]*ledger.Agreement, error)
}

func (s *stubHistory) ListByDebtor(ctx context.Context, debtorID uuid.UUID) ([]*ledger.Agreement, error) {
	return s.listFn(ctx, debtorID)
}

type stubStore struct {
	saveFn func(ctx context.Context, p *scoring.CreditProfile) error
	getFn  func(ctx context.Context, debtorID uuid.UUID) (*scoring.CreditProfile, error)
}

func (s *stubStore) SaveProfile(ctx context.Context, p *scoring.CreditProfile) error {
	return s.saveFn(ctx, p)
}

func (s *stubStore) GetProfile(ctx context.Context, debtorID uuid.UUID) (*scoring.CreditProfile, error) {
	return s.getFn(ctx, debtorID)
}

type stubCache struct {
	getFn        func(ctx context.Context, debtorID uuid.UUID) (*scoring.CreditProfile, bool)
	setCount     int
	invalidated  []uuid.UUID
	invalidateCh chan uuid.UUID
}

func (s *stubCache) Get(ctx context.Context, debtorID uuid.UUID) (*scoring.CreditProfile, bool) {
	if s.getFn == nil {
		return nil, false
	}

	return s.getFn(ctx, debtorID)
}

func (s *stubCache) Set(ctx context.Context, debtorID uuid.UUID, p *scoring.CreditProfile) {
	s.setCount++
}

func (s *stubCache) Invalidate(ctx context.Context, debtorID uuid.UUID) {
	s.invalidated = append(s.invalidated, debtorID)
	if s.invalidateCh != nil {
		s.invalidateCh <- debtorID
	}
}

func TestService_Profile_CacheHitSkipsRecompute(t *testing.T) {
	debtorID := uuid.New()
	cached := &scoring.CreditProfile{DebtorID: debtorID, Score: 81}

	history := &stubHistory{
		listFn: func(context.Context, uuid.UUID) ([]*ledger.Agreement, error) {
			t.Fatal("history must not be loaded on a cache hit")
			return nil, nil
		},
	}
	cache := &stubCache{
		getFn: func(_ context.Context, id uuid.UUID) (*scoring.CreditProfile, bool) {
			require.Equal(t, debtorID, id)
			return cached, true
		},
	}

	svc := scoring.NewService(history, &stubStore{}, cache)

	got, err := svc.Profile(context.Background(), debtorID)
	require.NoError(t, err)
	assert.Same(t, cached, got)
}

func TestService_Profile_CacheMissRecomputesAndSaves(t *testing.T) {
	debtorID := uuid.New()
	now := date(2025, time.June, 15)

	var saved *scoring.CreditProfile

	history := &stubHistory{
		listFn: func(context.Context, uuid.UUID) ([]*ledger.Agreement, error) {
			return nil, nil
		},
	}
	store := &stubStore{
		saveFn: func(_ context.Context, p *scoring.CreditProfile) error {
			saved = p
			return nil
		},
	}
	cache := &stubCache{}

	svc := scoring.NewService(history, store, cache, scoring.WithNow(func() time.Time { return now }))

	got, err := svc.Profile(context.Background(), debtorID)
	require.NoError(t, err)

	assert.Equal(t, scoring.NeutralScore, got.Score)
	assert.Equal(t, now, got.LastCalculated)
	require.NotNil(t, saved)
	assert.Same(t, got, saved)
	assert.Equal(t, 1, cache.setCount)
}

func TestService_Recalculate_SaveErrorPropagates(t *testing.T) {
	history := &stubHistory{
		listFn: func(context.Context, uuid.UUID) ([]*ledger.Agreement, error) {
			return nil, nil
		},
	}
	store := &stubStore{
		saveFn: func(context.Context, *scoring.CreditProfile) error {
			return errors.New("constraint violated")
		},
	}
	cache := &stubCache{}

	svc := scoring.NewService(history, store, cache)

	_, err := svc.Recalculate(context.Background(), uuid.New())
	require.ErrorContains(t, err, "saving credit profile")
	assert.Zero(t, cache.setCount, "a failed save must not populate the cache")
}

func TestService_Recalculate_HistoryErrorPropagates(t *testing.T) {
	history := &stubHistory{
		listFn: func(context.Context, uuid.UUID) ([]*ledger.Agreement, error) {
			return nil, errors.New("connection reset")
		},
	}

	svc := scoring.NewService(history, &stubStore{}, &stubCache{})

	_, err := svc.Recalculate(context.Background(), uuid.New())
	require.ErrorContains(t, err, "loading debtor history")
}

func TestService_Watch_InvalidatesOnLedgerEvents(t *testing.T) {
	debtorID := uuid.New()

	cache := &stubCache{invalidateCh: make(chan uuid.UUID, 1)}
	svc := scoring.NewService(&stubHistory{}, &stubStore{}, cache)

	events := make(chan ledger.Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Watch(ctx, events)
	}()

	events <- ledger.Event{Kind: ledger.EventPaymentRegistered, DebtorID: debtorID}

	select {
	case got := <-cache.invalidateCh:
		assert.Equal(t, debtorID, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for invalidation")
	}

	close(events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop when the event channel closed")
	}
}
