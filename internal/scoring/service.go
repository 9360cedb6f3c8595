package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/ledger"
)

// HistoryReader loads a debtor's full agreement history, closed agreements
// included. The ledger service satisfies it.
type HistoryReader interface {
	ListByDebtor(ctx context.Context, debtorID uuid.UUID) ([]*ledger.Agreement, error)
}

// ProfileStore persists computed profiles. Saving is a full replace.
type ProfileStore interface {
	SaveProfile(ctx context.Context, p *CreditProfile) error
	GetProfile(ctx context.Context, debtorID uuid.UUID) (*CreditProfile, error)
}

// ProfileCache is the TTL cache in front of recomputation. Implementations
// decide staleness; callers never compare timestamps themselves.
type ProfileCache interface {
	Get(ctx context.Context, debtorID uuid.UUID) (*CreditProfile, bool)
	Set(ctx context.Context, debtorID uuid.UUID, p *CreditProfile)
	Invalidate(ctx context.Context, debtorID uuid.UUID)
}

type Service struct {
	history HistoryReader
	store   ProfileStore
	cache   ProfileCache
	now     func() time.Time
}

type Option func(*Service)

// WithNow overrides the reference clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(history HistoryReader, store ProfileStore, cache ProfileCache, opts ...Option) *Service {
	s := &Service{history: history, store: store, cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Profile returns the debtor's credit profile, recomputing only when the
// cached value has expired.
func (s *Service) Profile(ctx context.Context, debtorID uuid.UUID) (*CreditProfile, error) {
	if p, ok := s.cache.Get(ctx, debtorID); ok {
		return p, nil
	}

	return s.Recalculate(ctx, debtorID)
}

// Recalculate recomputes the profile from the full history and replaces the
// stored one. Idempotent: recomputing with no ledger change yields the same
// profile apart from LastCalculated.
func (s *Service) Recalculate(ctx context.Context, debtorID uuid.UUID) (*CreditProfile, error) {
	agreements, err := s.history.ListByDebtor(ctx, debtorID)
	if err != nil {
		return nil, fmt.Errorf("loading debtor history: %w", err)
	}

	profile := Calculate(debtorID, agreements, s.now())

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("saving credit profile: %w", err)
	}

	s.cache.Set(ctx, debtorID, profile)

	return profile, nil
}

// Watch invalidates the cached profile of any debtor whose ledger changed.
// Ledger commits are exactly the events that stale a score. Runs until the
// context is cancelled or the channel closes.
func (s *Service) Watch(ctx context.Context, events <-chan ledger.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}

			s.cache.Invalidate(ctx, e.DebtorID)
			slog.Debug("credit profile invalidated", "debtor_id", e.DebtorID, "kind", e.Kind)
		}
	}
}
