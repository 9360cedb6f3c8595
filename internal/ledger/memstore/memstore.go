// Package memstore is an in-memory ledger repository. It backs tests and
// local development; the postgres store in internal/ledger/store is the
// production twin.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/ledger"
)

// Store keeps full agreement graphs keyed by agreement ID. Reads hand out
// deep copies so callers can mutate freely; changes only land via a Tx
// commit, mirroring the transactional contract of the SQL store.
type Store struct {
	mu         sync.Mutex
	agreements map[uuid.UUID]*ledger.Agreement
	byInst     map[uuid.UUID]uuid.UUID // installment ID -> agreement ID

	// CommitErr, when set, makes the next Tx.Commit fail with it. Tests use
	// this to exercise the rollback path.
	CommitErr error
}

func New() *Store {
	return &Store{
		agreements: make(map[uuid.UUID]*ledger.Agreement),
		byInst:     make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *Store) CreateAgreement(_ context.Context, a *ledger.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneAgreement(a)
	s.agreements[clone.ID] = clone

	for _, inst := range clone.Installments {
		s.byInst[inst.ID] = clone.ID
	}

	return nil
}

func (s *Store) GetAgreement(_ context.Context, id uuid.UUID) (*ledger.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agreements[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return cloneAgreement(a), nil
}

func (s *Store) GetAgreementByInstallment(ctx context.Context, installmentID uuid.UUID) (*ledger.Agreement, error) {
	s.mu.Lock()
	agreementID, ok := s.byInst[installmentID]
	s.mu.Unlock()

	if !ok {
		return nil, ledger.ErrNotFound
	}

	return s.GetAgreement(ctx, agreementID)
}

func (s *Store) ListAgreementsByDebtor(_ context.Context, debtorID uuid.UUID) ([]*ledger.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Agreement

	for _, a := range s.agreements {
		if a.DebtorID == debtorID {
			out = append(out, cloneAgreement(a))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (s *Store) DeleteAgreement(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agreements[id]
	if !ok {
		return ledger.ErrNotFound
	}

	for _, inst := range a.Installments {
		delete(s.byInst, inst.ID)
	}

	delete(s.agreements, id)

	return nil
}

func (s *Store) Begin(_ context.Context) (ledger.Tx, error) {
	return &memTx{store: s}, nil
}

// memTx stages mutations and applies them on Commit under the store lock.
type memTx struct {
	store *Store
	done  bool

	insertPayments []*ledger.Payment
	deletePayments []uuid.UUID
	installments   []*ledger.Installment
	closures       map[uuid.UUID]bool
}

func (t *memTx) InsertPayment(_ context.Context, p *ledger.Payment) error {
	t.insertPayments = append(t.insertPayments, clonePayment(p))
	return nil
}

func (t *memTx) DeletePayment(_ context.Context, id uuid.UUID) error {
	t.deletePayments = append(t.deletePayments, id)
	return nil
}

func (t *memTx) UpdateInstallment(_ context.Context, inst *ledger.Installment) error {
	c := *inst
	c.Payments = nil
	t.installments = append(t.installments, &c)

	return nil
}

func (t *memTx) SetAgreementClosed(_ context.Context, id uuid.UUID, closed bool) error {
	if t.closures == nil {
		t.closures = make(map[uuid.UUID]bool)
	}

	t.closures[id] = closed

	return nil
}

func (t *memTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.done {
		return nil
	}

	t.done = true

	if err := t.store.CommitErr; err != nil {
		t.store.CommitErr = nil
		return err
	}

	for _, p := range t.insertPayments {
		if inst := t.store.findInstallment(p.InstallmentID); inst != nil {
			inst.Payments = append(inst.Payments, p)
		}
	}

	for _, id := range t.deletePayments {
		t.store.removePayment(id)
	}

	for _, staged := range t.installments {
		if inst := t.store.findInstallment(staged.ID); inst != nil {
			inst.PaidCents = staged.PaidCents
			inst.Status = staged.Status
		}
	}

	for id, closed := range t.closures {
		if a, ok := t.store.agreements[id]; ok {
			a.Closed = closed
		}
	}

	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

// findInstallment must be called with the store lock held.
func (s *Store) findInstallment(id uuid.UUID) *ledger.Installment {
	agreementID, ok := s.byInst[id]
	if !ok {
		return nil
	}

	a, ok := s.agreements[agreementID]
	if !ok {
		return nil
	}

	for _, inst := range a.Installments {
		if inst.ID == id {
			return inst
		}
	}

	return nil
}

// removePayment must be called with the store lock held.
func (s *Store) removePayment(id uuid.UUID) {
	for _, a := range s.agreements {
		for _, inst := range a.Installments {
			for i, p := range inst.Payments {
				if p.ID == id {
					inst.Payments = append(inst.Payments[:i], inst.Payments[i+1:]...)
					return
				}
			}
		}
	}
}

func cloneAgreement(a *ledger.Agreement) *ledger.Agreement {
	clone := *a
	clone.Installments = make([]*ledger.Installment, len(a.Installments))

	for i, inst := range a.Installments {
		ic := *inst
		ic.Payments = make([]*ledger.Payment, len(inst.Payments))

		for j, p := range inst.Payments {
			ic.Payments[j] = clonePayment(p)
		}

		clone.Installments[i] = &ic
	}

	return &clone
}

func clonePayment(p *ledger.Payment) *ledger.Payment {
	c := *p
	return &c
}
