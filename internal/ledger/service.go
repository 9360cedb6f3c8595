package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/schedule"
)

// Repository loads and persists agreement graphs. Reads return the full
// graph: agreement, installments ordered by number, payments.
type Repository interface {
	CreateAgreement(ctx context.Context, a *Agreement) error
	GetAgreement(ctx context.Context, id uuid.UUID) (*Agreement, error)
	GetAgreementByInstallment(ctx context.Context, installmentID uuid.UUID) (*Agreement, error)
	ListAgreementsByDebtor(ctx context.Context, debtorID uuid.UUID) ([]*Agreement, error)
	DeleteAgreement(ctx context.Context, id uuid.UUID) error

	Begin(ctx context.Context) (Tx, error)
}

// Tx scopes the mutations of a single ledger operation. Either everything
// commits or nothing does; rollback after a failed commit must leave the
// stored graph exactly as it was.
type Tx interface {
	InsertPayment(ctx context.Context, p *Payment) error
	DeletePayment(ctx context.Context, id uuid.UUID) error
	UpdateInstallment(ctx context.Context, inst *Installment) error
	SetAgreementClosed(ctx context.Context, id uuid.UUID, closed bool) error
	Commit() error
	Rollback() error
}

// Service owns the installment/payment state machine. Every operation loads a
// fresh agreement graph, derives the next state, and writes it through a
// repository transaction; callers never observe a partially applied change.
type Service struct {
	repo Repository
	bus  *Bus
	now  func() time.Time
}

type Option func(*Service)

// WithNow overrides the reference clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, bus *Bus, opts ...Option) *Service {
	s := &Service{repo: repo, bus: bus, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateAgreementParams struct {
	DebtorID            uuid.UUID
	Title               string
	PrincipalCents      int64
	InstallmentCount    int
	MonthlyInterestRate float64
	CurrencyCode        string
	StartDate           time.Time
}

// CreateAgreement generates the installment plan and persists the agreement
// with its installments in one transaction. Installments are created only
// here and never added or removed afterward.
func (s *Service) CreateAgreement(ctx context.Context, params CreateAgreementParams) (*Agreement, error) {
	specs, err := schedule.Plan(
		params.PrincipalCents,
		params.InstallmentCount,
		params.MonthlyInterestRate,
		params.StartDate,
	)
	if err != nil {
		return nil, err
	}

	agreement := &Agreement{
		ID:                  uuid.New(),
		DebtorID:            params.DebtorID,
		Title:               params.Title,
		PrincipalCents:      params.PrincipalCents,
		CurrencyCode:        params.CurrencyCode,
		StartDate:           params.StartDate,
		InstallmentCount:    params.InstallmentCount,
		MonthlyInterestRate: params.MonthlyInterestRate,
		CreatedAt:           s.now(),
	}

	for _, spec := range specs {
		agreement.Installments = append(agreement.Installments, &Installment{
			ID:          uuid.New(),
			AgreementID: agreement.ID,
			Number:      spec.Number,
			DueDate:     spec.DueDate,
			AmountCents: spec.AmountCents,
			Status:      StatusPending,
		})
	}

	if err := s.repo.CreateAgreement(ctx, agreement); err != nil {
		return nil, fmt.Errorf("creating agreement: %w", err)
	}

	for _, inst := range agreement.Installments {
		s.publish(EventInstallmentScheduled, agreement, inst)
	}

	return agreement, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Agreement, error) {
	return s.repo.GetAgreement(ctx, id)
}

// ListByDebtor returns the debtor's full agreement history, closed ones
// included. This is the scoring engine's input.
func (s *Service) ListByDebtor(ctx context.Context, debtorID uuid.UUID) ([]*Agreement, error) {
	return s.repo.ListAgreementsByDebtor(ctx, debtorID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	agreement, err := s.repo.GetAgreement(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteAgreement(ctx, id); err != nil {
		return fmt.Errorf("deleting agreement: %w", err)
	}

	s.bus.Publish(Event{
		Kind:        EventAgreementDeleted,
		DebtorID:    agreement.DebtorID,
		AgreementID: agreement.ID,
		OccurredAt:  s.now(),
	})

	return nil
}

type RegisterPaymentParams struct {
	InstallmentID uuid.UUID
	AmountCents   int64
	Date          time.Time
	Method        PaymentMethod
	Note          string
}

// RegisterPayment appends a payment to the installment and recomputes the
// installment status and the agreement's closed flag. Validation happens
// before any mutation; on a failed commit nothing is applied.
func (s *Service) RegisterPayment(ctx context.Context, params RegisterPaymentParams) (*Payment, error) {
	if params.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	agreement, err := s.repo.GetAgreementByInstallment(ctx, params.InstallmentID)
	if err != nil {
		return nil, err
	}

	inst := agreement.Installment(params.InstallmentID)
	if inst == nil {
		return nil, ErrInstallmentMissing
	}

	if params.AmountCents > inst.RemainingCents() {
		return nil, ErrExceedsRemaining
	}

	method := params.Method
	if method == "" {
		method = MethodOther
	}

	date := params.Date
	if date.IsZero() {
		date = s.now()
	}

	payment := &Payment{
		ID:            uuid.New(),
		InstallmentID: inst.ID,
		Date:          date,
		AmountCents:   params.AmountCents,
		Method:        method,
		Note:          params.Note,
		RecordedAt:    s.now(),
	}

	inst.Payments = append(inst.Payments, payment)
	inst.PaidCents += payment.AmountCents
	inst.Status = inst.statusAfterPayment()

	if err := s.commit(ctx, agreement, inst, payment, nil); err != nil {
		return nil, err
	}

	s.publish(EventPaymentRegistered, agreement, inst)

	return payment, nil
}

// MarkInstallmentPaid settles the remaining amount in one payment dated now.
func (s *Service) MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, method PaymentMethod) (*Payment, error) {
	agreement, err := s.repo.GetAgreementByInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	inst := agreement.Installment(installmentID)
	if inst == nil {
		return nil, ErrInstallmentMissing
	}

	remaining := inst.RemainingCents()
	if remaining == 0 {
		return nil, ErrAlreadyPaid
	}

	return s.RegisterPayment(ctx, RegisterPaymentParams{
		InstallmentID: installmentID,
		AmountCents:   remaining,
		Date:          s.now(),
		Method:        method,
		Note:          "settled in full",
	})
}

// UndoLastPayment removes the most recent payment (maximum date; ties broken
// by insertion time) and reverses its effect. Undoing the payment that closed
// an agreement reopens it.
func (s *Service) UndoLastPayment(ctx context.Context, installmentID uuid.UUID) (*Installment, error) {
	agreement, err := s.repo.GetAgreementByInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	inst := agreement.Installment(installmentID)
	if inst == nil {
		return nil, ErrInstallmentMissing
	}

	payment := inst.LatestPayment()
	if payment == nil {
		return nil, ErrNoPayments
	}

	kept := inst.Payments[:0]

	for _, p := range inst.Payments {
		if p.ID != payment.ID {
			kept = append(kept, p)
		}
	}

	inst.Payments = kept

	// Floor at zero to protect against inconsistent stored state.
	inst.PaidCents -= payment.AmountCents
	if inst.PaidCents < 0 {
		inst.PaidCents = 0
	}

	inst.Status = inst.statusAfterUndo(s.now())

	if err := s.commit(ctx, agreement, inst, nil, &payment.ID); err != nil {
		return nil, err
	}

	s.publish(EventPaymentUndone, agreement, inst)

	return inst, nil
}

// OverrideInstallmentStatus sets the status without touching PaidCents.
//
// This is the escape hatch for manual corrections: it skips the
// amount/status consistency checks and can produce a paid installment with
// an outstanding balance, or the reverse. Do not add validation here.
func (s *Service) OverrideInstallmentStatus(ctx context.Context, installmentID uuid.UUID, status InstallmentStatus) (*Installment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	agreement, err := s.repo.GetAgreementByInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	inst := agreement.Installment(installmentID)
	if inst == nil {
		return nil, ErrInstallmentMissing
	}

	inst.Status = status

	if err := s.commit(ctx, agreement, inst, nil, nil); err != nil {
		return nil, err
	}

	s.publish(EventStatusOverridden, agreement, inst)

	return inst, nil
}

// commit writes one operation's mutations atomically: the optional payment
// insert/delete, the installment update, and the closure recompute. The
// closed flag is always rederived from the full installment set; the
// recompute is idempotent.
func (s *Service) commit(ctx context.Context, agreement *Agreement, inst *Installment, insert *Payment, remove *uuid.UUID) error {
	closed := agreement.AllPaid()
	closedChanged := closed != agreement.Closed
	agreement.Closed = closed

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning ledger tx: %w", err)
	}
	defer tx.Rollback()

	if insert != nil {
		if err := tx.InsertPayment(ctx, insert); err != nil {
			return fmt.Errorf("inserting payment: %w", err)
		}
	}

	if remove != nil {
		if err := tx.DeletePayment(ctx, *remove); err != nil {
			return fmt.Errorf("deleting payment: %w", err)
		}
	}

	if err := tx.UpdateInstallment(ctx, inst); err != nil {
		return fmt.Errorf("updating installment: %w", err)
	}

	if closedChanged {
		if err := tx.SetAgreementClosed(ctx, agreement.ID, closed); err != nil {
			return fmt.Errorf("updating agreement closure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger operation: %w", err)
	}

	return nil
}

func (s *Service) publish(kind EventKind, agreement *Agreement, inst *Installment) {
	s.bus.Publish(Event{
		Kind:              kind,
		DebtorID:          agreement.DebtorID,
		AgreementID:       agreement.ID,
		InstallmentID:     inst.ID,
		InstallmentNumber: inst.Number,
		DueDate:           inst.DueDate,
		InstallmentStatus: inst.Status,
		AgreementClosed:   agreement.Closed,
		OccurredAt:        s.now(),
	})
}
