package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, debtor_id, title, principal_cents, currency_code,
// start_date, installment_count, monthly_interest_rate, closed, created_at
func scanAgreement(s scanner) (*ledger.Agreement, error) {
	var a ledger.Agreement

	var title sql.NullString

	if err := s.Scan(
		&a.ID, &a.DebtorID, &title, &a.PrincipalCents, &a.CurrencyCode,
		&a.StartDate, &a.InstallmentCount, &a.MonthlyInterestRate,
		&a.Closed, &a.CreatedAt,
	); err != nil {
		return nil, err
	}

	a.Title = title.String

	return &a, nil
}

const selectAgreementColumns = `
	a.id, a.debtor_id, a.title, a.principal_cents, a.currency_code,
	a.start_date, a.installment_count, a.monthly_interest_rate, a.closed, a.created_at
`

// CreateAgreement inserts the agreement and its installments in one
// transaction. Installments exist only as the batch created here.
func (s *Store) CreateAgreement(ctx context.Context, a *ledger.Agreement) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	agreementQuery := `
		INSERT INTO agreements (id, debtor_id, title, principal_cents, currency_code,
			start_date, installment_count, monthly_interest_rate, closed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := dbTx.ExecContext(ctx, agreementQuery,
		a.ID, a.DebtorID, nullString(a.Title), a.PrincipalCents, a.CurrencyCode,
		a.StartDate, a.InstallmentCount, a.MonthlyInterestRate, a.Closed, a.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting agreement: %w", err)
	}

	installmentQuery := `
		INSERT INTO installments (id, agreement_id, number, due_date, amount_cents, paid_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, inst := range a.Installments {
		if _, err := dbTx.ExecContext(ctx, installmentQuery,
			inst.ID, inst.AgreementID, inst.Number, inst.DueDate,
			inst.AmountCents, inst.PaidCents, inst.Status,
		); err != nil {
			return fmt.Errorf("inserting installment %d: %w", inst.Number, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing agreement: %w", err)
	}

	return nil
}

func (s *Store) GetAgreement(ctx context.Context, id uuid.UUID) (*ledger.Agreement, error) {
	query := `SELECT ` + selectAgreementColumns + ` FROM agreements a WHERE a.id = $1`

	a, err := scanAgreement(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting agreement: %w", err)
	}

	if err := s.loadGraph(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Store) GetAgreementByInstallment(ctx context.Context, installmentID uuid.UUID) (*ledger.Agreement, error) {
	query := `SELECT agreement_id FROM installments WHERE id = $1`

	var agreementID uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, installmentID).Scan(&agreementID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("resolving installment agreement: %w", err)
	}

	return s.GetAgreement(ctx, agreementID)
}

func (s *Store) ListAgreementsByDebtor(ctx context.Context, debtorID uuid.UUID) ([]*ledger.Agreement, error) {
	query := `SELECT ` + selectAgreementColumns + `
		FROM agreements a
		WHERE a.debtor_id = $1
		ORDER BY a.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, debtorID)
	if err != nil {
		return nil, fmt.Errorf("listing agreements: %w", err)
	}
	defer rows.Close()

	var agreements []*ledger.Agreement

	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning agreement: %w", err)
		}

		agreements = append(agreements, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing agreements: %w", err)
	}

	for _, a := range agreements {
		if err := s.loadGraph(ctx, a); err != nil {
			return nil, err
		}
	}

	return agreements, nil
}

func (s *Store) DeleteAgreement(ctx context.Context, id uuid.UUID) error {
	// Installments and payments cascade via foreign keys.
	res, err := s.db.ExecContext(ctx, `DELETE FROM agreements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting agreement: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

// loadGraph fills the agreement's installments (ordered by number) and their
// payments (ordered by date, then insertion).
func (s *Store) loadGraph(ctx context.Context, a *ledger.Agreement) error {
	instQuery := `
		SELECT id, agreement_id, number, due_date, amount_cents, paid_cents, status
		FROM installments
		WHERE agreement_id = $1
		ORDER BY number ASC
	`

	rows, err := s.db.QueryContext(ctx, instQuery, a.ID)
	if err != nil {
		return fmt.Errorf("listing installments: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*ledger.Installment)

	for rows.Next() {
		var inst ledger.Installment

		var status string

		if err := rows.Scan(
			&inst.ID, &inst.AgreementID, &inst.Number, &inst.DueDate,
			&inst.AmountCents, &inst.PaidCents, &status,
		); err != nil {
			return fmt.Errorf("scanning installment: %w", err)
		}

		inst.Status = ledger.InstallmentStatus(status)
		a.Installments = append(a.Installments, &inst)
		byID[inst.ID] = &inst
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing installments: %w", err)
	}

	payQuery := `
		SELECT p.id, p.installment_id, p.date, p.amount_cents, p.method, p.note, p.recorded_at
		FROM payments p
		JOIN installments i ON p.installment_id = i.id
		WHERE i.agreement_id = $1
		ORDER BY p.date ASC, p.recorded_at ASC
	`

	payRows, err := s.db.QueryContext(ctx, payQuery, a.ID)
	if err != nil {
		return fmt.Errorf("listing payments: %w", err)
	}
	defer payRows.Close()

	for payRows.Next() {
		var p ledger.Payment

		var method string

		var note sql.NullString

		if err := payRows.Scan(
			&p.ID, &p.InstallmentID, &p.Date, &p.AmountCents, &method, &note, &p.RecordedAt,
		); err != nil {
			return fmt.Errorf("scanning payment: %w", err)
		}

		p.Method = ledger.PaymentMethod(method)
		p.Note = note.String

		if inst, ok := byID[p.InstallmentID]; ok {
			inst.Payments = append(inst.Payments, &p)
		}
	}

	if err := payRows.Err(); err != nil {
		return fmt.Errorf("listing payments: %w", err)
	}

	return nil
}

type ledgerTx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}

	return &ledgerTx{tx: dbTx}, nil
}

func (t *ledgerTx) Commit() error   { return t.tx.Commit() }
func (t *ledgerTx) Rollback() error { return t.tx.Rollback() }

func (t *ledgerTx) InsertPayment(ctx context.Context, p *ledger.Payment) error {
	query := `
		INSERT INTO payments (id, installment_id, date, amount_cents, method, note, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := t.tx.ExecContext(ctx, query,
		p.ID, p.InstallmentID, p.Date, p.AmountCents, p.Method, nullString(p.Note), p.RecordedAt,
	); err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}

	return nil
}

func (t *ledgerTx) DeletePayment(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting payment: %w", err)
	}

	return nil
}

func (t *ledgerTx) UpdateInstallment(ctx context.Context, inst *ledger.Installment) error {
	query := `
		UPDATE installments
		SET paid_cents = $1, status = $2
		WHERE id = $3
	`

	if _, err := t.tx.ExecContext(ctx, query, inst.PaidCents, inst.Status, inst.ID); err != nil {
		return fmt.Errorf("updating installment: %w", err)
	}

	return nil
}

func (t *ledgerTx) SetAgreementClosed(ctx context.Context, id uuid.UUID, closed bool) error {
	query := `UPDATE agreements SET closed = $1 WHERE id = $2`

	if _, err := t.tx.ExecContext(ctx, query, closed, id); err != nil {
		return fmt.Errorf("updating agreement closure: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
