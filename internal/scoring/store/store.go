package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/scoring"
)

var ErrNotFound = errors.New("credit profile not found")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveProfile is a full replace: one row per debtor, overwritten on every
// recalculation.
func (s *Store) SaveProfile(ctx context.Context, p *scoring.CreditProfile) error {
	query := `
		INSERT INTO credit_profiles (
			debtor_id, score, risk_level,
			paid_on_time_count, paid_late_count, overdue_count,
			average_days_late, on_time_payment_rate, consecutive_on_time, longest_delay_days,
			total_lent_cents, total_paid_cents, current_outstanding_cents, total_interest_cents,
			agreement_count, open_agreement_count, first_agreement_date, last_payment_date,
			last_calculated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (debtor_id) DO UPDATE SET
			score = EXCLUDED.score,
			risk_level = EXCLUDED.risk_level,
			paid_on_time_count = EXCLUDED.paid_on_time_count,
			paid_late_count = EXCLUDED.paid_late_count,
			overdue_count = EXCLUDED.overdue_count,
			average_days_late = EXCLUDED.average_days_late,
			on_time_payment_rate = EXCLUDED.on_time_payment_rate,
			consecutive_on_time = EXCLUDED.consecutive_on_time,
			longest_delay_days = EXCLUDED.longest_delay_days,
			total_lent_cents = EXCLUDED.total_lent_cents,
			total_paid_cents = EXCLUDED.total_paid_cents,
			current_outstanding_cents = EXCLUDED.current_outstanding_cents,
			total_interest_cents = EXCLUDED.total_interest_cents,
			agreement_count = EXCLUDED.agreement_count,
			open_agreement_count = EXCLUDED.open_agreement_count,
			first_agreement_date = EXCLUDED.first_agreement_date,
			last_payment_date = EXCLUDED.last_payment_date,
			last_calculated = EXCLUDED.last_calculated
	`

	_, err := s.db.ExecContext(ctx, query,
		p.DebtorID, p.Score, p.RiskLevel,
		p.PaidOnTimeCount, p.PaidLateCount, p.OverdueCount,
		p.AverageDaysLate, p.OnTimePaymentRate, p.ConsecutiveOnTimePayments, p.LongestDelayDays,
		p.TotalLentCents, p.TotalPaidCents, p.CurrentOutstandingCents, p.TotalInterestEarnedCents,
		p.AgreementCount, p.OpenAgreementCount, nullTime(p.FirstAgreementDate), nullTime(p.LastPaymentDate),
		p.LastCalculated,
	)
	if err != nil {
		return fmt.Errorf("saving credit profile: %w", err)
	}

	return nil
}

func (s *Store) GetProfile(ctx context.Context, debtorID uuid.UUID) (*scoring.CreditProfile, error) {
	query := `
		SELECT debtor_id, score, risk_level,
			paid_on_time_count, paid_late_count, overdue_count,
			average_days_late, on_time_payment_rate, consecutive_on_time, longest_delay_days,
			total_lent_cents, total_paid_cents, current_outstanding_cents, total_interest_cents,
			agreement_count, open_agreement_count, first_agreement_date, last_payment_date,
			last_calculated
		FROM credit_profiles
		WHERE debtor_id = $1
	`

	var p scoring.CreditProfile

	var risk string

	var firstAgreement, lastPayment sql.NullTime

	err := s.db.QueryRowContext(ctx, query, debtorID).Scan(
		&p.DebtorID, &p.Score, &risk,
		&p.PaidOnTimeCount, &p.PaidLateCount, &p.OverdueCount,
		&p.AverageDaysLate, &p.OnTimePaymentRate, &p.ConsecutiveOnTimePayments, &p.LongestDelayDays,
		&p.TotalLentCents, &p.TotalPaidCents, &p.CurrentOutstandingCents, &p.TotalInterestEarnedCents,
		&p.AgreementCount, &p.OpenAgreementCount, &firstAgreement, &lastPayment,
		&p.LastCalculated,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting credit profile: %w", err)
	}

	p.RiskLevel = scoring.RiskLevel(risk)
	p.FirstAgreementDate = firstAgreement.Time
	p.LastPaymentDate = lastPayment.Time

	return &p, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
