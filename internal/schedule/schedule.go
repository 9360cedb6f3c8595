// Package schedule turns a principal into an ordered installment plan at
// agreement-creation time. All amounts are integer cents.
package schedule

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrincipal    = errors.New("principal must be positive")
	ErrInvalidCount        = errors.New("installment count must be at least 1")
	ErrInvalidInterestRate = errors.New("monthly interest rate must not be negative")
	ErrPrincipalTooSmall   = errors.New("principal is smaller than one cent per installment")
)

// Spec describes one installment to be created: its 1-based number, due date
// and face value.
type Spec struct {
	Number      int
	DueDate     time.Time
	AmountCents int64
}

// Plan generates n installment specs. Due dates advance by calendar months
// from firstDue. Amounts split the total evenly at cent precision, with the
// final installment absorbing the rounding remainder so the amounts sum to
// the total exactly.
//
// With a zero rate the total is the principal. With a positive monthly rate
// the total carries a flat markup of principal x rate x n (simple interest,
// not amortized compounding).
func Plan(principalCents int64, count int, monthlyRate float64, firstDue time.Time) ([]Spec, error) {
	if principalCents <= 0 {
		return nil, ErrInvalidPrincipal
	}

	if count < 1 {
		return nil, ErrInvalidCount
	}

	if monthlyRate < 0 {
		return nil, ErrInvalidInterestRate
	}

	if principalCents < int64(count) {
		return nil, ErrPrincipalTooSmall
	}

	total := principalCents
	if monthlyRate > 0 {
		markup := decimal.NewFromInt(principalCents).
			Mul(decimal.NewFromFloat(monthlyRate)).
			Mul(decimal.NewFromInt(int64(count))).
			Round(0).IntPart()
		total += markup
	}

	per := decimal.NewFromInt(total).
		Div(decimal.NewFromInt(int64(count))).
		Round(0).IntPart()

	last := total - int64(count-1)*per
	if last <= 0 {
		// Rounding up ate the remainder; fall back to floor division so the
		// final installment stays positive.
		per = total / int64(count)
		last = total - int64(count-1)*per
	}

	specs := make([]Spec, count)

	for i := 0; i < count; i++ {
		amount := per
		if i == count-1 {
			amount = last
		}

		specs[i] = Spec{
			Number:      i + 1,
			DueDate:     firstDue.AddDate(0, i, 0),
			AmountCents: amount,
		}
	}

	return specs, nil
}
