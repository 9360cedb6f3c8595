package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("agreement not found")
	ErrInstallmentMissing = errors.New("installment not found")
	ErrInvalidAmount      = errors.New("payment amount must be positive")
	ErrExceedsRemaining   = errors.New("payment amount exceeds remaining amount")
	ErrAlreadyPaid        = errors.New("installment is already fully paid")
	ErrNoPayments         = errors.New("installment has no payments to undo")
	ErrInvalidStatus      = errors.New("invalid installment status")
)

// InstallmentStatus is the lifecycle state of an installment.
//
// StatusOverdue is a manual override, distinct from the derived IsOverdue
// condition: an installment stays pending or partial when its due date passes,
// and only the undo path or an explicit override sets the overdue status.
type InstallmentStatus string

const (
	StatusPending InstallmentStatus = "pending"
	StatusPartial InstallmentStatus = "partial"
	StatusPaid    InstallmentStatus = "paid"
	StatusOverdue InstallmentStatus = "overdue"
)

func (s InstallmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid, StatusOverdue:
		return true
	}

	return false
}

// PaymentMethod records how a payment was made. It carries no behavior.
type PaymentMethod string

const (
	MethodPix      PaymentMethod = "pix"
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPix, MethodCash, MethodTransfer, MethodOther:
		return true
	}

	return false
}

// Agreement is a multi-installment debt owed by one debtor.
type Agreement struct {
	ID                  uuid.UUID
	DebtorID            uuid.UUID
	Title               string
	PrincipalCents      int64
	CurrencyCode        string
	StartDate           time.Time
	InstallmentCount    int
	MonthlyInterestRate float64
	Closed              bool
	CreatedAt           time.Time
	Installments        []*Installment // ordered by Number
}

// AllPaid reports whether the agreement should be closed: at least one
// installment and every one of them fully paid. An agreement with zero
// installments is never closed.
func (a *Agreement) AllPaid() bool {
	if len(a.Installments) == 0 {
		return false
	}

	for _, inst := range a.Installments {
		if inst.Status != StatusPaid {
			return false
		}
	}

	return true
}

// Installment looks up an installment by ID. Returns nil when absent.
func (a *Agreement) Installment(id uuid.UUID) *Installment {
	for _, inst := range a.Installments {
		if inst.ID == id {
			return inst
		}
	}

	return nil
}

// TotalCents is the sum of all installment face values. For interest-bearing
// agreements this exceeds the principal by the flat markup.
func (a *Agreement) TotalCents() int64 {
	var total int64
	for _, inst := range a.Installments {
		total += inst.AmountCents
	}

	return total
}

// Installment is one scheduled obligation within an agreement.
type Installment struct {
	ID          uuid.UUID
	AgreementID uuid.UUID
	Number      int // 1-based, unique within the agreement
	DueDate     time.Time
	AmountCents int64
	PaidCents   int64
	Status      InstallmentStatus
	Payments    []*Payment
}

// RemainingCents is the unpaid face value, clamped at zero.
func (i *Installment) RemainingCents() int64 {
	if r := i.AmountCents - i.PaidCents; r > 0 {
		return r
	}

	return 0
}

// IsOverdue is the derived overdue condition: past due and not fully paid.
// Independent of the manual StatusOverdue.
func (i *Installment) IsOverdue(ref time.Time) bool {
	return i.Status != StatusPaid && i.DueDate.Before(ref)
}

// LatestPayment returns the payment removed by undo: maximum date, ties broken
// by RecordedAt (most recently entered wins) and finally by ID so the choice
// is a total order regardless of slice ordering. Returns nil when empty.
func (i *Installment) LatestPayment() *Payment {
	var latest *Payment

	for _, p := range i.Payments {
		if latest == nil || paymentLess(latest, p) {
			latest = p
		}
	}

	return latest
}

// EarliestPayment returns the earliest-dated payment, used to decide whether
// a paid installment was settled on time. Returns nil when empty.
func (i *Installment) EarliestPayment() *Payment {
	var earliest *Payment

	for _, p := range i.Payments {
		if earliest == nil || paymentLess(p, earliest) {
			earliest = p
		}
	}

	return earliest
}

func paymentLess(a, b *Payment) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}

	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.Before(b.RecordedAt)
	}

	return a.ID.String() < b.ID.String()
}

// statusAfterPayment derives the status after PaidCents was incremented.
// A zero paid amount leaves the status unchanged.
func (i *Installment) statusAfterPayment() InstallmentStatus {
	switch {
	case i.PaidCents >= i.AmountCents:
		return StatusPaid
	case i.PaidCents > 0:
		return StatusPartial
	}

	return i.Status
}

// statusAfterUndo derives the status after PaidCents was decremented.
func (i *Installment) statusAfterUndo(today time.Time) InstallmentStatus {
	switch {
	case i.PaidCents == 0 && i.DueDate.Before(today):
		return StatusOverdue
	case i.PaidCents == 0:
		return StatusPending
	case i.PaidCents < i.AmountCents:
		return StatusPartial
	}

	return i.Status
}

// Payment is a recorded settlement against one installment. Payments are
// append-only except for the undo path.
type Payment struct {
	ID            uuid.UUID
	InstallmentID uuid.UUID
	Date          time.Time
	AmountCents   int64
	Method        PaymentMethod
	Note          string
	RecordedAt    time.Time
}
