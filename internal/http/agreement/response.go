package agreement

import (
	"time"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/ledger"
)

type agreementResponse struct {
	ID                  uuid.UUID             `json:"id"`
	DebtorID            uuid.UUID             `json:"debtor_id"`
	Title               string                `json:"title,omitempty"`
	PrincipalCents      int64                 `json:"principal_cents"`
	CurrencyCode        string                `json:"currency_code"`
	StartDate           time.Time             `json:"start_date"`
	InstallmentCount    int                   `json:"installment_count"`
	MonthlyInterestRate float64               `json:"monthly_interest_rate"`
	Closed              bool                  `json:"closed"`
	CreatedAt           time.Time             `json:"created_at"`
	Installments        []installmentResponse `json:"installments"`
}

type installmentResponse struct {
	ID             uuid.UUID                `json:"id"`
	Number         int                      `json:"number"`
	DueDate        time.Time                `json:"due_date"`
	AmountCents    int64                    `json:"amount_cents"`
	PaidCents      int64                    `json:"paid_cents"`
	RemainingCents int64                    `json:"remaining_cents"`
	Status         ledger.InstallmentStatus `json:"status"`
	Overdue        bool                     `json:"overdue"`
	Payments       []paymentResponse        `json:"payments,omitempty"`
}

type paymentResponse struct {
	ID          uuid.UUID            `json:"id"`
	Date        time.Time            `json:"date"`
	AmountCents int64                `json:"amount_cents"`
	Method      ledger.PaymentMethod `json:"method"`
	Note        string               `json:"note,omitempty"`
	RecordedAt  time.Time            `json:"recorded_at"`
}

func toResponse(a *ledger.Agreement, now time.Time) agreementResponse {
	resp := agreementResponse{
		ID:                  a.ID,
		DebtorID:            a.DebtorID,
		Title:               a.Title,
		PrincipalCents:      a.PrincipalCents,
		CurrencyCode:        a.CurrencyCode,
		StartDate:           a.StartDate,
		InstallmentCount:    a.InstallmentCount,
		MonthlyInterestRate: a.MonthlyInterestRate,
		Closed:              a.Closed,
		CreatedAt:           a.CreatedAt,
		Installments:        make([]installmentResponse, len(a.Installments)),
	}

	for i, inst := range a.Installments {
		resp.Installments[i] = toInstallmentResponse(inst, now)
	}

	return resp
}

func toInstallmentResponse(inst *ledger.Installment, now time.Time) installmentResponse {
	ir := installmentResponse{
		ID:             inst.ID,
		Number:         inst.Number,
		DueDate:        inst.DueDate,
		AmountCents:    inst.AmountCents,
		PaidCents:      inst.PaidCents,
		RemainingCents: inst.RemainingCents(),
		Status:         inst.Status,
		Overdue:        inst.IsOverdue(now),
	}

	for _, p := range inst.Payments {
		ir.Payments = append(ir.Payments, paymentResponse{
			ID:          p.ID,
			Date:        p.Date,
			AmountCents: p.AmountCents,
			Method:      p.Method,
			Note:        p.Note,
			RecordedAt:  p.RecordedAt,
		})
	}

	return ir
}

func toResponseList(agreements []*ledger.Agreement, now time.Time) []agreementResponse {
	resp := make([]agreementResponse, len(agreements))
	for i, a := range agreements {
		resp[i] = toResponse(a, now)
	}

	return resp
}
