package profile

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/analytics"
	"github.com/fiado-app/fiado/internal/ledger"
	"github.com/fiado-app/fiado/internal/scoring"
)

type Handler struct {
	scores *scoring.Service
	ledger *ledger.Service
}

func NewHandler(scores *scoring.Service, ledgerSvc *ledger.Service) *Handler {
	return &Handler{scores: scores, ledger: ledgerSvc}
}

// Routes mounts under /debtors alongside the debtor CRUD routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}/credit-profile", h.creditProfile)
	r.Get("/{id}/cash-flow", h.cashFlow)
}

type profileResponse struct {
	DebtorID                  uuid.UUID         `json:"debtor_id"`
	Score                     int               `json:"score"`
	RiskLevel                 scoring.RiskLevel `json:"risk_level"`
	PaidOnTimeCount           int               `json:"paid_on_time_count"`
	PaidLateCount             int               `json:"paid_late_count"`
	OverdueCount              int               `json:"overdue_count"`
	AverageDaysLate           float64           `json:"average_days_late"`
	OnTimePaymentRate         float64           `json:"on_time_payment_rate"`
	ConsecutiveOnTimePayments int               `json:"consecutive_on_time_payments"`
	LongestDelayDays          int               `json:"longest_delay_days"`
	TotalLentCents            int64             `json:"total_lent_cents"`
	TotalPaidCents            int64             `json:"total_paid_cents"`
	CurrentOutstandingCents   int64             `json:"current_outstanding_cents"`
	TotalInterestEarnedCents  int64             `json:"total_interest_earned_cents"`
	AgreementCount            int               `json:"agreement_count"`
	OpenAgreementCount        int               `json:"open_agreement_count"`
	FirstAgreementDate        *time.Time        `json:"first_agreement_date,omitempty"`
	LastPaymentDate           *time.Time        `json:"last_payment_date,omitempty"`
	LastCalculated            time.Time         `json:"last_calculated"`
}

func toProfileResponse(p *scoring.CreditProfile) profileResponse {
	resp := profileResponse{
		DebtorID:                  p.DebtorID,
		Score:                     p.Score,
		RiskLevel:                 p.RiskLevel,
		PaidOnTimeCount:           p.PaidOnTimeCount,
		PaidLateCount:             p.PaidLateCount,
		OverdueCount:              p.OverdueCount,
		AverageDaysLate:           p.AverageDaysLate,
		OnTimePaymentRate:         p.OnTimePaymentRate,
		ConsecutiveOnTimePayments: p.ConsecutiveOnTimePayments,
		LongestDelayDays:          p.LongestDelayDays,
		TotalLentCents:            p.TotalLentCents,
		TotalPaidCents:            p.TotalPaidCents,
		CurrentOutstandingCents:   p.CurrentOutstandingCents,
		TotalInterestEarnedCents:  p.TotalInterestEarnedCents,
		AgreementCount:            p.AgreementCount,
		OpenAgreementCount:        p.OpenAgreementCount,
		LastCalculated:            p.LastCalculated,
	}

	if !p.FirstAgreementDate.IsZero() {
		t := p.FirstAgreementDate
		resp.FirstAgreementDate = &t
	}

	if !p.LastPaymentDate.IsZero() {
		t := p.LastPaymentDate
		resp.LastPaymentDate = &t
	}

	return resp
}

func (h *Handler) creditProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var p *scoring.CreditProfile

	if r.URL.Query().Get("recalculate") == "true" {
		p, err = h.scores.Recalculate(r.Context(), id)
	} else {
		p, err = h.scores.Profile(r.Context(), id)
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toProfileResponse(p)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type monthFlowResponse struct {
	Month            string `json:"month"`
	ExpectedCents    int64  `json:"expected_cents"`
	ReceivedCents    int64  `json:"received_cents"`
	OutstandingCents int64  `json:"outstanding_cents"`
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	now := time.Now()
	from := now.AddDate(0, -5, 0)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		if t, err := time.Parse("2006-01", s); err == nil {
			from = t
		}
	}

	if s := r.URL.Query().Get("to"); s != "" {
		if t, err := time.Parse("2006-01", s); err == nil {
			to = t
		}
	}

	agreements, err := h.ledger.ListByDebtor(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	flows := analytics.MonthlyCashFlow(agreements, from, to)

	resp := make([]monthFlowResponse, len(flows))
	for i, f := range flows {
		resp[i] = monthFlowResponse{
			Month:            f.Month.Format("2006-01"),
			ExpectedCents:    f.ExpectedCents,
			ReceivedCents:    f.ReceivedCents,
			OutstandingCents: f.OutstandingCents,
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
