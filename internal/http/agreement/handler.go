package agreement

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/ledger"
	"github.com/fiado-app/fiado/internal/schedule"
)

type Handler struct {
	svc             *ledger.Service
	defaultCurrency string
}

func NewHandler(svc *ledger.Service, defaultCurrency string) *Handler {
	return &Handler{svc: svc, defaultCurrency: defaultCurrency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

// DebtorRoutes mounts under /debtors: the debtor-scoped agreement list.
func (h *Handler) DebtorRoutes(r chi.Router) {
	r.Get("/{id}/agreements", h.listForDebtor)
}

// InstallmentRoutes mounts the payment operations, addressed by installment.
func (h *Handler) InstallmentRoutes(r chi.Router) {
	r.Post("/{id}/payments", h.registerPayment)
	r.Post("/{id}/payments/undo", h.undoPayment)
	r.Post("/{id}/mark-paid", h.markPaid)
	r.Put("/{id}/status", h.overrideStatus)
}

type createAgreementRequest struct {
	DebtorID            uuid.UUID `json:"debtor_id"`
	Title               string    `json:"title"`
	PrincipalCents      int64     `json:"principal_cents"`
	InstallmentCount    int       `json:"installment_count"`
	MonthlyInterestRate float64   `json:"monthly_interest_rate"`
	CurrencyCode        string    `json:"currency_code"`
	StartDate           time.Time `json:"start_date"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAgreementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	currency := req.CurrencyCode
	if currency == "" {
		currency = h.defaultCurrency
	}

	a, err := h.svc.CreateAgreement(r.Context(), ledger.CreateAgreementParams{
		DebtorID:            req.DebtorID,
		Title:               req.Title,
		PrincipalCents:      req.PrincipalCents,
		InstallmentCount:    req.InstallmentCount,
		MonthlyInterestRate: req.MonthlyInterestRate,
		CurrencyCode:        currency,
		StartDate:           req.StartDate,
	})
	if err != nil {
		if isScheduleError(err) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(a, time.Now())); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	debtorID, err := uuid.Parse(r.URL.Query().Get("debtor_id"))
	if err != nil {
		http.Error(w, "debtor_id is required", http.StatusBadRequest)
		return
	}

	agreements, err := h.svc.ListByDebtor(r.Context(), debtorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(agreements, time.Now())); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) listForDebtor(w http.ResponseWriter, r *http.Request) {
	debtorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	agreements, err := h.svc.ListByDebtor(r.Context(), debtorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(agreements, time.Now())); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "agreement not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(a, time.Now())); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "agreement not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type registerPaymentRequest struct {
	AmountCents int64                `json:"amount_cents"`
	Date        time.Time            `json:"date"`
	Method      ledger.PaymentMethod `json:"method"`
	Note        string               `json:"note"`
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req registerPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.RegisterPayment(r.Context(), ledger.RegisterPaymentParams{
		InstallmentID: id,
		AmountCents:   req.AmountCents,
		Date:          req.Date,
		Method:        req.Method,
		Note:          req.Note,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(paymentResponse{
		ID:          p.ID,
		Date:        p.Date,
		AmountCents: p.AmountCents,
		Method:      p.Method,
		Note:        p.Note,
		RecordedAt:  p.RecordedAt,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) undoPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	inst, err := h.svc.UndoLastPayment(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toInstallmentResponse(inst, time.Now())); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type markPaidRequest struct {
	Method ledger.PaymentMethod `json:"method"`
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req markPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.MarkInstallmentPaid(r.Context(), id, req.Method)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(paymentResponse{
		ID:          p.ID,
		Date:        p.Date,
		AmountCents: p.AmountCents,
		Method:      p.Method,
		Note:        p.Note,
		RecordedAt:  p.RecordedAt,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type overrideStatusRequest struct {
	Status ledger.InstallmentStatus `json:"status"`
}

// overrideStatus is the unsafe manual correction: it bypasses amount/status
// consistency checks.
func (h *Handler) overrideStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req overrideStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inst, err := h.svc.OverrideInstallmentStatus(r.Context(), id, req.Status)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toInstallmentResponse(inst, time.Now())); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, ledger.ErrInstallmentMissing):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrExceedsRemaining),
		errors.Is(err, ledger.ErrAlreadyPaid),
		errors.Is(err, ledger.ErrNoPayments),
		errors.Is(err, ledger.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func isScheduleError(err error) bool {
	return errors.Is(err, schedule.ErrInvalidPrincipal) ||
		errors.Is(err, schedule.ErrInvalidCount) ||
		errors.Is(err, schedule.ErrInvalidInterestRate) ||
		errors.Is(err, schedule.ErrPrincipalTooSmall)
}
