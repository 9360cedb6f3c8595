package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiado-app/fiado/internal/ledger"
	"github.com/fiado-app/fiado/internal/ledger/memstore"
)

// advancingClock returns a clock that moves forward one second per call, so
// payments recorded in sequence get distinct RecordedAt values.
func advancingClock(start time.Time) func() time.Time {
	current := start

	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTestService(t *testing.T, now time.Time) (*ledger.Service, *memstore.Store, *ledger.Bus) {
	t.Helper()

	store := memstore.New()
	bus := ledger.NewBus()
	svc := ledger.NewService(store, bus, ledger.WithNow(advancingClock(now)))

	return svc, store, bus
}

func createAgreement(t *testing.T, svc *ledger.Service, principal int64, count int, start time.Time) *ledger.Agreement {
	t.Helper()

	a, err := svc.CreateAgreement(context.Background(), ledger.CreateAgreementParams{
		DebtorID:         uuid.New(),
		PrincipalCents:   principal,
		InstallmentCount: count,
		CurrencyCode:     "BRL",
		StartDate:        start,
	})
	require.NoError(t, err)

	return a
}

func TestService_CreateAgreement(t *testing.T) {
	svc, store, _ := newTestService(t, date(2023, time.December, 1))

	a := createAgreement(t, svc, 120000, 3, date(2024, time.January, 1))

	require.Len(t, a.Installments, 3)
	assert.False(t, a.Closed)

	for i, inst := range a.Installments {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, int64(40000), inst.AmountCents)
		assert.Equal(t, int64(0), inst.PaidCents)
		assert.Equal(t, ledger.StatusPending, inst.Status)
	}

	assert.Equal(t, date(2024, time.January, 1), a.Installments[0].DueDate)
	assert.Equal(t, date(2024, time.February, 1), a.Installments[1].DueDate)
	assert.Equal(t, date(2024, time.March, 1), a.Installments[2].DueDate)

	stored, err := store.GetAgreement(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Installments, 3)
}

func TestService_RegisterPayment_PartialThenFull(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 50000, 1, date(2024, time.June, 1))
	instID := a.Installments[0].ID

	_, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: instID,
		AmountCents:   20000,
		Date:          date(2024, time.June, 1),
		Method:        ledger.MethodPix,
	})
	require.NoError(t, err)

	mid, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)

	inst := mid.Installment(instID)
	assert.Equal(t, ledger.StatusPartial, inst.Status)
	assert.Equal(t, int64(30000), inst.RemainingCents())
	assert.False(t, mid.Closed)

	_, err = svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: instID,
		AmountCents:   30000,
		Date:          date(2024, time.June, 2),
		Method:        ledger.MethodCash,
	})
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)

	inst = final.Installment(instID)
	assert.Equal(t, ledger.StatusPaid, inst.Status)
	assert.Equal(t, int64(0), inst.RemainingCents())

	// Last unpaid installment settled: the agreement closes.
	assert.True(t, final.Closed)
}

func TestService_RegisterPayment_Validation(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 50000, 1, date(2024, time.June, 1))
	instID := a.Installments[0].ID

	type testCase struct {
		name    string
		amount  int64
		wantErr error
	}

	tests := []testCase{
		{name: "ZeroAmount", amount: 0, wantErr: ledger.ErrInvalidAmount},
		{name: "NegativeAmount", amount: -100, wantErr: ledger.ErrInvalidAmount},
		{name: "ExceedsRemaining", amount: 50001, wantErr: ledger.ErrExceedsRemaining},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
				InstallmentID: instID,
				AmountCents:   tt.amount,
			})
			assert.ErrorIs(t, err, tt.wantErr)

			// Short-circuit: no side effects on the stored graph.
			stored, getErr := svc.Get(context.Background(), a.ID)
			require.NoError(t, getErr)
			assert.Equal(t, int64(0), stored.Installments[0].PaidCents)
			assert.Empty(t, stored.Installments[0].Payments)
		})
	}
}

func TestService_RegisterPayment_UnknownInstallment(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	_, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: uuid.New(),
		AmountCents:   100,
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestService_MarkInstallmentPaid(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 50000, 1, date(2024, time.June, 1))
	instID := a.Installments[0].ID

	p, err := svc.MarkInstallmentPaid(context.Background(), instID, ledger.MethodTransfer)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), p.AmountCents)

	stored, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, stored.Installments[0].Status)
	assert.True(t, stored.Closed)

	_, err = svc.MarkInstallmentPaid(context.Background(), instID, ledger.MethodTransfer)
	assert.ErrorIs(t, err, ledger.ErrAlreadyPaid)
}

func TestService_UndoLastPayment_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	// Due date in the future: undoing back to zero yields pending.
	a := createAgreement(t, svc, 50000, 1, date(2030, time.June, 1))
	instID := a.Installments[0].ID

	_, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: instID,
		AmountCents:   20000,
		Date:          date(2024, time.February, 1),
		Method:        ledger.MethodPix,
	})
	require.NoError(t, err)

	inst, err := svc.UndoLastPayment(context.Background(), instID)
	require.NoError(t, err)

	// Register-then-undo restores the pre-payment state.
	assert.Equal(t, int64(0), inst.PaidCents)
	assert.Equal(t, ledger.StatusPending, inst.Status)
	assert.Empty(t, inst.Payments)

	stored, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Installments[0].PaidCents)
	assert.Empty(t, stored.Installments[0].Payments)
}

func TestService_UndoLastPayment_PastDueBecomesOverdue(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.June, 15))

	a := createAgreement(t, svc, 50000, 1, date(2024, time.January, 1))
	instID := a.Installments[0].ID

	_, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: instID,
		AmountCents:   50000,
		Date:          date(2024, time.January, 1),
	})
	require.NoError(t, err)

	inst, err := svc.UndoLastPayment(context.Background(), instID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOverdue, inst.Status)
}

func TestService_UndoLastPayment_RemovesLatestDated(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 50000, 1, date(2030, time.June, 1))
	instID := a.Installments[0].ID

	_, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: instID,
		AmountCents:   10000,
		Date:          date(2024, time.March, 10),
	})
	require.NoError(t, err)

	early, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: instID,
		AmountCents:   5000,
		Date:          date(2024, time.February, 1),
	})
	require.NoError(t, err)

	// The March payment has the maximum date and goes first, even though the
	// February one was entered later.
	inst, err := svc.UndoLastPayment(context.Background(), instID)
	require.NoError(t, err)

	require.Len(t, inst.Payments, 1)
	assert.Equal(t, early.ID, inst.Payments[0].ID)
	assert.Equal(t, int64(5000), inst.PaidCents)
	assert.Equal(t, ledger.StatusPartial, inst.Status)
}

func TestService_UndoLastPayment_NoPayments(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 50000, 1, date(2024, time.June, 1))

	_, err := svc.UndoLastPayment(context.Background(), a.Installments[0].ID)
	assert.ErrorIs(t, err, ledger.ErrNoPayments)
}

func TestService_UndoReopensClosedAgreement(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 100000, 2, date(2030, time.June, 1))

	for _, inst := range a.Installments {
		_, err := svc.MarkInstallmentPaid(context.Background(), inst.ID, ledger.MethodPix)
		require.NoError(t, err)
	}

	closed, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.True(t, closed.Closed)

	inst, err := svc.UndoLastPayment(context.Background(), a.Installments[1].ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, inst.Status)

	reopened, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.False(t, reopened.Closed)
}

func TestService_OverrideInstallmentStatus(t *testing.T) {
	svc, _, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 100000, 2, date(2030, time.June, 1))
	instID := a.Installments[0].ID

	// The escape hatch sets status without touching paid amounts: a paid
	// installment with an outstanding balance is allowed here.
	inst, err := svc.OverrideInstallmentStatus(context.Background(), instID, ledger.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, inst.Status)
	assert.Equal(t, int64(0), inst.PaidCents)

	// Closure follows statuses, not amounts: overriding the second one to
	// paid closes the agreement.
	_, err = svc.OverrideInstallmentStatus(context.Background(), a.Installments[1].ID, ledger.StatusPaid)
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Closed)

	_, err = svc.OverrideInstallmentStatus(context.Background(), instID, ledger.InstallmentStatus("bogus"))
	assert.ErrorIs(t, err, ledger.ErrInvalidStatus)
}

func TestService_CommitFailureLeavesNoPartialState(t *testing.T) {
	svc, store, _ := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 50000, 1, date(2024, time.June, 1))
	instID := a.Installments[0].ID

	store.CommitErr = errors.New("disk full")

	_, err := svc.RegisterPayment(context.Background(), ledger.RegisterPaymentParams{
		InstallmentID: instID,
		AmountCents:   20000,
		Date:          date(2024, time.June, 1),
	})
	require.Error(t, err)

	// The failed operation must not leave an incremented paid amount or a
	// dangling payment behind.
	stored, getErr := svc.Get(context.Background(), a.ID)
	require.NoError(t, getErr)
	assert.Equal(t, int64(0), stored.Installments[0].PaidCents)
	assert.Equal(t, ledger.StatusPending, stored.Installments[0].Status)
	assert.Empty(t, stored.Installments[0].Payments)
	assert.False(t, stored.Closed)
}

func TestService_PublishesLedgerEvents(t *testing.T) {
	svc, _, bus := newTestService(t, date(2024, time.January, 1))

	ch, cancel := bus.Subscribe(16)
	defer cancel()

	a := createAgreement(t, svc, 50000, 1, date(2030, time.June, 1))
	instID := a.Installments[0].ID

	scheduled := <-ch
	assert.Equal(t, ledger.EventInstallmentScheduled, scheduled.Kind)
	assert.Equal(t, a.ID, scheduled.AgreementID)
	assert.Equal(t, 1, scheduled.InstallmentNumber)

	_, err := svc.MarkInstallmentPaid(context.Background(), instID, ledger.MethodPix)
	require.NoError(t, err)

	paid := <-ch
	assert.Equal(t, ledger.EventPaymentRegistered, paid.Kind)
	assert.Equal(t, ledger.StatusPaid, paid.InstallmentStatus)
	assert.True(t, paid.AgreementClosed)

	_, err = svc.UndoLastPayment(context.Background(), instID)
	require.NoError(t, err)

	undone := <-ch
	assert.Equal(t, ledger.EventPaymentUndone, undone.Kind)
	assert.False(t, undone.AgreementClosed)
}

func TestService_DeleteAgreement(t *testing.T) {
	svc, _, bus := newTestService(t, date(2024, time.January, 1))

	a := createAgreement(t, svc, 50000, 1, date(2024, time.June, 1))

	ch, cancel := bus.Subscribe(4)
	defer cancel()

	require.NoError(t, svc.Delete(context.Background(), a.ID))

	_, err := svc.Get(context.Background(), a.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	e := <-ch
	assert.Equal(t, ledger.EventAgreementDeleted, e.Kind)

	assert.ErrorIs(t, svc.Delete(context.Background(), a.ID), ledger.ErrNotFound)
}
