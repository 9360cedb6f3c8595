package analytics_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiado-app/fiado/internal/analytics"
	"github.com/fiado-app/fiado/internal/ledger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyCashFlow(t *testing.T) {
	a := &ledger.Agreement{
		ID: uuid.New(),
		Installments: []*ledger.Installment{
			{
				ID:          uuid.New(),
				Number:      1,
				DueDate:     date(2024, time.January, 10),
				AmountCents: 40000,
				PaidCents:   40000,
				Status:      ledger.StatusPaid,
				Payments: []*ledger.Payment{
					{ID: uuid.New(), Date: date(2024, time.January, 8), AmountCents: 40000},
				},
			},
			{
				ID:          uuid.New(),
				Number:      2,
				DueDate:     date(2024, time.February, 10),
				AmountCents: 40000,
				PaidCents:   15000,
				Status:      ledger.StatusPartial,
				Payments: []*ledger.Payment{
					// Paid in March against a February installment: received
					// lands in March, outstanding stays on February.
					{ID: uuid.New(), Date: date(2024, time.March, 2), AmountCents: 15000},
				},
			},
			{
				ID:          uuid.New(),
				Number:      3,
				DueDate:     date(2024, time.March, 10),
				AmountCents: 40000,
				Status:      ledger.StatusPending,
			},
		},
	}

	flows := analytics.MonthlyCashFlow([]*ledger.Agreement{a}, date(2024, time.January, 15), date(2024, time.April, 20))
	require.Len(t, flows, 4)

	jan, feb, mar, apr := flows[0], flows[1], flows[2], flows[3]

	assert.Equal(t, date(2024, time.January, 1), jan.Month)
	assert.Equal(t, int64(40000), jan.ExpectedCents)
	assert.Equal(t, int64(40000), jan.ReceivedCents)
	assert.Equal(t, int64(0), jan.OutstandingCents)

	assert.Equal(t, int64(40000), feb.ExpectedCents)
	assert.Equal(t, int64(0), feb.ReceivedCents)
	assert.Equal(t, int64(25000), feb.OutstandingCents)

	assert.Equal(t, int64(40000), mar.ExpectedCents)
	assert.Equal(t, int64(15000), mar.ReceivedCents)
	assert.Equal(t, int64(40000), mar.OutstandingCents)

	// No activity in April, but the month is still present.
	assert.Equal(t, date(2024, time.April, 1), apr.Month)
	assert.Zero(t, apr.ExpectedCents)
	assert.Zero(t, apr.ReceivedCents)
	assert.Zero(t, apr.OutstandingCents)
}

func TestMonthlyCashFlow_SingleMonthWindow(t *testing.T) {
	a := &ledger.Agreement{
		ID: uuid.New(),
		Installments: []*ledger.Installment{
			{ID: uuid.New(), Number: 1, DueDate: date(2024, time.June, 5), AmountCents: 12000},
			{ID: uuid.New(), Number: 2, DueDate: date(2024, time.July, 5), AmountCents: 12000},
		},
	}

	flows := analytics.MonthlyCashFlow([]*ledger.Agreement{a}, date(2024, time.June, 1), date(2024, time.June, 30))
	require.Len(t, flows, 1)
	assert.Equal(t, int64(12000), flows[0].ExpectedCents)
}

func TestMonthlyCashFlow_InvertedWindow(t *testing.T) {
	flows := analytics.MonthlyCashFlow(nil, date(2024, time.June, 1), date(2024, time.March, 1))
	assert.Nil(t, flows)
}

func TestMonthlyCashFlow_NoAgreements(t *testing.T) {
	flows := analytics.MonthlyCashFlow(nil, date(2024, time.January, 1), date(2024, time.February, 1))
	require.Len(t, flows, 2)

	for _, f := range flows {
		assert.Zero(t, f.ExpectedCents)
		assert.Zero(t, f.ReceivedCents)
		assert.Zero(t, f.OutstandingCents)
	}
}
