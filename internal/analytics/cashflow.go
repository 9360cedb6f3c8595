// Package analytics aggregates the validated ledger into month-over-month
// views. It is a pure read pass; nothing here mutates or revalidates.
package analytics

import (
	"time"

	"github.com/fiado-app/fiado/internal/ledger"
)

// MonthFlow is one calendar month of cash flow: what was scheduled to come
// in (installment face values by due date), what actually came in (payments
// by date), and what of that month's installments is still outstanding.
type MonthFlow struct {
	Month            time.Time // first day of the month, UTC
	ExpectedCents    int64
	ReceivedCents    int64
	OutstandingCents int64
}

// MonthlyCashFlow aggregates the agreements between from and to inclusive.
// Months with no activity are present with zero values so charts stay
// contiguous.
func MonthlyCashFlow(agreements []*ledger.Agreement, from, to time.Time) []MonthFlow {
	start := monthStart(from)
	end := monthStart(to)

	if end.Before(start) {
		return nil
	}

	flows := make(map[time.Time]*MonthFlow)

	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		flows[m] = &MonthFlow{Month: m}
	}

	for _, a := range agreements {
		for _, inst := range a.Installments {
			if f, ok := flows[monthStart(inst.DueDate)]; ok {
				f.ExpectedCents += inst.AmountCents
				f.OutstandingCents += inst.RemainingCents()
			}

			for _, p := range inst.Payments {
				if f, ok := flows[monthStart(p.Date)]; ok {
					f.ReceivedCents += p.AmountCents
				}
			}
		}
	}

	out := make([]MonthFlow, 0, len(flows))

	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		out = append(out, *flows[m])
	}

	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
