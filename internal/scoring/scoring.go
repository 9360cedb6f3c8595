// Package scoring derives a behavioral credit score from a debtor's full
// ledger history. The calculator is a pure read-then-replace pass: it never
// mutates the ledger, and the ledger never calls it.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/ledger"
)

// NeutralScore is assigned to debtors with no agreement history.
const NeutralScore = 50

// CreditProfile is the cached, recomputable score for one debtor.
type CreditProfile struct {
	DebtorID  uuid.UUID
	Score     int // 0-100
	RiskLevel RiskLevel

	PaidOnTimeCount           int
	PaidLateCount             int
	OverdueCount              int // current exposure, not lifetime late count
	AverageDaysLate           float64
	OnTimePaymentRate         float64
	ConsecutiveOnTimePayments int
	LongestDelayDays          int

	TotalLentCents           int64
	TotalPaidCents           int64
	CurrentOutstandingCents  int64
	TotalInterestEarnedCents int64

	AgreementCount     int
	OpenAgreementCount int
	FirstAgreementDate time.Time
	LastPaymentDate    time.Time

	LastCalculated time.Time
}

// Score component weights. They sum to 100 and each component is bounded
// into its share before summing, so no single metric can overwhelm the rest.
const (
	weightOnTimeRate   = 40.0
	weightAverageDelay = 25.0
	weightOverdue      = 20.0
	weightRelationship = 10.0
	weightStreak       = 5.0

	// Saturation points: a 30-day average delay, 5 concurrently overdue
	// installments, a 12-month relationship and a 3-installment streak each
	// exhaust their component.
	maxAverageDelayDays = 30.0
	maxOverdueCount     = 5.0
	maxRelationshipMon  = 12.0
	maxStreak           = 3.0
)

// Calculate computes the profile over the debtor's lifetime history, closed
// agreements included. Zero agreements yield the neutral score.
func Calculate(debtorID uuid.UUID, agreements []*ledger.Agreement, now time.Time) *CreditProfile {
	profile := &CreditProfile{
		DebtorID:       debtorID,
		LastCalculated: now,
	}

	if len(agreements) == 0 {
		profile.Score = NeutralScore
		profile.RiskLevel = Classify(profile.Score)

		return profile
	}

	profile.AgreementCount = len(agreements)

	for _, a := range agreements {
		if !a.Closed {
			profile.OpenAgreementCount++
		}

		if profile.FirstAgreementDate.IsZero() || a.StartDate.Before(profile.FirstAgreementDate) {
			profile.FirstAgreementDate = a.StartDate
		}

		if a.MonthlyInterestRate > 0 {
			profile.TotalInterestEarnedCents += a.TotalCents() - a.PrincipalCents
		}
	}

	installments := collectByDueDate(agreements)

	var latenessPool []int

	for _, inst := range installments {
		profile.TotalLentCents += inst.AmountCents
		profile.TotalPaidCents += inst.PaidCents
		profile.CurrentOutstandingCents += inst.RemainingCents()

		for _, p := range inst.Payments {
			if p.Date.After(profile.LastPaymentDate) {
				profile.LastPaymentDate = p.Date
			}
		}

		switch {
		case inst.Status == ledger.StatusPaid:
			first := inst.EarliestPayment()
			if first == nil || !first.Date.After(inst.DueDate) {
				profile.PaidOnTimeCount++
				profile.ConsecutiveOnTimePayments++
			} else {
				profile.PaidLateCount++
				profile.ConsecutiveOnTimePayments = 0

				if days := daysBetween(inst.DueDate, first.Date); days > 0 {
					latenessPool = append(latenessPool, days)
				}
			}
		case inst.DueDate.Before(now) && inst.RemainingCents() > 0:
			profile.OverdueCount++
			profile.ConsecutiveOnTimePayments = 0

			if days := daysBetween(inst.DueDate, now); days > 0 {
				latenessPool = append(latenessPool, days)
			}
		default:
			profile.ConsecutiveOnTimePayments = 0
		}
	}

	var totalLate int

	for _, days := range latenessPool {
		totalLate += days

		if days > profile.LongestDelayDays {
			profile.LongestDelayDays = days
		}
	}

	if len(latenessPool) > 0 {
		profile.AverageDaysLate = float64(totalLate) / float64(len(latenessPool))
	}

	if settled := profile.PaidOnTimeCount + profile.PaidLateCount; settled > 0 {
		profile.OnTimePaymentRate = float64(profile.PaidOnTimeCount) / float64(settled)
	}

	profile.Score = compositeScore(profile, now)
	profile.RiskLevel = Classify(profile.Score)

	return profile
}

func compositeScore(p *CreditProfile, now time.Time) int {
	sum := p.OnTimePaymentRate * weightOnTimeRate

	sum += (1 - clamp01(p.AverageDaysLate/maxAverageDelayDays)) * weightAverageDelay
	sum += (1 - clamp01(float64(p.OverdueCount)/maxOverdueCount)) * weightOverdue

	months := monthsBetween(p.FirstAgreementDate, now)
	sum += clamp01(float64(months)/maxRelationshipMon) * weightRelationship

	sum += clamp01(float64(p.ConsecutiveOnTimePayments)/maxStreak) * weightStreak

	score := int(math.Round(sum))
	if score < 0 {
		score = 0
	}

	if score > 100 {
		score = 100
	}

	return score
}

// collectByDueDate flattens every installment across the agreements into
// due-date order, so the on-time streak walks payments chronologically.
func collectByDueDate(agreements []*ledger.Agreement) []*ledger.Installment {
	var installments []*ledger.Installment

	for _, a := range agreements {
		installments = append(installments, a.Installments...)
	}

	sort.SliceStable(installments, func(i, j int) bool {
		if !installments[i].DueDate.Equal(installments[j].DueDate) {
			return installments[i].DueDate.Before(installments[j].DueDate)
		}

		return installments[i].Number < installments[j].Number
	})

	return installments
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func monthsBetween(from, to time.Time) int {
	if from.IsZero() || to.Before(from) {
		return 0
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}

	if months < 0 {
		return 0
	}

	return months
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
