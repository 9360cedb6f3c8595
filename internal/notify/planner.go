// Package notify keeps the set of due-date reminders in sync with the
// ledger. It consumes ledger events after commit; the delivery mechanics
// (local notifications, push) live outside this core.
package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fiado-app/fiado/internal/ledger"
)

// Reminder is one desired notification: "installment N is due at DueAt".
type Reminder struct {
	DebtorID      uuid.UUID
	AgreementID   uuid.UUID
	InstallmentID uuid.UUID
	Number        int
	DueAt         time.Time
}

// Planner derives the desired reminder set from ledger events. Paid
// installments and closed agreements lose their reminders; undo and reopen
// bring them back. The planner never blocks the ledger.
type Planner struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]Reminder // keyed by installment ID
	now       func() time.Time
}

type Option func(*Planner)

// WithNow overrides the reference clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		reminders: make(map[uuid.UUID]Reminder),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run consumes events until the context is cancelled or the channel closes.
func (p *Planner) Run(ctx context.Context, events <-chan ledger.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}

			p.Apply(e)
		}
	}
}

// Apply updates the reminder set for one event.
func (p *Planner) Apply(e ledger.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Kind == ledger.EventAgreementDeleted || e.AgreementClosed {
		p.cancelAgreement(e.AgreementID)
		return
	}

	// A paid installment needs no reminder; anything else still owed gets
	// one if its due date is in the future. Past-due installments are the
	// overdue view's concern, not a reminder's.
	if e.InstallmentStatus == ledger.StatusPaid || !e.DueDate.After(p.now()) {
		delete(p.reminders, e.InstallmentID)
		return
	}

	p.reminders[e.InstallmentID] = Reminder{
		DebtorID:      e.DebtorID,
		AgreementID:   e.AgreementID,
		InstallmentID: e.InstallmentID,
		Number:        e.InstallmentNumber,
		DueAt:         e.DueDate,
	}
}

// Pending returns the desired reminders ordered by due date.
func (p *Planner) Pending() []Reminder {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Reminder, 0, len(p.reminders))
	for _, r := range p.reminders {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DueAt.Before(out[j].DueAt)
	})

	return out
}

// cancelAgreement must be called with the lock held.
func (p *Planner) cancelAgreement(agreementID uuid.UUID) {
	for id, r := range p.reminders {
		if r.AgreementID == agreementID {
			delete(p.reminders, id)
		}
	}
}
