package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies what a ledger event describes.
type EventKind string

const (
	EventInstallmentScheduled EventKind = "installment_scheduled"
	EventPaymentRegistered    EventKind = "payment_registered"
	EventPaymentUndone        EventKind = "payment_undone"
	EventStatusOverridden     EventKind = "status_overridden"
	EventAgreementDeleted     EventKind = "agreement_deleted"
)

// Event is published after a successful commit that recorded a payment or
// changed an installment's status or the agreement's closed flag. It carries
// everything a reminder scheduler needs to cancel or (re)schedule without
// reading the ledger back.
type Event struct {
	Kind              EventKind
	DebtorID          uuid.UUID
	AgreementID       uuid.UUID
	InstallmentID     uuid.UUID
	InstallmentNumber int
	DueDate           time.Time
	InstallmentStatus InstallmentStatus
	AgreementClosed   bool
	OccurredAt        time.Time
}

// Bus is a small in-process fan-out for ledger events. Publishing never
// blocks: a subscriber whose buffer is full misses the event. The ledger is
// the only publisher and must never wait on its consumers.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a buffered subscription. The returned cancel func
// unregisters and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its buffer.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
