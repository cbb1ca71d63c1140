// Package events carries best-effort notifications out of the accounting
// core and feeds inventory movements into it. Nothing here may change the
// outcome of the operation that raised an event.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erpledger/erpledger/internal/id"
	"github.com/erpledger/erpledger/internal/model"
)

const (
	// TypeJournalPosted is raised after a journal entry commits.
	TypeJournalPosted = "journal.posted"

	// RoutingKeyJournalPosted is the topic routing key for TypeJournalPosted.
	RoutingKeyJournalPosted = "finance.journal.created"
)

// Event is a notification about a committed change.
type Event struct {
	ID          string          `json:"id"`
	Event       string          `json:"event"`
	EntryID     uint            `json:"entryId"`
	EntryNumber string          `json:"entryNumber"`
	TenantID    string          `json:"tenantId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Reference   string          `json:"reference,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// RoutingKey returns the topic routing key for the event.
func (e Event) RoutingKey() string {
	if e.Event == TypeJournalPosted {
		return RoutingKeyJournalPosted
	}
	return e.Event
}

// JournalPosted builds the event for a committed entry. The total amount is
// the debit side of the entry.
func JournalPosted(entry model.JournalEntry) Event {
	debit, _ := entry.Totals()
	return Event{
		ID:          id.NewEventID(),
		Event:       TypeJournalPosted,
		EntryID:     entry.ID,
		EntryNumber: entry.Number,
		TenantID:    entry.TenantID,
		TotalAmount: debit,
		Reference:   entry.Reference,
		OccurredAt:  time.Now().UTC(),
	}
}

// Notifier accepts events for delivery. Notify must not block on delivery
// and never reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Publisher delivers a single event synchronously.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

func (Nop) Publish(context.Context, Event) error { return nil }
