// Package ledger owns event inventory: the transactional ticket purchase and
// the event reads and inserts around it.
package ledger

import (
	"context"
	"errors"

	"github.com/tigertix/tigertix/internal/logger"
	"github.com/tigertix/tigertix/internal/model"
	"github.com/tigertix/tigertix/internal/repository"
)

// Ledger applies business rules on top of an EventStore.
type Ledger struct {
	store repository.EventStore
}

// New constructs a Ledger.
func New(store repository.EventStore) *Ledger {
	return &Ledger{store: store}
}

// Purchase atomically checks availability and decrements the ticket count
// of one event, returning the count left after the purchase.
//
// The check and the decrement run inside one storage transaction. That keeps
// inventory from going negative even when several processes share the
// store; in-process callers are additionally expected to go through the
// serializer.
func (l *Ledger) Purchase(ctx context.Context, eventID int64, ticketCount int) (int, error) {
	if ticketCount < 1 {
		return 0, model.ErrInvalidTicketCount
	}

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return 0, &Error{Kind: KindStorage, EventID: eventID, Err: err}
	}

	current, err := tx.TicketsAvailable(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, l.abort(ctx, tx, &Error{Kind: KindNotFound, EventID: eventID})
		}
		return 0, l.abort(ctx, tx, &Error{Kind: KindStorage, EventID: eventID, Err: err})
	}

	if current <= 0 || current < ticketCount {
		return 0, l.abort(ctx, tx, &Error{Kind: KindInsufficientInventory, EventID: eventID})
	}

	if err := tx.DecrementTickets(ctx, eventID, ticketCount); err != nil {
		return 0, l.abort(ctx, tx, &Error{Kind: KindStorage, EventID: eventID, Err: err})
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, l.abort(ctx, tx, &Error{Kind: KindCommit, EventID: eventID, Err: err})
	}

	return current - ticketCount, nil
}

// abort rolls tx back and returns failure unchanged. A rollback error is
// logged only.
func (l *Ledger) abort(ctx context.Context, tx repository.TicketTx, failure *Error) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, repository.ErrTxDone) {
		logger.FromContext(ctx).
			WithError(err).
			WithField("event_id", failure.EventID).
			WithField("kind", failure.Kind.String()).
			Warn("rollback failed")
	}
	return failure
}

// ListAll returns every event ordered by event_id.
func (l *Ledger) ListAll(ctx context.Context) ([]model.Event, error) {
	return l.ListMatching(ctx, model.EventFilter{})
}

// ListMatching returns the events matching filter ordered by event_id.
func (l *Ledger) ListMatching(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	events, err := l.store.List(ctx, filter)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Err: err}
	}
	return events, nil
}

// Get returns a single event.
func (l *Ledger) Get(ctx context.Context, eventID int64) (*model.Event, error) {
	event, err := l.store.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: KindNotFound, EventID: eventID}
		}
		return nil, &Error{Kind: KindStorage, EventID: eventID, Err: err}
	}
	return event, nil
}

// Create validates req and stores a new event. Validation failures are
// returned as *model.ValidationError.
func (l *Ledger) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	event, err := l.store.Insert(ctx, req)
	if err != nil {
		return nil, &Error{Kind: KindStorage, Err: err}
	}
	return event, nil
}
