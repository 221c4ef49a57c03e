// Package repository implements the events store used by the ticket ledger.
// It writes SQL directly (no ORM) against either the shared SQLite file or
// PostgreSQL.
package repository

import (
	"context"
	"errors"

	"github.com/tigertix/tigertix/internal/model"
)

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("not found")

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("transaction already committed or rolled back")

// EventStore is the storage client for the events table.
type EventStore interface {
	// Begin starts a write transaction.
	Begin(ctx context.Context) (TicketTx, error)
	// List returns the events matching filter ordered by event_id.
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	// Get returns a single event or ErrNotFound.
	Get(ctx context.Context, eventID int64) (*model.Event, error)
	// Insert stores a validated event and returns it with its assigned id.
	Insert(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
}

// TicketTx is a write transaction over the events table. A successful Commit
// or any Rollback finishes it, after which every call returns ErrTxDone. A
// failed Commit leaves the caller responsible for calling Rollback.
type TicketTx interface {
	// TicketsAvailable reads the current inventory or returns ErrNotFound.
	TicketsAvailable(ctx context.Context, eventID int64) (int, error)
	DecrementTickets(ctx context.Context, eventID int64, count int) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
