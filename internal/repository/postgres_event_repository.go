package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tigertix/tigertix/internal/model"
)

// PostgresEventStore implements EventStore using pgx.
type PostgresEventStore struct {
	db *pgxpool.Pool
}

// NewPostgresEventStore constructs a PostgresEventStore.
func NewPostgresEventStore(db *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// Begin starts a pgx transaction. Row locking happens in TicketsAvailable.
func (s *PostgresEventStore) Begin(ctx context.Context) (TicketTx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

// List returns the events matching filter ordered by event_id.
func (s *PostgresEventStore) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	query, args := listQuery(postgresDialect, filter)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.TicketsAvailable, &e.TicketPrice); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Get returns a single event or ErrNotFound.
func (s *PostgresEventStore) Get(ctx context.Context, eventID int64) (*model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_id = $1`,
		eventID,
	).Scan(&e.ID, &e.Name, &e.Date, &e.TicketsAvailable, &e.TicketPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// Insert stores a validated event and returns it with its assigned id.
func (s *PostgresEventStore) Insert(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		Name:             req.Name,
		Date:             req.Date,
		TicketsAvailable: *req.TicketsAvailable,
		TicketPrice:      *req.TicketPrice,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO events (event_name, event_date, number_of_tickets_available, price_of_a_ticket)
		 VALUES ($1, $2, $3, $4)
		 RETURNING event_id`,
		event.Name, event.Date, event.TicketsAvailable, event.TicketPrice,
	).Scan(&event.ID)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

type postgresTx struct {
	tx pgx.Tx
}

// TicketsAvailable takes a row-level lock with SELECT ... FOR UPDATE. A
// concurrent transaction on another instance blocks on the same row until
// we commit or roll back, so it always reads the post-purchase count.
func (t *postgresTx) TicketsAvailable(ctx context.Context, eventID int64) (int, error) {
	var tickets int
	err := t.tx.QueryRow(ctx,
		`SELECT number_of_tickets_available
		 FROM events
		 WHERE event_id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&tickets)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, mapTxErr(fmt.Errorf("lock event row: %w", err))
	}
	return tickets, nil
}

func (t *postgresTx) DecrementTickets(ctx context.Context, eventID int64, count int) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events SET number_of_tickets_available = number_of_tickets_available - $1 WHERE event_id = $2`,
		count, eventID,
	)
	if err != nil {
		return mapTxErr(fmt.Errorf("decrement tickets: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *postgresTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return mapTxErr(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func (t *postgresTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return mapTxErr(fmt.Errorf("rollback transaction: %w", err))
	}
	return nil
}

// mapTxErr reports use of a closed pgx transaction as ErrTxDone.
func mapTxErr(err error) error {
	if errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("%w: %w", ErrTxDone, err)
	}
	return err
}
