package repository

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tigertix/tigertix/internal/database"
	"github.com/tigertix/tigertix/internal/model"
)

// SQLiteEventStore implements EventStore over the shared SQLite file.
type SQLiteEventStore struct {
	pool *database.SQLitePool
}

// NewSQLiteEventStore constructs a SQLiteEventStore.
func NewSQLiteEventStore(pool *database.SQLitePool) *SQLiteEventStore {
	return &SQLiteEventStore{pool: pool}
}

// Begin starts the transaction with BEGIN IMMEDIATE so the write lock is
// held from the first read. Another process sharing the file cannot slip a
// decrement between our read and our update; it waits on busy_timeout.
func (s *SQLiteEventStore) Begin(ctx context.Context) (TicketTx, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	if err := sqlitex.ExecuteTransient(conn, "BEGIN IMMEDIATE", nil); err != nil {
		s.pool.Put(conn)
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqliteTx{pool: s.pool, conn: conn}, nil
}

// List returns the events matching filter ordered by event_id.
func (s *SQLiteEventStore) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	query, args := listQuery(sqliteDialect, filter)

	var events []model.Event
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			events = append(events, scanSQLiteEvent(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Get returns a single event or ErrNotFound.
func (s *SQLiteEventStore) Get(ctx context.Context, eventID int64) (*model.Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var event *model.Event
	err = sqlitex.Execute(conn,
		"SELECT "+eventColumns+" FROM events WHERE event_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{eventID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				e := scanSQLiteEvent(stmt)
				event = &e
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event == nil {
		return nil, ErrNotFound
	}
	return event, nil
}

// Insert stores a validated event and returns it with its assigned id.
func (s *SQLiteEventStore) Insert(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	event := &model.Event{
		Name:             req.Name,
		Date:             req.Date,
		TicketsAvailable: *req.TicketsAvailable,
		TicketPrice:      *req.TicketPrice,
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO events (event_name, event_date, number_of_tickets_available, price_of_a_ticket)
		 VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{event.Name, event.Date, event.TicketsAvailable, event.TicketPrice}},
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	event.ID = conn.LastInsertRowID()
	return event, nil
}

func scanSQLiteEvent(stmt *sqlite.Stmt) model.Event {
	return model.Event{
		ID:               stmt.ColumnInt64(0),
		Name:             stmt.ColumnText(1),
		Date:             stmt.ColumnText(2),
		TicketsAvailable: stmt.ColumnInt(3),
		TicketPrice:      stmt.ColumnFloat(4),
	}
}

// sqliteTx owns a pooled connection for the life of the transaction and
// returns it once the transaction is finished.
type sqliteTx struct {
	pool *database.SQLitePool
	conn *sqlite.Conn
}

func (tx *sqliteTx) TicketsAvailable(_ context.Context, eventID int64) (int, error) {
	if tx.conn == nil {
		return 0, ErrTxDone
	}

	var (
		tickets int
		found   bool
	)
	err := sqlitex.Execute(tx.conn,
		"SELECT number_of_tickets_available FROM events WHERE event_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{eventID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tickets = stmt.ColumnInt(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("read tickets: %w", err)
	}
	if !found {
		return 0, ErrNotFound
	}
	return tickets, nil
}

func (tx *sqliteTx) DecrementTickets(_ context.Context, eventID int64, count int) error {
	if tx.conn == nil {
		return ErrTxDone
	}

	err := sqlitex.Execute(tx.conn,
		"UPDATE events SET number_of_tickets_available = number_of_tickets_available - ? WHERE event_id = ?",
		&sqlitex.ExecOptions{Args: []any{count, eventID}},
	)
	if err != nil {
		return fmt.Errorf("decrement tickets: %w", err)
	}
	if tx.conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *sqliteTx) Commit(_ context.Context) error {
	if tx.conn == nil {
		return ErrTxDone
	}
	if err := sqlitex.ExecuteTransient(tx.conn, "COMMIT", nil); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	tx.release()
	return nil
}

func (tx *sqliteTx) Rollback(_ context.Context) error {
	if tx.conn == nil {
		return ErrTxDone
	}
	err := sqlitex.ExecuteTransient(tx.conn, "ROLLBACK", nil)
	tx.release()
	if err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

func (tx *sqliteTx) release() {
	tx.pool.Put(tx.conn)
	tx.conn = nil
}
