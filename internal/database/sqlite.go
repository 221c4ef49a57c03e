// Package database provides connection management for the events store:
// a zombiezen SQLite pool for the shared database file and a pgx pool for
// PostgreSQL deployments.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	event_id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	event_name                  TEXT NOT NULL,
	event_date                  TEXT NOT NULL,
	number_of_tickets_available INTEGER NOT NULL CHECK (number_of_tickets_available >= 0),
	price_of_a_ticket           REAL NOT NULL CHECK (price_of_a_ticket >= 0)
);`

// busy_timeout lets a second process sharing the file wait for the write
// lock instead of failing with SQLITE_BUSY.
var sqlitePragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// SQLiteConfig holds the parameters for opening the shared database file.
type SQLiteConfig struct {
	// Path is the database file. Its parent directory is created when
	// missing.
	Path string
	// PoolSize defaults to 4 when zero or negative.
	PoolSize int
	Logger   logrus.FieldLogger
}

// SQLitePool is a fixed-size pool of SQLite connections. Connections are
// not safe for concurrent use; callers Take one, use it, and Put it back.
type SQLitePool struct {
	inner *sqlitex.Pool
	log   logrus.FieldLogger
	path  string
}

// OpenSQLite opens the pool and prepares every connection with the standard
// pragmas and the events schema.
func OpenSQLite(cfg SQLiteConfig) (*SQLitePool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareSQLiteConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", cfg.Path, err)
	}

	log.WithFields(logrus.Fields{"path": cfg.Path, "pool_size": poolSize}).Info("sqlite pool opened")

	return &SQLitePool{inner: inner, log: log, path: cfg.Path}, nil
}

func prepareSQLiteConn(conn *sqlite.Conn) error {
	for _, pragma := range sqlitePragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("sqlite: create schema: %w", err)
	}
	return nil
}

// Take borrows a connection, blocking until one is free or ctx is done.
func (p *SQLitePool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: take: %w", err)
	}
	return conn, nil
}

// Put returns a connection to the pool.
func (p *SQLitePool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close closes every connection, waiting for borrowed ones to come back.
func (p *SQLitePool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.log.WithError(err).WithField("path", p.path).Error("sqlite pool close error")
		return fmt.Errorf("sqlite: closing %s: %w", p.path, err)
	}
	p.log.WithField("path", p.path).Info("sqlite pool closed")
	return nil
}
