package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	postgresConnectAttempts = 5
	postgresRetryDelay      = 2 * time.Second
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	event_id                    BIGSERIAL PRIMARY KEY,
	event_name                  TEXT NOT NULL,
	event_date                  TEXT NOT NULL,
	number_of_tickets_available INTEGER NOT NULL CHECK (number_of_tickets_available >= 0),
	price_of_a_ticket           DOUBLE PRECISION NOT NULL CHECK (price_of_a_ticket >= 0)
);`

// NewPostgresPool creates and validates a pgxpool connection pool, then makes
// sure the events table exists. It retries a few times to accommodate
// containers starting up.
func NewPostgresPool(ctx context.Context, databaseURL string, log logrus.FieldLogger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= postgresConnectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		log.WithError(err).WithField("attempt", attempt).Warn("postgres connect failed, retrying")
		time.Sleep(postgresRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}

	return pool, nil
}
