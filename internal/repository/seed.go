package repository

import (
	"context"
	"fmt"

	"github.com/tigertix/tigertix/internal/model"
)

// DemoEvents are inserted by Seed into an empty store.
func DemoEvents() []model.CreateEventRequest {
	demo := func(name, date string, tickets int, price float64) model.CreateEventRequest {
		return model.CreateEventRequest{Name: name, Date: date, TicketsAvailable: &tickets, TicketPrice: &price}
	}
	return []model.CreateEventRequest{
		demo("Clemson vs. USC", "2025-11-29", 100, 150.00),
		demo("Hackathon 2025", "2025-12-01", 50, 20.00),
		demo("End of Semester Party", "2025-12-10", 200, 0.00),
	}
}

// Seed inserts the demo events when the store holds no events yet and
// returns how many were inserted.
func Seed(ctx context.Context, store EventStore) (int, error) {
	existing, err := store.List(ctx, model.EventFilter{})
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	inserted := 0
	for _, req := range DemoEvents() {
		if _, err := store.Insert(ctx, req); err != nil {
			return inserted, fmt.Errorf("seed %q: %w", req.Name, err)
		}
		inserted++
	}
	return inserted, nil
}
