// Package service orchestrates the ledger, the serializer and the side
// effects around a purchase.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tigertix/tigertix/internal/ledger"
	"github.com/tigertix/tigertix/internal/logger"
	"github.com/tigertix/tigertix/internal/metrics"
	"github.com/tigertix/tigertix/internal/model"
	"github.com/tigertix/tigertix/internal/notify"
	"github.com/tigertix/tigertix/internal/serializer"
)

// OutcomeRecorder counts purchase attempts by outcome.
type OutcomeRecorder interface {
	PurchaseOutcome(outcome string)
}

// EventService runs every ledger operation through one serializer.
type EventService struct {
	queue     *serializer.Serializer
	ledger    *ledger.Ledger
	publisher notify.Publisher
	outcomes  OutcomeRecorder
	now       func() time.Time
}

// NewEventService constructs an EventService. A nil publisher or recorder
// disables that side effect.
func NewEventService(
	queue *serializer.Serializer,
	l *ledger.Ledger,
	publisher notify.Publisher,
	outcomes OutcomeRecorder,
) *EventService {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if outcomes == nil {
		outcomes = discardOutcomes{}
	}
	return &EventService{
		queue:     queue,
		ledger:    l,
		publisher: publisher,
		outcomes:  outcomes,
		now:       time.Now,
	}
}

// Purchase buys req.Count() tickets for eventID. Errors are the ledger's
// *ledger.Error or model.ErrInvalidTicketCount.
func (s *EventService) Purchase(ctx context.Context, eventID int64, req model.PurchaseRequest) (*model.PurchaseConfirmation, error) {
	count := req.Count()

	remaining, err := serializer.Do(ctx, s.queue, func(ctx context.Context) (int, error) {
		return s.ledger.Purchase(ctx, eventID, count)
	})
	s.outcomes.PurchaseOutcome(outcomeOf(err))
	if err != nil {
		return nil, err
	}

	conf := &model.PurchaseConfirmation{
		ID:                  uuid.NewString(),
		EventID:             eventID,
		TicketCount:         count,
		NewTicketsAvailable: remaining,
		PurchasedAt:         s.now().UTC(),
	}

	log := logger.FromContext(ctx).WithField("event_id", eventID).WithField("confirmation_id", conf.ID)
	log.WithField("ticket_count", count).WithField("remaining", remaining).Info("tickets purchased")

	if err := s.publisher.PublishPurchase(ctx, *conf); err != nil {
		log.WithError(err).Warn("purchase notification not delivered")
	}

	return conf, nil
}

// ListEvents returns the events matching filter; an empty filter lists all.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	return serializer.Do(ctx, s.queue, func(ctx context.Context) ([]model.Event, error) {
		if filter.IsEmpty() {
			return s.ledger.ListAll(ctx)
		}
		return s.ledger.ListMatching(ctx, filter)
	})
}

// GetEvent returns a single event.
func (s *EventService) GetEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	return serializer.Do(ctx, s.queue, func(ctx context.Context) (*model.Event, error) {
		return s.ledger.Get(ctx, eventID)
	})
}

// CreateEvent validates and stores a new event.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event, err := serializer.Do(ctx, s.queue, func(ctx context.Context) (*model.Event, error) {
		return s.ledger.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithField("event_id", event.ID).Info("event created")
	return event, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	if errors.Is(err, model.ErrInvalidTicketCount) {
		return metrics.OutcomeInvalid
	}
	kind, ok := ledger.KindOf(err)
	if !ok {
		return metrics.OutcomeError
	}
	switch kind {
	case ledger.KindNotFound:
		return metrics.OutcomeNotFound
	case ledger.KindInsufficientInventory:
		return metrics.OutcomeInsufficientInventory
	case ledger.KindStorage, ledger.KindCommit:
		return metrics.OutcomeError
	}
	return metrics.OutcomeError
}

type discardOutcomes struct{}

func (discardOutcomes) PurchaseOutcome(string) {}
