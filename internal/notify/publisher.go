// Package notify announces completed purchases to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/tigertix/tigertix/internal/model"
)

// EventTypePurchase is the event_type field written for every purchase.
const EventTypePurchase = "tickets_purchased"

// Publisher delivers purchase confirmations. Delivery is best effort: a
// failed publish never undoes a committed purchase.
type Publisher interface {
	PublishPurchase(ctx context.Context, conf model.PurchaseConfirmation) error
}

// Nop discards every confirmation.
type Nop struct{}

func (Nop) PublishPurchase(context.Context, model.PurchaseConfirmation) error { return nil }

// StreamPublisher appends confirmations to a Redis stream with XADD.
type StreamPublisher struct {
	client rueidis.Client
	stream string
}

// NewStreamPublisher returns a publisher writing to stream.
func NewStreamPublisher(client rueidis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

// NewRedisClient connects to a single Redis address.
func NewRedisClient(addr string) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// PublishPurchase adds one stream entry for conf.
func (p *StreamPublisher) PublishPurchase(ctx context.Context, conf model.PurchaseConfirmation) error {
	fields, err := streamFields(conf)
	if err != nil {
		return err
	}

	fv := p.client.B().Xadd().Key(p.stream).Id("*").FieldValue()
	for i := 0; i < len(fields); i += 2 {
		fv = fv.FieldValue(fields[i], fields[i+1])
	}

	if err := p.client.Do(ctx, fv.Build()).Error(); err != nil {
		return fmt.Errorf("publish purchase %s to %s: %w", conf.ID, p.stream, err)
	}
	return nil
}

// streamFields flattens conf into field/value pairs.
func streamFields(conf model.PurchaseConfirmation) ([]string, error) {
	payload, err := json.Marshal(conf)
	if err != nil {
		return nil, fmt.Errorf("marshal purchase %s: %w", conf.ID, err)
	}
	return []string{
		"event_type", EventTypePurchase,
		"confirmation_id", conf.ID,
		"event_id", strconv.FormatInt(conf.EventID, 10),
		"ticket_count", strconv.Itoa(conf.TicketCount),
		"remaining", strconv.Itoa(conf.NewTicketsAvailable),
		"purchased_at", conf.PurchasedAt.UTC().Format(time.RFC3339Nano),
		"payload", string(payload),
	}, nil
}
