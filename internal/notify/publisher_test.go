package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigertix/tigertix/internal/model"
)

func sampleConfirmation() model.PurchaseConfirmation {
	return model.PurchaseConfirmation{
		ID:                  "3f0c7a52-6a57-4a6f-9f7e-1e3b1b1f2d10",
		EventID:             12,
		TicketCount:         3,
		NewTicketsAvailable: 47,
		PurchasedAt:         time.Date(2025, 11, 29, 18, 30, 0, 0, time.UTC),
	}
}

func TestStreamFields(t *testing.T) {
	fields, err := streamFields(sampleConfirmation())
	require.NoError(t, err)
	require.Len(t, fields, 14)

	byName := map[string]string{}
	for i := 0; i < len(fields); i += 2 {
		byName[fields[i]] = fields[i+1]
	}
	assert.Equal(t, EventTypePurchase, byName["event_type"])
	assert.Equal(t, "12", byName["event_id"])
	assert.Equal(t, "3", byName["ticket_count"])
	assert.Equal(t, "47", byName["remaining"])
	assert.Equal(t, "2025-11-29T18:30:00Z", byName["purchased_at"])

	var decoded model.PurchaseConfirmation
	require.NoError(t, json.Unmarshal([]byte(byName["payload"]), &decoded))
	assert.Equal(t, sampleConfirmation(), decoded)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishPurchase(context.Background(), sampleConfirmation()))
}

func TestStreamPublisherAgainstRedis(t *testing.T) {
	addr := os.Getenv("TIGERTIX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TIGERTIX_TEST_REDIS_ADDR not set")
	}

	client, err := NewRedisClient(addr)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	ctx := context.Background()
	stream := "tigertix:test:" + t.Name()
	t.Cleanup(func() { client.Do(ctx, client.B().Del().Key(stream).Build()) })

	p := NewStreamPublisher(client, stream)
	require.NoError(t, p.PublishPurchase(ctx, sampleConfirmation()))

	entries, err := client.Do(ctx, client.B().Xrange().Key(stream).Start("-").End("+").Build()).AsXRange()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "12", entries[0].FieldValues["event_id"])
	assert.Equal(t, EventTypePurchase, entries[0].FieldValues["event_type"])
}
