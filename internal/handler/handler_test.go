package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigertix/tigertix/internal/database"
	"github.com/tigertix/tigertix/internal/handler"
	"github.com/tigertix/tigertix/internal/ledger"
	"github.com/tigertix/tigertix/internal/metrics"
	"github.com/tigertix/tigertix/internal/model"
	"github.com/tigertix/tigertix/internal/notify"
	"github.com/tigertix/tigertix/internal/repository"
	"github.com/tigertix/tigertix/internal/serializer"
	"github.com/tigertix/tigertix/internal/service"
)

type testServer struct {
	router http.Handler
	hook   *test.Hook
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	pool, err := database.OpenSQLite(database.SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "database.sqlite"),
		PoolSize: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	m := metrics.New(prometheus.NewRegistry())
	svc := service.NewEventService(
		serializer.New(serializer.WithObserver(m)),
		ledger.New(repository.NewSQLiteEventStore(pool)),
		notify.Nop{},
		m,
	)
	log, hook := test.NewNullLogger()
	return &testServer{
		router: handler.NewRouter(handler.NewEventHandler(svc), m.Handler(), log),
		hook:   hook,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createEvent(t *testing.T, name string, tickets int, price float64) model.Event {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"event_name":                  name,
		"event_date":                  "2025-12-01",
		"number_of_tickets_available": tickets,
		"price_of_a_ticket":           price,
	})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/admin/events", string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	return event
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListEventsEmptyIsArray(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListEventsFilters(t *testing.T) {
	s := newTestServer(t)
	s.createEvent(t, "Clemson vs. USC", 100, 150)
	s.createEvent(t, "Hackathon 2025", 50, 20)

	rec := s.do(t, http.MethodGet, "/api/events?event_name=hack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Hackathon 2025", events[0].Name)

	rec = s.do(t, http.MethodGet, "/api/events?price_of_a_ticket=150", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Clemson vs. USC", events[0].Name)

	rec = s.do(t, http.MethodGet, "/api/events?number_of_tickets_available=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/events?price_of_a_ticket=free", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchase(t *testing.T) {
	s := newTestServer(t)
	event := s.createEvent(t, "Hackathon 2025", 3, 20)
	path := "/api/events/" + jsonID(event.ID) + "/purchase"

	rec := s.do(t, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.PurchaseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ticket purchase successful.", resp.Message)
	assert.Equal(t, event.ID, resp.EventID)
	assert.Equal(t, 1, resp.TicketCount)
	assert.Equal(t, 2, resp.NewTicketsAvailable)
	assert.NotEmpty(t, resp.ID)

	rec = s.do(t, http.MethodPost, path, `{"ticket_count": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.NewTicketsAvailable)

	rec = s.do(t, http.MethodPost, path, `{"ticket_count": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "Not enough tickets")
}

func TestPurchaseErrors(t *testing.T) {
	s := newTestServer(t)
	event := s.createEvent(t, "Party", 5, 0)
	path := "/api/events/" + jsonID(event.ID) + "/purchase"

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"non numeric id", "/api/events/abc/purchase", "", http.StatusBadRequest},
		{"zero id", "/api/events/0/purchase", "", http.StatusBadRequest},
		{"unknown event", "/api/events/999/purchase", "", http.StatusNotFound},
		{"zero count", path, `{"ticket_count": 0}`, http.StatusBadRequest},
		{"negative count", path, `{"ticket_count": -4}`, http.StatusBadRequest},
		{"malformed body", path, `{"ticket_count":`, http.StatusBadRequest},
		{"unknown field", path, `{"tickets": 2}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}

	rec := s.do(t, http.MethodGet, "/api/events/"+jsonID(event.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 5, got.TicketsAvailable)
}

func TestConcurrentPurchaseRequests(t *testing.T) {
	s := newTestServer(t)
	event := s.createEvent(t, "Clemson vs. USC", 4, 150)
	path := "/api/events/" + jsonID(event.ID) + "/purchase"

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := s.do(t, http.MethodPost, path, "")
			mu.Lock()
			statuses[rec.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, map[int]int{http.StatusOK: 4, http.StatusBadRequest: 6}, statuses)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tigertix_purchases_total{outcome="success"} 4`)
	assert.Contains(t, rec.Body.String(), `tigertix_purchases_total{outcome="insufficient_inventory"} 6`)
}

func TestGetEvent(t *testing.T) {
	s := newTestServer(t)
	event := s.createEvent(t, "Hackathon", 5, 20)

	rec := s.do(t, http.MethodGet, "/api/events/"+jsonID(event.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, event, got)

	rec = s.do(t, http.MethodGet, "/api/events/77", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event with ID 77 not found.", decodeError(t, rec))

	rec = s.do(t, http.MethodGet, "/api/events/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/admin/events", `{"event_name":"Only a name"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "missing required fields")

	rec = s.do(t, http.MethodPost, "/api/admin/events",
		`{"event_name":"x","event_date":"2025-12-01","number_of_tickets_available":-1,"price_of_a_ticket":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/events", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodOptions, "/api/events/1/purchase", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAccessLogCarriesRequestID(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/health", "")

	entry := s.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/health", entry.Data["path"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.NotEmpty(t, entry.Data["request_id"])
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
