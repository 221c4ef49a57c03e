// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tigertix/tigertix/internal/ledger"
	"github.com/tigertix/tigertix/internal/logger"
	"github.com/tigertix/tigertix/internal/model"
	"github.com/tigertix/tigertix/internal/service"
)

// EventHandler holds all HTTP handlers for the ticketing API.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// decodeJSON decodes an optional body. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func eventID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListEvents handles GET /api/events
// Query parameters event_name, event_date, price_of_a_ticket and
// number_of_tickets_available narrow the result.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.svc.ListEvents(r.Context(), filter)
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Error("list events")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve events.")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

func parseFilter(r *http.Request) (model.EventFilter, error) {
	var filter model.EventFilter
	q := r.URL.Query()

	if v := q.Get("event_name"); v != "" {
		filter.Name = &v
	}
	if v := q.Get("event_date"); v != "" {
		filter.Date = &v
	}
	if v := q.Get("price_of_a_ticket"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, fmt.Errorf("price_of_a_ticket must be a number")
		}
		filter.TicketPrice = &price
	}
	if v := q.Get("number_of_tickets_available"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("number_of_tickets_available must be an integer")
		}
		filter.TicketsAvailable = &n
	}
	return filter, nil
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid Event ID.")
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, id, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Purchase handles POST /api/events/{id}/purchase
// The body is optional; ticket_count defaults to 1.
func (h *EventHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid Event ID.")
		return
	}

	var req model.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	conf, err := h.svc.Purchase(r.Context(), id, req)
	if err != nil {
		h.writeLedgerError(w, r, id, err)
		return
	}

	writeJSON(w, http.StatusOK, model.PurchaseResponse{
		Message:              "Ticket purchase successful.",
		PurchaseConfirmation: *conf,
	})
}

// CreateEvent handles POST /api/admin/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		h.writeLedgerError(w, r, 0, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// writeLedgerError maps service failures to status codes.
func (h *EventHandler) writeLedgerError(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, model.ErrInvalidTicketCount) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := logger.FromContext(r.Context()).WithError(err)
	kind, ok := ledger.KindOf(err)
	if !ok {
		log.Error("unexpected service error")
		writeError(w, http.StatusInternalServerError, "An unknown server error occurred.")
		return
	}

	switch kind {
	case ledger.KindNotFound:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Event with ID %d not found.", id))
	case ledger.KindInsufficientInventory:
		writeError(w, http.StatusBadRequest, "Purchase failed: Not enough tickets available.")
	case ledger.KindStorage, ledger.KindCommit:
		log.WithField("kind", kind.String()).Error("ticket ledger failure")
		writeError(w, http.StatusInternalServerError, "A database error occurred.")
	default:
		log.Error("unknown ledger error kind")
		writeError(w, http.StatusInternalServerError, "An unknown server error occurred.")
	}
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
