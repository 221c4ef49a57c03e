// Package model defines the core domain types for the ticketing system.
package model

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTicketCount is returned when a purchase asks for fewer than one ticket.
var ErrInvalidTicketCount = errors.New("ticket_count must be a positive integer")

// Event represents a purchasable occasion and its remaining inventory.
type Event struct {
	ID               int64   `json:"event_id"`
	Name             string  `json:"event_name"`
	Date             string  `json:"event_date"`
	TicketsAvailable int     `json:"number_of_tickets_available"`
	TicketPrice      float64 `json:"price_of_a_ticket"`
}

// EventFilter narrows an event listing. Nil fields match everything; set
// fields are combined with AND. Name is a case-insensitive substring match,
// the rest are exact.
type EventFilter struct {
	Name             *string
	Date             *string
	TicketPrice      *float64
	TicketsAvailable *int
}

// IsEmpty reports whether the filter matches every event.
func (f EventFilter) IsEmpty() bool {
	return f.Name == nil && f.Date == nil && f.TicketPrice == nil && f.TicketsAvailable == nil
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name             string   `json:"event_name"`
	Date             string   `json:"event_date"`
	TicketsAvailable *int     `json:"number_of_tickets_available"`
	TicketPrice      *float64 `json:"price_of_a_ticket"`
}

// ValidationError describes a rejected create request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validate trims the text fields and checks that every field is present and
// that the numeric fields are not negative.
func (r *CreateEventRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Date = strings.TrimSpace(r.Date)
	if r.Name == "" || r.Date == "" || r.TicketsAvailable == nil || r.TicketPrice == nil {
		return &ValidationError{Msg: "missing required fields: event_name, event_date, number_of_tickets_available and price_of_a_ticket are required"}
	}
	if *r.TicketsAvailable < 0 {
		return &ValidationError{Msg: "number_of_tickets_available must be 0 or greater"}
	}
	if *r.TicketPrice < 0 {
		return &ValidationError{Msg: "price_of_a_ticket must be 0 or greater"}
	}
	return nil
}

// PurchaseRequest is the payload for buying tickets. A missing ticket_count
// means one ticket.
type PurchaseRequest struct {
	TicketCount *int `json:"ticket_count,omitempty"`
}

// Count returns the requested number of tickets, defaulting to 1.
func (r PurchaseRequest) Count() int {
	if r.TicketCount == nil {
		return 1
	}
	return *r.TicketCount
}

// PurchaseConfirmation summarises a successful purchase.
type PurchaseConfirmation struct {
	ID                  string    `json:"confirmation_id"`
	EventID             int64     `json:"event_id"`
	TicketCount         int       `json:"ticket_count"`
	NewTicketsAvailable int       `json:"new_available_tickets"`
	PurchasedAt         time.Time `json:"purchased_at"`
}

// PurchaseResponse is the JSON body returned for a successful purchase.
type PurchaseResponse struct {
	Message string `json:"message"`
	PurchaseConfirmation
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
