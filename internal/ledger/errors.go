package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures. The set is closed; callers switch on it
// exhaustively.
type Kind int

const (
	// KindNotFound means the event does not exist.
	KindNotFound Kind = iota + 1
	// KindInsufficientInventory means fewer tickets remain than requested.
	KindInsufficientInventory
	// KindStorage is a begin, read or write failure unrelated to business
	// rules.
	KindStorage
	// KindCommit means the transaction could not be committed.
	KindCommit
)

// Sentinels matching each Kind through errors.Is.
var (
	ErrNotFound              = errors.New("event not found")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrStorage               = errors.New("storage error")
	ErrCommit                = errors.New("commit error")
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInsufficientInventory:
		return "insufficient_inventory"
	case KindStorage:
		return "storage_error"
	case KindCommit:
		return "commit_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInsufficientInventory:
		return ErrInsufficientInventory
	case KindCommit:
		return ErrCommit
	}
	return ErrStorage
}

// Error is the failure returned by every ledger operation.
type Error struct {
	Kind    Kind
	EventID int64
	// Err is the underlying storage error, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.EventID != 0 {
		msg = fmt.Sprintf("%s (event %d)", msg, e.EventID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the Kind of a ledger error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind, true
	}
	return 0, false
}
