package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies ledger failures so callers can tell client mistakes from
// transient storage trouble and from ids that will never resolve.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindOrderNotFound
	KindTicketNotFound
	KindOverpayment
	KindPersistence
	KindConcurrencyConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindOrderNotFound:
		return "order_not_found"
	case KindTicketNotFound:
		return "ticket_not_found"
	case KindOverpayment:
		return "overpayment_rejected"
	case KindPersistence:
		return "persistence_error"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	}
	return "unknown"
}

// Error is returned by every ledger operation. Message is safe to show to
// clients, Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable is true for failures that may succeed when sent again unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindPersistence || e.Kind == KindConcurrencyConflict
}

// KindOf returns the kind of a ledger error, or 0 when err is not one.
func KindOf(err error) Kind {
	var ledgerErr *Error
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Kind
	}
	return 0
}

func validationError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func orderNotFound(orderID int) *Error {
	return &Error{Kind: KindOrderNotFound, Message: fmt.Sprintf("order %d not found", orderID)}
}

func ticketNotFound(ticketID int) *Error {
	return &Error{Kind: KindTicketNotFound, Message: fmt.Sprintf("ticket %d not found", ticketID)}
}

func persistenceError(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "storage unavailable, try again", Err: err}
}

func concurrencyConflict(orderID int, err error) *Error {
	return &Error{
		Kind:    KindConcurrencyConflict,
		Message: fmt.Sprintf("order %d is being updated concurrently, try again", orderID),
		Err:     err,
	}
}
