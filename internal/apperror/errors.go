package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names a recoverable validation failure. The input that caused it is
// left untouched so the operator can correct it and retry.
type Kind string

const (
	KindEmptyCart            Kind = "EMPTY_CART"
	KindInsufficientPayment  Kind = "INSUFFICIENT_PAYMENT"
	KindInvalidAmount        Kind = "INVALID_AMOUNT"
	KindAlreadyOpen          Kind = "ALREADY_OPEN"
	KindAlreadyClosed        Kind = "ALREADY_CLOSED"
	KindInvalidPaymentMethod Kind = "INVALID_PAYMENT_METHOD"
	KindSubmitInProgress     Kind = "SUBMIT_IN_PROGRESS"
	KindOpeningBalance       Kind = "OPENING_BALANCE_REQUIRED"
)

// ValidationError is surfaced inline to the operator.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is matches any ValidationError of the same kind, so sentinel values below
// work with errors.Is.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

// NotFoundError is a normal branch, e.g. "no active day-end".
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

// TransportError covers network failures and non-2xx API responses.
// Message carries the server's detail verbatim.
type TransportError struct {
	Status       int
	Message      string
	Unauthorized bool
	Err          error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
	}
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var (
	ErrEmptyCart              = &ValidationError{Kind: KindEmptyCart, Message: "Cart is empty. Please add items."}
	ErrInsufficientPayment    = &ValidationError{Kind: KindInsufficientPayment, Message: "Insufficient payment amount"}
	ErrAlreadyOpen            = &ValidationError{Kind: KindAlreadyOpen, Message: "A day-end session is already open"}
	ErrAlreadyClosed          = &ValidationError{Kind: KindAlreadyClosed, Message: "Day-end is already closed"}
	ErrSubmitInProgress       = &ValidationError{Kind: KindSubmitInProgress, Message: "A sale is already being submitted"}
	ErrOpeningBalanceRequired = &ValidationError{Kind: KindOpeningBalance, Message: "Enter or skip the opening balance before selling"}
	ErrUnauthenticated        = &TransportError{Status: http.StatusUnauthorized, Message: "Session expired. Please log in again.", Unauthorized: true}
)

func NewInvalidAmount(message string) *ValidationError {
	return &ValidationError{Kind: KindInvalidAmount, Message: message}
}

func NewInvalidPaymentMethod(method string) *ValidationError {
	return &ValidationError{Kind: KindInvalidPaymentMethod, Message: fmt.Sprintf("unknown payment method %q", method)}
}

func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnauthorized reports whether err means the credential is gone or rejected.
func IsUnauthorized(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Unauthorized
}

// HTTPStatus maps an error onto the status code the register API answers with.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		te *TransportError
	)
	switch {
	case errors.As(err, &ve):
		switch ve.Kind {
		case KindSubmitInProgress, KindAlreadyOpen, KindAlreadyClosed, KindOpeningBalance:
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &te):
		if te.Unauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine readable error field of a register API response.
func Code(err error) string {
	var (
		ve *ValidationError
		nf *NotFoundError
		te *TransportError
	)
	switch {
	case errors.As(err, &ve):
		return string(ve.Kind)
	case errors.As(err, &nf):
		return "NOT_FOUND"
	case errors.As(err, &te):
		if te.Unauthorized {
			return "SESSION_EXPIRED"
		}
		return "UPSTREAM_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// Message is the text shown to the operator: the server's detail for
// transport errors, the error text otherwise.
func Message(err error) string {
	var te *TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return err.Error()
}
