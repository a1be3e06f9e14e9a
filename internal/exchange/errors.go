package exchange

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the engine can surface. Local
// validation kinds are raised before any network call; venue kinds are only
// ever surfaced, never retried inside the engine.
type ErrorKind string

const (
	KindSymbolNotFound        ErrorKind = "SYMBOL_NOT_FOUND"
	KindExchangeUnavailable   ErrorKind = "EXCHANGE_UNAVAILABLE"
	KindOrderTooSmall         ErrorKind = "ORDER_TOO_SMALL"
	KindInvalidTriggerPrice   ErrorKind = "INVALID_TRIGGER_PRICE"
	KindUnsupportedCapability ErrorKind = "UNSUPPORTED_CAPABILITY"
	KindUnsupportedOperation  ErrorKind = "UNSUPPORTED_OPERATION"
	KindPositionNotFound      ErrorKind = "POSITION_NOT_FOUND"
	KindInsufficientBalance   ErrorKind = "INSUFFICIENT_BALANCE"
	KindOrderFailed           ErrorKind = "ORDER_FAILED"
)

// Retryable reports whether the caller may safely retry the operation.
// Order placement retries are the caller's decision on purpose: blind
// retries inside the engine risk duplicate fills.
func (k ErrorKind) Retryable() bool { return k == KindExchangeUnavailable }

// Category is the human-readable message family shown as the primary text.
// Raw venue output is diagnostics only, never the headline.
func (k ErrorKind) Category() string {
	switch k {
	case KindSymbolNotFound:
		return "symbol is not listed on this exchange"
	case KindExchangeUnavailable:
		return "exchange is unreachable, try again"
	case KindOrderTooSmall:
		return "order is below the exchange minimum"
	case KindInvalidTriggerPrice:
		return "trigger price is on the wrong side of the entry price"
	case KindUnsupportedCapability:
		return "this order type is not supported on this exchange"
	case KindUnsupportedOperation:
		return "this operation is not supported on this exchange"
	case KindPositionNotFound:
		return "no open position for this symbol"
	case KindInsufficientBalance:
		return "insufficient balance"
	default:
		return "exchange rejected the order"
	}
}

// Error is the single error type crossing the engine boundary. Raw preserves
// the venue's own message for diagnostics.
type Error struct {
	Kind    ErrorKind
	Venue   Venue
	Message string
	Raw     string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Category()
	}
	if e.Raw != "" {
		return fmt.Sprintf("%s: %s (venue: %s)", e.Kind, msg, e.Raw)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Is matches two engine errors by kind, so sentinel comparisons like
// errors.Is(err, exchange.ErrPositionNotFound) work across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks. Never returned directly; construction
// goes through NewError so venue and message context are attached.
var (
	ErrSymbolNotFound        = &Error{Kind: KindSymbolNotFound}
	ErrExchangeUnavailable   = &Error{Kind: KindExchangeUnavailable}
	ErrOrderTooSmall         = &Error{Kind: KindOrderTooSmall}
	ErrInvalidTriggerPrice   = &Error{Kind: KindInvalidTriggerPrice}
	ErrUnsupportedCapability = &Error{Kind: KindUnsupportedCapability}
	ErrUnsupportedOperation  = &Error{Kind: KindUnsupportedOperation}
	ErrPositionNotFound      = &Error{Kind: KindPositionNotFound}
	ErrInsufficientBalance   = &Error{Kind: KindInsufficientBalance}
	ErrOrderFailed           = &Error{Kind: KindOrderFailed}
)

// NewError builds a typed engine error.
func NewError(kind ErrorKind, venue Venue, format string, args ...any) *Error {
	return &Error{Kind: kind, Venue: venue, Message: fmt.Sprintf(format, args...)}
}

// WrapVenueError preserves a raw venue rejection under the given kind.
func WrapVenueError(kind ErrorKind, venue Venue, raw error) *Error {
	return &Error{Kind: kind, Venue: venue, Message: kind.Category(), Raw: raw.Error()}
}

// Normalize coerces an arbitrary error into the engine taxonomy. Typed
// errors pass through; timeouts and cancellations become
// ExchangeUnavailable (transient); everything else is a terminal
// OrderFailed carrying the raw text.
func Normalize(venue Venue, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapVenueError(KindExchangeUnavailable, venue, err)
	}
	return WrapVenueError(KindOrderFailed, venue, err)
}

// KindOf extracts the taxonomy kind of any error, OrderFailed when untyped.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOrderFailed
}
