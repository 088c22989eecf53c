// Package reservation implements the reservation lifecycle engine: the
// status state machine, arrival-time and business-hours validation,
// duplicate-booking detection and the filtered, paginated retrieval that
// backs staff listings and statistics.  Persistence goes through
// repository.ReservationStore.
package reservation

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that map failures onto a transport.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindBusinessHours     Kind = "BusinessHoursViolation"
	KindConflict          Kind = "ConflictError"
	KindNotFound          Kind = "NotFoundError"
	KindIllegalTransition Kind = "IllegalTransitionError"
	KindAccessDenied      Kind = "AccessDenied"
	KindStore             Kind = "StoreError"
)

// Codes refine a Kind.  They are stable and returned to API clients.
const (
	CodeInvalidTimeFormat      = "InvalidTimeFormat"
	CodePastArrivalTime        = "PastArrivalTime"
	CodeOutsideBusinessHours   = "OutsideBusinessHours"
	CodeInvalidTableSize       = "InvalidTableSize"
	CodeInvalidEmail           = "InvalidEmail"
	CodeMissingField           = "MissingField"
	CodeInvalidPagination      = "InvalidPagination"
	CodeConflictingReservation = "ConflictingReservation"
	CodeConcurrentModification = "ConcurrentModification"
	CodeNotFound               = "NotFound"
	CodeIllegalTransition      = "IllegalTransition"
	CodeIllegalFieldUpdate     = "IllegalFieldUpdate"
	CodeAccessDenied           = "AccessDenied"
	CodeStoreFailure           = "StoreFailure"
)

// Error is the single error type returned by the engine.  Message is meant
// for end users; Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind, so the sentinels below can
// be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Sentinels matched by kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrBusinessHours     = &Error{Kind: KindBusinessHours}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrIllegalTransition = &Error{Kind: KindIllegalTransition}
	ErrAccessDenied      = &Error{Kind: KindAccessDenied}
	ErrStore             = &Error{Kind: KindStore}
)

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func validationError(code, msg string) *Error { return newError(KindValidation, code, msg) }

func storeError(op string, err error) *Error {
	return &Error{Kind: KindStore, Code: CodeStoreFailure, Message: op + " failed", Err: err}
}

// AsError extracts the *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
