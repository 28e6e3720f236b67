package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors let callers branch on error kind with errors.Is instead of
// string matching. Handlers map each one onto an HTTP status and code.
var (
	// ErrRoomUnavailable: the requested dates overlap an existing
	// reserved or checked-in stay on the same room.
	ErrRoomUnavailable = errors.New("room unavailable for the requested dates")

	// ErrInvalidTransition: the reservation's current state does not
	// permit the attempted lifecycle operation.
	ErrInvalidTransition = errors.New("invalid reservation state transition")

	// ErrTooEarly: check-in attempted before the reservation's check-in date.
	ErrTooEarly = errors.New("check-in date not reached")

	// ErrMalformedCredential: the scanned payload does not decode as a
	// credential issued by this system.
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrReservationNotFound: a structurally valid credential references a
	// reservation this store does not hold.
	ErrReservationNotFound = errors.New("reservation not found")

	ErrRoomNotFound  = errors.New("room not found")
	ErrGuestNotFound = errors.New("guest not found")

	// ErrInvalidArgument flags a precondition violation by the caller,
	// e.g. a month outside 1..12 handed to the availability calculator.
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransitionError carries the offending state pair behind ErrInvalidTransition.
type TransitionError struct {
	From ReservationStatus
	To   ReservationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move reservation from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationErrors maps field name to a human-readable message. An empty map
// signals acceptance. It is a value to return, never an exception to throw.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation passed"
	}
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Valid reports acceptance.
func (v ValidationErrors) Valid() bool { return len(v) == 0 }
