package table

import (
	"errors"
	"fmt"
)

// Kind classifies why a request was rejected.
type Kind string

const (
	Validation    Kind = "validation"
	IllegalAction Kind = "illegal_action"
	Resource      Kind = "resource"
	NotFound      Kind = "not_found"
)

// Error is a typed rejection. State is unchanged whenever one is returned.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrInvalidPayload    = &Error{Kind: Validation, Code: "invalid_payload", Msg: "invalid payload"}
	ErrInvalidCode       = &Error{Kind: Validation, Code: "invalid_code", Msg: "invalid room code"}
	ErrWrongPhase        = &Error{Kind: IllegalAction, Code: "wrong_phase", Msg: "not allowed in this phase"}
	ErrNotYourTurn       = &Error{Kind: IllegalAction, Code: "not_your_turn", Msg: "it is not your turn"}
	ErrIllegalAction     = &Error{Kind: IllegalAction, Code: "illegal_action", Msg: "action not allowed for this hand"}
	ErrInsufficientChips = &Error{Kind: Resource, Code: "insufficient_chips", Msg: "not enough chips"}
	ErrRoomFull          = &Error{Kind: Resource, Code: "room_full", Msg: "the table is full"}
	ErrDuplicateDevice   = &Error{Kind: Resource, Code: "duplicate_device", Msg: "this device already holds a seat"}
	ErrSeatEmpty         = &Error{Kind: NotFound, Code: "seat_empty", Msg: "seat is not occupied"}
	ErrNotFound          = &Error{Kind: NotFound, Code: "not_found", Msg: "not found"}
)

var (
	// ErrStale marks a timer that fired after its phase was already left.
	// Rooms drop it silently.
	ErrStale = errors.New("stale timer")

	// ErrInvariant marks a logic defect. The engine has already aborted
	// the round when it returns one.
	ErrInvariant = errors.New("invariant violation")

	// ErrClosed is returned for requests to a reclaimed room.
	ErrClosed = &Error{Kind: NotFound, Code: "room_closed", Msg: "room closed"}
)

// Reject wraps a sentinel with request detail.
func Reject(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// AsError extracts the typed rejection from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
