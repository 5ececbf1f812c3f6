package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomClosed     = errors.New("room is closed")
	ErrMemberNotFound = errors.New("member not in room")
	ErrForbidden      = errors.New("forbidden")
	ErrUnauthorized   = errors.New("unauthorized")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrTransient       = errors.New("transient store error")

	ErrInvalidCode = errors.New("invalid join code")
	ErrCodeExpired = errors.New("join code expired")
	ErrAllocation  = errors.New("relay allocation failed")

	ErrJoinCodeMissing     = errors.New("no join code available")
	ErrRelayAlreadyStarted = errors.New("relay already started by another session")
	ErrHandoff             = errors.New("transport handoff failed")
)

// OpError attaches the failing operation to a sentinel.
type OpError struct {
	Op      string
	Err     error
	Details string
}

func (e *OpError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func NewOpError(op string, err error, details string) *OpError {
	return &OpError{Op: op, Err: err, Details: details}
}

// Kind is the error taxonomy the bootstrap core reasons about.
type Kind int

const (
	KindNone Kind = iota
	KindStoreTransient
	KindStoreNotFound
	KindAllocatorFailure
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStoreTransient:
		return "store_transient"
	case KindStoreNotFound:
		return "store_not_found"
	case KindAllocatorFailure:
		return "allocator_failure"
	case KindConfiguration:
		return "configuration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Classify maps any collaborator error onto exactly one Kind.
// Anything unrecognised is treated as transient and retried.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrRoomClosed):
		return KindStoreNotFound
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrCodeExpired), errors.Is(err, ErrAllocation):
		return KindAllocatorFailure
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrJoinCodeMissing),
		errors.Is(err, ErrRelayAlreadyStarted), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrForbidden), errors.Is(err, ErrHandoff):
		return KindConfiguration
	default:
		return KindStoreTransient
	}
}

// UserMessage renders the short user-facing text for a terminal failure.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrJoinCodeMissing):
		return "no join code available"
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrRoomClosed):
		return "room no longer exists"
	case Classify(err) == KindAllocatorFailure:
		return "could not establish relay"
	default:
		return err.Error()
	}
}
