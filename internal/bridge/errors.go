package bridge

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a bridge failure
type ErrorType int

const (
	// ErrTypePoolExhausted indicates a connection was rejected because every slot is in use
	ErrTypePoolExhausted ErrorType = iota
	// ErrTypeBufferFull indicates bytes were dropped because the pending buffer was full
	ErrTypeBufferFull
	// ErrTypeSubmitFailed indicates the network stack refused a submission
	ErrTypeSubmitFailed
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypePoolExhausted:
		return "Pool Exhausted"
	case ErrTypeBufferFull:
		return "Buffer Full"
	case ErrTypeSubmitFailed:
		return "Submit Failed"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Sentinel errors for errors.Is checks. Error values returned by the bridge
// match the sentinel of their type.
var (
	ErrPoolExhausted = &Error{Type: ErrTypePoolExhausted, Message: "connection pool exhausted"}
	ErrBufferFull    = &Error{Type: ErrTypeBufferFull, Message: "tx buffer full"}
	ErrSubmitFailed  = &Error{Type: ErrTypeSubmitFailed, Message: "submit failed"}
)

// Error is a connection-local bridge failure
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	RemoteAddr string    // Connection the error belongs to (empty for pool errors)
	Dropped    int       // Bytes discarded because of this error
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.RemoteAddr != "" {
		msg = fmt.Sprintf("%s (conn %s)", msg, e.RemoteAddr)
	}
	if e.Dropped > 0 {
		msg = fmt.Sprintf("%s: %d bytes dropped", msg, e.Dropped)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bridge error of the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

func newBufferFull(remoteAddr string, dropped int) *Error {
	return &Error{Type: ErrTypeBufferFull, Message: "tx buffer full", RemoteAddr: remoteAddr, Dropped: dropped}
}

func newSubmitFailed(remoteAddr string, dropped int, err error) *Error {
	return &Error{Type: ErrTypeSubmitFailed, Message: "submit failed", RemoteAddr: remoteAddr, Dropped: dropped, Err: err}
}

// IsPoolExhausted checks if an error is a pool exhaustion rejection
func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

// IsBufferFull checks if an error reports bytes dropped on a full buffer
func IsBufferFull(err error) bool {
	return errors.Is(err, ErrBufferFull)
}

// IsSubmitFailed checks if an error reports a refused submission
func IsSubmitFailed(err error) bool {
	return errors.Is(err, ErrSubmitFailed)
}
