package rpc

import (
	"errors"
	"fmt"
)

// Codes carried by a failed call. They start where onet's own websocket
// codes end.
const (
	// ErrorParse indicates a request or response that could not be decoded.
	ErrorParse = iota + 4000
	// ErrorMethodNotFound indicates a call to a method nobody registered.
	ErrorMethodNotFound
	// ErrorInvalidInput indicates a request that failed validation.
	ErrorInvalidInput
	// ErrorFailed indicates a handler that returned an error.
	ErrorFailed
	// ErrorInternal indicates a handler that panicked.
	ErrorInternal
)

var (
	// ErrTransport wraps every failure to get a reply to a call: the peer
	// could not be resolved or reached, the connection broke, the reply did
	// not verify, or the context ended first.
	ErrTransport = errors.New("transport failure")
	// ErrSealed is returned by Register once the dispatcher serves calls.
	ErrSealed = errors.New("dispatcher already serving")

	ErrParse          = &Error{Code: ErrorParse}
	ErrMethodNotFound = &Error{Code: ErrorMethodNotFound}
	ErrInvalidInput   = &Error{Code: ErrorInvalidInput}
	ErrFailed         = &Error{Code: ErrorFailed}
	ErrInternal       = &Error{Code: ErrorInternal}
)

// Error is a call that reached the server and failed there.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rpc error %d", e.Code)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrMethodNotFound) works for any message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// InvalidInput returns an error that reaches the caller with
// ErrorInvalidInput.
func InvalidInput(format string, args ...interface{}) error {
	return &Error{Code: ErrorInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func transportError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTransport, fmt.Sprintf(format, args...))
}
