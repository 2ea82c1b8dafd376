package comm

import (
	"fmt"
)

var (
	// ErrAlreadyConnected is returned by Connect while a connection is open.
	ErrAlreadyConnected = &StateError{Op: "connect", Reason: "already connected, disconnect first"}
)

// ConnectionError reports a transport that could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not open %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StateError reports an operation that is invalid in the current state.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ReadError ends a session; the driver is disconnected when it is reported.
type ReadError struct {
	Port string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read from %s failed: %v", e.Port, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// DecodeWarning marks a line that was downgraded to Raw.
type DecodeWarning struct {
	Line string
	Err  error
}

func (e *DecodeWarning) Error() string {
	return fmt.Sprintf("bad position line %q: %v", e.Line, e.Err)
}

func (e *DecodeWarning) Unwrap() error {
	return e.Err
}
