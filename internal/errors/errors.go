// Package errors defines typed errors with categories for the agent.
// It provides a structured approach to error handling with machine-readable
// error kinds and human-friendly messages, so callers can decide whether a
// failure should disconnect, retry, or be surfaced to the operator.
//
// The package supports wrapping underlying errors while maintaining error
// kind information.
package errors

import "fmt"

// Kind is a machine-readable error category.
type Kind string

const (
	// ConnectFailed indicates a connection attempt to the bus or the
	// local database failed.
	ConnectFailed Kind = "connect_failed"
	// TransportError indicates a failure on an established socket.
	TransportError Kind = "transport_error"
	// MalformedControl indicates an unrecognized IPC control line.
	MalformedControl Kind = "malformed_control"
	// StorageFailed indicates the secret store could not be read or
	// written.
	StorageFailed Kind = "storage_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }
