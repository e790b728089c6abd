package mail

import (
	"errors"
	"fmt"
)

// TransportError reports that a session call failed because the remote
// mailbox was unreachable or rejected the credentials.
type TransportError struct {
	// Op is the session operation, e.g. "fetch" or "archive".
	Op string
	// Temporary marks failures worth retrying (timeouts, 5xx, rate limits).
	Temporary bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err as a permanent TransportError for op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// NewTemporaryError wraps err as a retryable TransportError for op.
func NewTemporaryError(op string, err error) *TransportError {
	return &TransportError{Op: op, Temporary: true, Err: err}
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsTemporary reports whether err wraps a retryable TransportError.
func IsTemporary(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Temporary
}

// ErrNotFound is returned by sessions for identifiers they do not know.
var ErrNotFound = errors.New("message not found")
