package jsonrpc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMessage = errors.New("invalid message")
	ErrIDMismatch     = errors.New("reply id does not match request id")
	ErrDuplicateID    = errors.New("request id already in flight")
)

// TransportError reports a failure to deliver a request or read its reply:
// connection refused, timeout, reset or an HTTP status without a JSON-RPC
// body. It is the only class of error worth retrying.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed envelope or a broken correlation
// between request and reply. Payload holds the offending frame.
type ProtocolError struct {
	Method  string
	Payload []byte
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("protocol error: %v", e.Err)
	}
	return fmt.Sprintf("protocol error calling %s: %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DecodeError reports a result that does not match the expected response
// shape. The server answered, so retrying cannot help.
type DecodeError struct {
	Method  string
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode result of %s: %v (payload %s)", e.Method, e.Err, truncate(e.Payload, 256))
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient transport failure.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
