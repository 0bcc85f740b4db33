package protocol

import (
	"errors"
	"fmt"
)

// Error kinds. Decode and encode failures wrap one of these in a
// *ProtocolError; transport failures match ErrTransportFailure.
var (
	// ErrUnknownType indicates a leading byte that is not a known type prefix
	ErrUnknownType = errors.New("unknown type prefix")

	// ErrMalformedHeader indicates no CRLF was found while scanning a header line
	ErrMalformedHeader = errors.New("header line not terminated")

	// ErrInvalidLength indicates a length or count field that is not a valid
	// decimal integer, or a payload that does not match its declared length
	ErrInvalidLength = errors.New("invalid length")

	// ErrInvalidEncoding indicates text that is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrTruncatedFrame indicates the declared length needs more bytes than
	// are present in the buffer
	ErrTruncatedFrame = errors.New("truncated frame")

	// ErrDepthExceeded indicates arrays nested deeper than Limits.MaxDepth
	ErrDepthExceeded = errors.New("nesting depth exceeded")

	// ErrLimitExceeded indicates a bulk length, array count or header line
	// larger than the configured Limits
	ErrLimitExceeded = errors.New("size limit exceeded")

	// ErrInvalidSimpleString indicates simple string text containing CR or
	// LF, on either encode or decode
	ErrInvalidSimpleString = errors.New("simple string contains CR or LF")

	// ErrTransportFailure matches every *TransportError
	ErrTransportFailure = errors.New("transport failure")
)

// ProtocolError represents a RESP framing error with the offset of the
// frame it was raised for
type ProtocolError struct {
	Err    error
	Offset int
	Detail string
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("protocol error at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("protocol error at offset %d: %v: %s", e.Offset, e.Err, e.Detail)
}

// Unwrap returns the error kind
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func newError(kind error, offset int, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{
		Err:    kind,
		Offset: offset,
		Detail: fmt.Sprintf(format, args...),
	}
}

// TransportError represents a failed read or write on the underlying stream
type TransportError struct {
	Op  string // "read", "write", "flush"
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransportFailure
func (e *TransportError) Is(target error) bool {
	return target == ErrTransportFailure
}

// IsIncomplete reports whether err only means that more bytes are needed
// before the frame can be decoded.
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrMalformedHeader) || errors.Is(err, ErrTruncatedFrame)
}
