// Package wire implements the runwire envelope codec: length-prefixed frames
// wrapping a varint tagged-field body, with msgpack-encoded payload variants.
//
// Body layout: a sequence of fields, each introduced by a varint key
// (tag<<3 | wiretype). Wiretype 0 is a varint scalar, wiretype 2 a
// length-delimited blob. Unknown non-payload tags are skipped by length so
// old readers stay in sync with newer writers; unknown payload discriminants
// surface as typed Unknown*Payload values with the routing slot (tag 200)
// still readable.
package wire

import (
	"errors"
	"fmt"
)

// DecodeErrorKind classifies envelope decoding errors.
type DecodeErrorKind int

const (
	// DecodeErrorTruncated indicates the body ended mid-field.
	DecodeErrorTruncated DecodeErrorKind = iota
	// DecodeErrorBadKey indicates a malformed field key or an unsupported
	// wiretype.
	DecodeErrorBadKey
	// DecodeErrorBadValue indicates a field value that failed to decode.
	DecodeErrorBadValue
	// DecodeErrorNoPayload indicates an envelope with no payload variant set.
	DecodeErrorNoPayload
	// DecodeErrorMultiplePayload indicates an envelope with more than one
	// payload variant set.
	DecodeErrorMultiplePayload
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorTruncated:
		return "truncated"
	case DecodeErrorBadKey:
		return "bad_key"
	case DecodeErrorBadValue:
		return "bad_value"
	case DecodeErrorNoPayload:
		return "no_payload"
	case DecodeErrorMultiplePayload:
		return "multiple_payload"
	default:
		return "unknown"
	}
}

// DecodeError represents an envelope body decoding error. Decode errors are
// recoverable at the frame boundary: the reader resynchronizes on the next
// frame instead of killing the connection.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is an envelope decode error of any kind.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// decodeErrf builds a DecodeError with a formatted message.
func decodeErrf(kind DecodeErrorKind, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
