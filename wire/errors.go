package wire

import (
	"errors"
	"fmt"
)

// Sentinel decode errors. Callers use errors.Is to distinguish failure
// modes; all of them are fatal to the stream being decoded.
var (
	errInvalidBool       = errors.New("wire: boolean byte not 0 or 1")
	ErrDuplicateParam    = errors.New("wire: duplicate parameter id")
	ErrLengthMismatch    = errors.New("wire: message length does not match bytes consumed")
	ErrMessageTooLarge   = errors.New("wire: message body exceeds 16-bit length frame")
	ErrUnknownStatus     = errors.New("wire: unknown object status code")
	ErrUnsupportedDialect = errors.New("wire: message not defined for this version")
)

// ParseError records which field of a control message failed to decode,
// wrapping the underlying I/O or format error.
type ParseError struct {
	Message string
	Field   string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("wire: parse %s %s: %v", e.Message, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownTypeError reports a control message type ID that has no meaning
// under the active version's table. Unknown types are a decode error, not
// a silent skip: the length frame bounds one message's bytes, but the
// stream can no longer be trusted once an unrecognized kind appears.
type UnknownTypeError struct {
	Version Version
	TypeID  uint64
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("wire: unknown message type %#x for %s", e.TypeID, e.Version)
}
