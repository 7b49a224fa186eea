package moq

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by tracks, broadcasts, and sessions.
var (
	ErrSessionClosed      = errors.New("moq: session closed")
	ErrTrackClosed        = errors.New("moq: track closed")
	ErrGroupClosed        = errors.New("moq: group closed")
	ErrDuplicateGroup     = errors.New("moq: duplicate group sequence")
	ErrDuplicateBroadcast = errors.New("moq: broadcast path already published")
	ErrInvalidPath        = errors.New("moq: invalid path")
	ErrGoingAway          = errors.New("moq: peer is going away")
)

// Application error codes used on connection close and stream resets.
const (
	ErrorCodeNoError            uint64 = 0x0
	ErrorCodeInternal           uint64 = 0x1
	ErrorCodeProtocolViolation  uint64 = 0x2
	ErrorCodeUnsupportedVersion uint64 = 0x3
	ErrorCodeGoingAway          uint64 = 0x4
)

// Error codes carried in SUBSCRIBE_ERROR / REQUEST_ERROR replies.
const (
	RequestErrorInternal          uint64 = 0x0
	RequestErrorUnauthorized      uint64 = 0x1
	RequestErrorNotSupported      uint64 = 0x2
	RequestErrorTrackDoesNotExist uint64 = 0x3
)

// ProtocolError is a peer violation that is fatal to the session. Code is
// the application error code sent on CloseWithError.
type ProtocolError struct {
	Code    uint64
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("moq: protocol violation (%#x): %s", e.Code, e.Message)
}

// RequestError is a peer's rejection of a single request. It fails only
// the operation that issued the request.
type RequestError struct {
	Code   uint64
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("moq: request failed (%#x): %s", e.Code, e.Reason)
}
