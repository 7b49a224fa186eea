package moq

import (
	"context"
	"io"
)

// Connection is the multiplexed, ordered, reliable transport a session
// runs over. The quic subpackage implements it over quic-go; tests use an
// in-memory pipe. The engine never touches transport mechanics beyond
// this surface.
type Connection interface {
	// OpenStream opens a bidirectional stream, blocking on transport
	// flow control until ctx is done.
	OpenStream(ctx context.Context) (Stream, error)
	// OpenUniStream opens an outgoing unidirectional stream.
	OpenUniStream(ctx context.Context) (SendStream, error)
	// AcceptStream returns the next peer-initiated bidirectional stream.
	AcceptStream(ctx context.Context) (Stream, error)
	// AcceptUniStream returns the next peer-initiated unidirectional stream.
	AcceptUniStream(ctx context.Context) (ReceiveStream, error)
	// ALPN returns the negotiated application protocol, which selects the
	// wire family before any message is parsed.
	ALPN() string
	// CloseWithError closes the whole connection with an application
	// error code.
	CloseWithError(code uint64, reason string) error
}

// SendStream is the writing half of a stream. Close delivers a clean FIN
// after all written data; CancelWrite aborts with an error code.
type SendStream interface {
	io.Writer
	io.Closer
	CancelWrite(code uint64)
}

// ReceiveStream is the reading half of a stream. A peer's clean FIN
// surfaces as io.EOF; CancelRead tells the peer to stop sending.
type ReceiveStream interface {
	io.Reader
	CancelRead(code uint64)
}

// Stream is a bidirectional stream.
type Stream interface {
	SendStream
	ReceiveStream
}
