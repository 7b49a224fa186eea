package quic

import (
	"context"

	quicgo "github.com/quic-go/quic-go"

	"github.com/zsiec/moq"
)

// Conn adapts a quic-go connection to moq.Connection. Use Wrap when the
// QUIC connection is established by other means than Dial/Listen, for
// example when it is shared with other protocols.
type Conn struct {
	conn quicgo.Connection
}

// Wrap adapts an established QUIC connection.
func Wrap(conn quicgo.Connection) *Conn {
	return &Conn{conn: conn}
}

func (c *Conn) OpenStream(ctx context.Context) (moq.Stream, error) {
	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &stream{s}, nil
}

func (c *Conn) OpenUniStream(ctx context.Context) (moq.SendStream, error) {
	s, err := c.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &sendStream{s}, nil
}

func (c *Conn) AcceptStream(ctx context.Context) (moq.Stream, error) {
	s, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return &stream{s}, nil
}

func (c *Conn) AcceptUniStream(ctx context.Context) (moq.ReceiveStream, error) {
	s, err := c.conn.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return &receiveStream{s}, nil
}

func (c *Conn) ALPN() string {
	return c.conn.ConnectionState().TLS.NegotiatedProtocol
}

func (c *Conn) CloseWithError(code uint64, reason string) error {
	return c.conn.CloseWithError(quicgo.ApplicationErrorCode(code), reason)
}

type stream struct {
	s quicgo.Stream
}

func (s *stream) Read(b []byte) (int, error)  { return s.s.Read(b) }
func (s *stream) Write(b []byte) (int, error) { return s.s.Write(b) }
func (s *stream) Close() error                { return s.s.Close() }
func (s *stream) CancelRead(code uint64)      { s.s.CancelRead(quicgo.StreamErrorCode(code)) }
func (s *stream) CancelWrite(code uint64)     { s.s.CancelWrite(quicgo.StreamErrorCode(code)) }

type sendStream struct {
	s quicgo.SendStream
}

func (s *sendStream) Write(b []byte) (int, error) { return s.s.Write(b) }
func (s *sendStream) Close() error                { return s.s.Close() }
func (s *sendStream) CancelWrite(code uint64)     { s.s.CancelWrite(quicgo.StreamErrorCode(code)) }

type receiveStream struct {
	s quicgo.ReceiveStream
}

func (s *receiveStream) Read(b []byte) (int, error) { return s.s.Read(b) }
func (s *receiveStream) CancelRead(code uint64)     { s.s.CancelRead(quicgo.StreamErrorCode(code)) }
