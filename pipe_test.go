package moq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// The tests run both ends of a session over an in-memory connection.
// Stream writes land in an unbounded buffer so neither control loop can
// deadlock the other, which io.Pipe's synchronous handoff would allow.

var errConnClosed = errors.New("connection closed")

// memPipe is one direction of a stream: an unbounded buffer with
// blocking reads, a graceful close (drain then io.EOF), and an abort.
type memPipe struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  []byte
	eof  bool
	err  error
}

func newMemPipe() *memPipe {
	p := &memPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *memPipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.buf) == 0 && !p.eof && p.err == nil {
		p.cond.Wait()
	}
	if p.err != nil {
		return 0, p.err
	}
	if len(p.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *memPipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil || p.eof {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, b...)
	p.cond.Broadcast()
	return len(b), nil
}

func (p *memPipe) closeWrite() {
	p.mu.Lock()
	p.eof = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *memPipe) abort(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
		p.buf = nil
	}
	p.cond.Broadcast()
	p.mu.Unlock()
}

type memStreamError struct{ code uint64 }

func (e *memStreamError) Error() string { return fmt.Sprintf("stream reset, code %d", e.code) }

type memSendStream struct{ w *memPipe }

func (s *memSendStream) Write(b []byte) (int, error) { return s.w.Write(b) }
func (s *memSendStream) Close() error                { s.w.closeWrite(); return nil }
func (s *memSendStream) CancelWrite(code uint64)     { s.w.abort(&memStreamError{code}) }

type memRecvStream struct{ r *memPipe }

func (s *memRecvStream) Read(b []byte) (int, error) { return s.r.Read(b) }
func (s *memRecvStream) CancelRead(code uint64)     { s.r.abort(&memStreamError{code}) }

type memStream struct {
	memSendStream
	memRecvStream
}

func newMemStreamPair() (local, remote *memStream) {
	a, b := newMemPipe(), newMemPipe()
	local = &memStream{memSendStream{a}, memRecvStream{b}}
	remote = &memStream{memSendStream{b}, memRecvStream{a}}
	return local, remote
}

// memConn is one endpoint of an in-memory connection pair.
type memConn struct {
	alpn string
	peer *memConn
	bidi chan Stream
	uni  chan ReceiveStream

	mu     sync.Mutex
	pipes  []*memPipe
	closed chan struct{}
	once   sync.Once
}

// newMemConnPair returns a connected client/server pair negotiated on
// alpn.
func newMemConnPair(alpn string) (client, server *memConn) {
	client = &memConn{alpn: alpn, bidi: make(chan Stream, 16), uni: make(chan ReceiveStream, 16), closed: make(chan struct{})}
	server = &memConn{alpn: alpn, bidi: make(chan Stream, 16), uni: make(chan ReceiveStream, 16), closed: make(chan struct{})}
	client.peer = server
	server.peer = client
	return client, server
}

func (c *memConn) ALPN() string { return c.alpn }

func (c *memConn) track(pipes ...*memPipe) {
	c.mu.Lock()
	c.pipes = append(c.pipes, pipes...)
	c.mu.Unlock()
}

func (c *memConn) OpenStream(ctx context.Context) (Stream, error) {
	a, b := newMemPipe(), newMemPipe()
	c.track(a, b)
	local := &memStream{memSendStream{a}, memRecvStream{b}}
	remote := &memStream{memSendStream{b}, memRecvStream{a}}
	select {
	case c.peer.bidi <- remote:
		return local, nil
	case <-c.closed:
		return nil, errConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *memConn) OpenUniStream(ctx context.Context) (SendStream, error) {
	p := newMemPipe()
	c.track(p)
	select {
	case c.peer.uni <- &memRecvStream{p}:
		return &memSendStream{p}, nil
	case <-c.closed:
		return nil, errConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *memConn) AcceptStream(ctx context.Context) (Stream, error) {
	select {
	case s := <-c.bidi:
		return s, nil
	case <-c.closed:
		return nil, errConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *memConn) AcceptUniStream(ctx context.Context) (ReceiveStream, error) {
	select {
	case s := <-c.uni:
		return s, nil
	case <-c.closed:
		return nil, errConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *memConn) CloseWithError(code uint64, reason string) error {
	c.shutdown()
	c.peer.shutdown()
	return nil
}

func (c *memConn) shutdown() {
	c.once.Do(func() {
		close(c.closed)
		c.mu.Lock()
		pipes := c.pipes
		c.pipes = nil
		c.mu.Unlock()
		for _, p := range pipes {
			p.abort(errConnClosed)
		}
	})
}
