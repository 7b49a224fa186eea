package moq

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zsiec/moq/wire"
)

// controlStream owns the session's single bidirectional control stream.
// Reads and writes are each serialized under their own mutex so one
// message's bytes are never interleaved with another's, while a read and
// a write may proceed concurrently. It also owns outbound request-ID
// allocation: IDs start at 0 (client) or 1 (server) and grow by 2, and in
// the IETF dialect allocation suspends at the peer-granted ceiling until
// a MAX_REQUEST_ID raises it. Lite sessions carry no request flow control
// and allocate without bound.
type controlStream struct {
	version wire.Version
	stream  Stream
	log     *slog.Logger

	readMu sync.Mutex
	br     *bufio.Reader

	writeMu sync.Mutex
	wbuf    []byte

	mu          sync.Mutex
	nextID      uint64
	limit       uint64 // exclusive ceiling on outbound IDs
	unlimited   bool
	blockedSent bool
	raised      chan struct{} // replaced each time the ceiling moves
	closed      bool
	closeErr    error
}

// newControlStream wraps the stream after the setup handshake. br is the
// handshake's reader so that any control bytes already buffered behind
// the setup message are not lost.
func newControlStream(stream Stream, v wire.Version, client bool, limit uint64, br *bufio.Reader, log *slog.Logger) *controlStream {
	cs := &controlStream{
		version:   v,
		stream:    stream,
		log:       log,
		br:        br,
		limit:     limit,
		unlimited: v.Lite(),
		raised:    make(chan struct{}),
	}
	if !client {
		cs.nextID = 1
	}
	return cs
}

// send encodes and writes one control message as a single Write call.
func (c *controlStream) send(m wire.ControlMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	buf, err := wire.AppendControlMessage(c.wbuf[:0], c.version, m)
	if err != nil {
		return fmt.Errorf("encode control message: %w", err)
	}
	c.wbuf = buf
	if _, err := c.stream.Write(buf); err != nil {
		return fmt.Errorf("write control message: %w", err)
	}
	return nil
}

// receive reads and decodes the next control message. A decode error
// means the stream can no longer be trusted to be framed correctly; the
// caller treats it as session-fatal.
func (c *controlStream) receive() (wire.ControlMessage, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()
	return wire.ReadControlMessage(c.br, c.version)
}

// nextRequestID allocates the next outbound request ID. When allocation
// reaches the ceiling it announces REQUESTS_BLOCKED once per stall and
// suspends until the peer raises the ceiling, ctx ends, or the stream
// closes (close resolves the wait so callers never deadlock).
func (c *controlStream) nextRequestID(ctx context.Context) (uint64, error) {
	for {
		c.mu.Lock()
		if c.closed {
			err := c.closeErr
			c.mu.Unlock()
			if err == nil {
				err = ErrSessionClosed
			}
			return 0, err
		}
		if c.unlimited || c.nextID < c.limit {
			id := c.nextID
			c.nextID += 2
			c.mu.Unlock()
			return id, nil
		}
		wait := c.raised
		limit := c.limit
		announce := !c.blockedSent
		c.blockedSent = true
		c.mu.Unlock()

		if announce {
			if err := c.send(&wire.RequestsBlocked{MaxRequestID: limit}); err != nil {
				return 0, err
			}
			c.log.Debug("request allocation blocked", "limit", limit)
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// peekNextRequestID reports the next unallocated outbound ID, used by the
// subscriber's track-alias plausibility check.
func (c *controlStream) peekNextRequestID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextID
}

// setMaxRequestID raises the outbound ceiling. A non-increasing value is
// a protocol violation.
func (c *controlStream) setMaxRequestID(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	if n <= c.limit {
		return &ProtocolError{
			Code:    ErrorCodeProtocolViolation,
			Message: fmt.Sprintf("max request ID did not increase (%d -> %d)", c.limit, n),
		}
	}
	c.limit = n
	c.blockedSent = false
	close(c.raised)
	c.raised = make(chan struct{})
	return nil
}

// controlFramer frames control messages on a secondary stream (the
// draft-16 dedicated announce streams). Unlike controlStream it has a
// single owner per direction, so no locking.
type controlFramer struct {
	version wire.Version
	stream  Stream
	br      *bufio.Reader
	wbuf    []byte
}

func newControlFramer(stream Stream, v wire.Version) *controlFramer {
	return &controlFramer{
		version: v,
		stream:  stream,
		br:      bufio.NewReader(stream),
	}
}

func (f *controlFramer) send(m wire.ControlMessage) error {
	buf, err := wire.AppendControlMessage(f.wbuf[:0], f.version, m)
	if err != nil {
		return fmt.Errorf("encode control message: %w", err)
	}
	f.wbuf = buf
	if _, err := f.stream.Write(buf); err != nil {
		return fmt.Errorf("write control message: %w", err)
	}
	return nil
}

func (f *controlFramer) receive() (wire.ControlMessage, error) {
	return wire.ReadControlMessage(f.br, f.version)
}

// close marks the stream closed and wakes every waiter in nextRequestID.
func (c *controlStream) close(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	close(c.raised)
}
