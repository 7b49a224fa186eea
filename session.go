package moq

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/moq/wire"
)

// alpnLite is the shared TLS application protocol of the lite family;
// IETF drafts negotiate per-draft strings. The family is fixed before
// any message is parsed.
const alpnLite = "moql"

// defaultRequestWindow is the request-ID quota granted to the peer when
// the config leaves it zero.
const defaultRequestWindow = 256

// Config carries session options. The zero value is usable.
type Config struct {
	// Versions restricts the drafts this endpoint speaks, in preference
	// order. Defaults to DefaultVersions.
	Versions []Version
	// InitialMaxRequestID is the request-ID quota granted to the peer in
	// the setup handshake and rolled forward as requests are consumed.
	// IETF dialect only; lite sessions carry no request flow control.
	InitialMaxRequestID uint64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) versions() []Version {
	if c == nil || len(c.Versions) == 0 {
		return DefaultVersions
	}
	return c.Versions
}

func (c *Config) window() uint64 {
	if c == nil || c.InitialMaxRequestID == 0 {
		return defaultRequestWindow
	}
	return c.InitialMaxRequestID
}

func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Session is one protocol session over a Connection: the control stream,
// the publisher role, and the subscriber role. Both sides of a session
// may publish and subscribe.
type Session struct {
	conn    Connection
	version wire.Version
	client  bool
	log     *slog.Logger

	control *controlStream
	pub     *publisher
	sub     *subscriber

	ctx    context.Context
	cancel context.CancelCauseFunc
	eg     *errgroup.Group

	// Inbound request-ID accounting (IETF only).
	reqMu   sync.Mutex
	maxSeen uint64
	seenAny bool
	granted uint64
	window  uint64

	goAwayMu  sync.Mutex
	goAwayURI string
	goAway    bool

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// Connect performs the client side of the session handshake on conn. The
// connection's negotiated ALPN selects the wire family; the setup
// exchange then pins the draft.
func Connect(ctx context.Context, conn Connection, cfg *Config) (*Session, error) {
	offered := versionsForALPN(conn.ALPN(), cfg.versions())
	if len(offered) == 0 {
		return nil, fmt.Errorf("moq: no supported version for ALPN %q", conn.ALPN())
	}
	hv := handshakeVersion(offered[0])

	stream, err := conn.OpenStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("open control stream: %w", err)
	}
	br := bufio.NewReader(stream)

	raw := make([]uint64, len(offered))
	for i, v := range offered {
		raw[i] = uint64(v)
	}

	var negotiated Version
	var limit uint64
	if hv.Lite() {
		if err := writeHandshake(stream, hv, &wire.SessionClient{Versions: raw}); err != nil {
			return nil, err
		}
		reply, err := wire.ReadControlMessage(br, hv)
		if err != nil {
			return nil, fmt.Errorf("read session server: %w", err)
		}
		m, ok := reply.(*wire.SessionServer)
		if !ok {
			return nil, &ProtocolError{Code: ErrorCodeProtocolViolation, Message: "expected SESSION_SERVER"}
		}
		if negotiated, err = selectedVersion(m.Version, offered); err != nil {
			return nil, err
		}
	} else {
		var params wire.Parameters
		params.SetVarint(wire.ParamMaxRequestID, cfg.window())
		if err := writeHandshake(stream, hv, &wire.ClientSetup{Versions: raw, Params: params}); err != nil {
			return nil, err
		}
		reply, err := wire.ReadControlMessage(br, hv)
		if err != nil {
			return nil, fmt.Errorf("read server setup: %w", err)
		}
		m, ok := reply.(*wire.ServerSetup)
		if !ok {
			return nil, &ProtocolError{Code: ErrorCodeProtocolViolation, Message: "expected SERVER_SETUP"}
		}
		if negotiated, err = selectedVersion(m.Version, offered); err != nil {
			return nil, err
		}
		limit, _ = m.Params.Varint(wire.ParamMaxRequestID)
	}

	return newSession(conn, stream, br, negotiated, true, limit, cfg), nil
}

// Accept performs the server side of the session handshake on conn.
func Accept(ctx context.Context, conn Connection, cfg *Config) (*Session, error) {
	supported := versionsForALPN(conn.ALPN(), cfg.versions())
	if len(supported) == 0 {
		conn.CloseWithError(ErrorCodeUnsupportedVersion, "unsupported ALPN")
		return nil, fmt.Errorf("moq: no supported version for ALPN %q", conn.ALPN())
	}
	hv := handshakeVersion(supported[0])

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("accept control stream: %w", err)
	}
	br := bufio.NewReader(stream)

	first, err := wire.ReadControlMessage(br, hv)
	if err != nil {
		conn.CloseWithError(ErrorCodeProtocolViolation, "bad setup")
		return nil, fmt.Errorf("read setup: %w", err)
	}

	var negotiated Version
	var limit uint64
	switch m := first.(type) {
	case *wire.SessionClient:
		v, ok := wire.SelectVersion(supported, m.Versions)
		if !ok {
			conn.CloseWithError(ErrorCodeUnsupportedVersion, "no common version")
			return nil, fmt.Errorf("moq: no common version (offered %v)", m.Versions)
		}
		negotiated = v
		if err := writeHandshake(stream, hv, &wire.SessionServer{Version: uint64(v)}); err != nil {
			return nil, err
		}
	case *wire.ClientSetup:
		v, ok := wire.SelectVersion(supported, m.Versions)
		if !ok {
			conn.CloseWithError(ErrorCodeUnsupportedVersion, "no common version")
			return nil, fmt.Errorf("moq: no common version (offered %v)", m.Versions)
		}
		negotiated = v
		limit, _ = m.Params.Varint(wire.ParamMaxRequestID)
		var params wire.Parameters
		params.SetVarint(wire.ParamMaxRequestID, cfg.window())
		if err := writeHandshake(stream, hv, &wire.ServerSetup{Version: uint64(v), Params: params}); err != nil {
			return nil, err
		}
	default:
		conn.CloseWithError(ErrorCodeProtocolViolation, "expected setup")
		return nil, &ProtocolError{Code: ErrorCodeProtocolViolation, Message: "first control message is not a setup"}
	}

	return newSession(conn, stream, br, negotiated, false, limit, cfg), nil
}

func newSession(conn Connection, stream Stream, br *bufio.Reader, v Version, client bool, limit uint64, cfg *Config) *Session {
	role := "server"
	if client {
		role = "client"
	}
	s := &Session{
		conn:    conn,
		version: v,
		client:  client,
		log:     cfg.logger().With("component", "moq", "version", v.String(), "role", role),
		granted: cfg.window(),
		window:  cfg.window(),
	}

	s.control = newControlStream(stream, v, client, limit, br, s.log)

	s.pub = newPublisher(s)
	s.sub = newSubscriber(s)

	base, cancel := context.WithCancelCause(context.Background())
	s.cancel = cancel
	eg, ctx := errgroup.WithContext(base)
	s.eg = eg
	s.ctx = ctx

	eg.Go(s.controlLoop)
	eg.Go(s.uniStreamLoop)
	eg.Go(s.bidiStreamLoop)
	go func() {
		err := eg.Wait()
		if cause := context.Cause(base); cause != nil && !errors.Is(cause, context.Canceled) {
			err = cause
		}
		s.shutdown(err)
	}()

	s.log.Info("session established")
	return s
}

// Version returns the negotiated draft.
func (s *Session) Version() Version { return s.version }

// Publish registers the broadcast under path and announces it to the
// peer. The broadcast stays available until it is closed.
func (s *Session) Publish(path Path, b *Broadcast) error {
	if _, err := ParsePath(path.String()); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return s.pub.publish(path, b)
}

// Consume returns a handle to a peer-published broadcast. No network
// activity happens until a track is subscribed.
func (s *Session) Consume(path Path) *RemoteBroadcast {
	return &RemoteBroadcast{sess: s, path: path}
}

// Announced watches peer broadcast announcements under prefix.
func (s *Session) Announced(ctx context.Context, prefix Path) (*Announced, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.sub.announced(ctx, prefix)
}

// PeerGoAway reports whether the peer asked for a graceful shutdown, and
// the replacement session URI if it supplied one.
func (s *Session) PeerGoAway() (string, bool) {
	s.goAwayMu.Lock()
	defer s.goAwayMu.Unlock()
	return s.goAwayURI, s.goAway
}

// Close shuts the session down gracefully: GOAWAY to the peer, then the
// connection.
func (s *Session) Close() error {
	if !s.closed.Load() {
		// Best effort; the connection is about to close anyway.
		_ = s.control.send(&wire.GoAway{})
	}
	s.shutdown(nil)
	return nil
}

// Done is closed when the session has fully shut down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Err returns the session close reason, nil for a local graceful close.
func (s *Session) Err() error {
	if !s.closed.Load() {
		return nil
	}
	return s.closeErr
}

// fail tears the session down with a fatal error.
func (s *Session) fail(err error) {
	s.shutdown(err)
}

func (s *Session) shutdown(err error) {
	s.closeOnce.Do(func() {
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.closeErr = err
		s.closed.Store(true)

		code := ErrorCodeNoError
		reason := ""
		var pe *ProtocolError
		if errors.As(err, &pe) {
			code = pe.Code
			reason = pe.Message
		} else if err != nil {
			code = ErrorCodeInternal
			reason = err.Error()
		}

		closeErr := err
		if closeErr == nil {
			closeErr = ErrSessionClosed
		}
		s.control.close(closeErr)
		s.pub.closeAll()
		s.sub.closeAll(closeErr)
		s.conn.CloseWithError(code, reason)
		s.cancel(closeErr)

		if err != nil {
			s.log.Warn("session closed", "error", err)
		} else {
			s.log.Info("session closed")
		}
	})
}

// controlLoop reads and dispatches control messages until the stream
// fails. A malformed control message is session-fatal: the stream can no
// longer be trusted to be framed correctly.
func (s *Session) controlLoop() error {
	for {
		msg, err := s.control.receive()
		if err != nil {
			if s.closed.Load() || s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("control stream: %w", err)
		}
		if err := s.dispatch(msg); err != nil {
			return err
		}
	}
}

// uniStreamLoop accepts incoming group streams.
func (s *Session) uniStreamLoop() error {
	for {
		stream, err := s.conn.AcceptUniStream(s.ctx)
		if err != nil {
			if s.closed.Load() || s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept uni stream: %w", err)
		}
		go s.sub.handleGroupStream(stream)
	}
}

// bidiStreamLoop accepts secondary bidirectional streams. Only draft 16
// defines one (the dedicated announce stream); anything else is a
// protocol violation.
func (s *Session) bidiStreamLoop() error {
	for {
		stream, err := s.conn.AcceptStream(s.ctx)
		if err != nil {
			if s.closed.Load() || s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept stream: %w", err)
		}
		if s.version == VersionIETF16 {
			go s.pub.serveAnnounceStream(stream)
			continue
		}
		stream.CancelRead(ErrorCodeProtocolViolation)
		stream.CancelWrite(ErrorCodeProtocolViolation)
	}
}

// dispatch routes one control message. Returning a non-nil error kills
// the session.
func (s *Session) dispatch(msg wire.ControlMessage) error {
	switch m := msg.(type) {
	case *wire.Subscribe:
		if err := s.consumeInboundRequest(m.RequestID); err != nil {
			return err
		}
		s.pub.handleSubscribe(m)
	case *wire.SubscribeOk:
		s.sub.handleSubscribeOk(m)
	case *wire.SubscribeError:
		s.sub.handleRequestError(m.RequestID, m.ErrorCode, m.Reason)
	case *wire.RequestError:
		s.sub.handleRequestError(m.RequestID, m.ErrorCode, m.Reason)
	case *wire.RequestOk:
		s.log.Debug("request ok", "requestID", m.RequestID)
	case *wire.Unsubscribe:
		s.pub.handleUnsubscribe(m)
	case *wire.SubscribeUpdate:
		s.pub.handleSubscribeUpdate(m)
	case *wire.PublishDone:
		s.sub.handlePublishDone(m)

	case *wire.PublishNamespace:
		if err := s.consumeInboundRequest(m.RequestID); err != nil {
			return err
		}
		s.sub.handlePublishNamespace(m)
	case *wire.PublishNamespaceDone:
		s.sub.handlePublishNamespaceDone(m)
	case *wire.PublishNamespaceOk:
		s.log.Debug("announce acknowledged", "requestID", m.RequestID)
	case *wire.PublishNamespaceError:
		s.sub.handleRequestError(m.RequestID, m.ErrorCode, m.Reason)
	case *wire.PublishNamespaceCancel:
		s.pub.handleAnnounceCancel(m)

	case *wire.SubscribeNamespace:
		if err := s.consumeInboundRequest(m.RequestID); err != nil {
			return err
		}
		s.pub.handleSubscribeNamespace(m)
	case *wire.SubscribeNamespaceOk:
		s.log.Debug("namespace subscription acknowledged", "requestID", m.RequestID)
	case *wire.SubscribeNamespaceError:
		s.sub.handleRequestError(m.RequestID, m.ErrorCode, m.Reason)
	case *wire.UnsubscribeNamespace:
		s.log.Debug("namespace unsubscribed")
	case *wire.Announce:
		s.sub.handleAnnounce(m)
	case *wire.AnnouncePlease:
		s.pub.handleAnnouncePlease(m)

	case *wire.MaxRequestID:
		if err := s.control.setMaxRequestID(m.MaxRequestID); err != nil {
			return err
		}
	case *wire.RequestsBlocked:
		s.log.Debug("peer blocked on request quota", "limit", m.MaxRequestID)

	case *wire.GoAway:
		s.goAwayMu.Lock()
		s.goAwayURI = m.URI
		s.goAway = true
		s.goAwayMu.Unlock()
		s.log.Info("peer going away", "uri", m.URI)
	case *wire.SessionUpdate:
		s.log.Debug("session update", "bitrate", m.Bitrate)

	case *wire.Fetch:
		if err := s.consumeInboundRequest(m.RequestID); err != nil {
			return err
		}
		s.rejectRequest(m.RequestID, "fetch not supported")
	case *wire.TrackStatusRequest:
		if err := s.consumeInboundRequest(m.RequestID); err != nil {
			return err
		}
		s.pub.handleTrackStatusRequest(m)
	case *wire.TrackStatus:
		s.log.Debug("track status", "status", m.Status)
	case *wire.Publish:
		if err := s.consumeInboundRequest(m.RequestID); err != nil {
			return err
		}
		// Draft 14 has no generic request error to decline with.
		if s.version == VersionIETF14 {
			s.log.Debug("ignoring publish offer", "requestID", m.RequestID)
		} else {
			s.rejectRequest(m.RequestID, "publish offers not supported")
		}
	case *wire.FetchCancel, *wire.FetchOk, *wire.FetchError, *wire.PublishOk:
		s.log.Debug("ignoring unsupported message", "type", fmt.Sprintf("%T", m))

	case *wire.ClientSetup, *wire.ServerSetup, *wire.SessionClient, *wire.SessionServer:
		return &ProtocolError{Code: ErrorCodeProtocolViolation, Message: "setup message after handshake"}
	default:
		return &ProtocolError{
			Code:    ErrorCodeProtocolViolation,
			Message: fmt.Sprintf("unhandled control message %T", m),
		}
	}
	return nil
}

// rejectRequest answers an unsupported request with the dialect's error
// message where one exists.
func (s *Session) rejectRequest(requestID uint64, reason string) {
	var m wire.ControlMessage
	switch s.version {
	case VersionIETF14:
		m = &wire.FetchError{RequestID: requestID, ErrorCode: RequestErrorNotSupported, Reason: reason}
	case VersionIETF15, VersionIETF16:
		m = &wire.RequestError{RequestID: requestID, ErrorCode: RequestErrorNotSupported, Reason: reason}
	default:
		return
	}
	if err := s.control.send(m); err != nil {
		s.log.Debug("reject failed", "requestID", requestID, "error", err)
	}
}

// consumeInboundRequest validates a peer-allocated request ID against
// parity and the granted quota, and rolls the quota window forward as it
// fills. Lite sessions have no request flow control.
func (s *Session) consumeInboundRequest(id uint64) error {
	if s.version.Lite() {
		return nil
	}

	peerParity := uint64(1)
	if !s.client {
		peerParity = 0
	}
	if id%2 != peerParity {
		return &ProtocolError{
			Code:    ErrorCodeProtocolViolation,
			Message: fmt.Sprintf("request ID %d has local parity", id),
		}
	}

	s.reqMu.Lock()
	if id >= s.granted {
		granted := s.granted
		s.reqMu.Unlock()
		return &ProtocolError{
			Code:    ErrorCodeProtocolViolation,
			Message: fmt.Sprintf("request ID %d exceeds granted maximum %d", id, granted),
		}
	}
	if !s.seenAny || id > s.maxSeen {
		s.maxSeen = id
		s.seenAny = true
	}
	var grant uint64
	if s.granted-s.maxSeen <= s.window/2 {
		s.granted += s.window
		grant = s.granted
	}
	s.reqMu.Unlock()

	if grant > 0 {
		if err := s.control.send(&wire.MaxRequestID{MaxRequestID: grant}); err != nil {
			return err
		}
	}
	return nil
}

// versionsForALPN filters the supported set down to the family (or
// single draft) the transport handshake selected.
func versionsForALPN(alpn string, supported []Version) []Version {
	var out []Version
	for _, v := range supported {
		if v.ALPN() == alpn {
			out = append(out, v)
		}
	}
	if alpn == alpnLite {
		return out
	}
	if len(out) > 1 {
		// IETF ALPNs pin a single draft.
		return out[:1]
	}
	return out
}

// handshakeVersion picks the version used to frame setup messages before
// negotiation completes. Setup layouts are identical within a family.
func handshakeVersion(v Version) Version {
	if v.Lite() {
		return VersionLite03
	}
	return v
}

func selectedVersion(raw uint64, offered []Version) (Version, error) {
	v, err := wire.ParseVersion(raw)
	if err != nil {
		return 0, err
	}
	for _, o := range offered {
		if o == v {
			return v, nil
		}
	}
	return 0, &ProtocolError{
		Code:    ErrorCodeUnsupportedVersion,
		Message: fmt.Sprintf("server selected unoffered version %s", v),
	}
}

func writeHandshake(stream Stream, v Version, m wire.ControlMessage) error {
	buf, err := wire.AppendControlMessage(nil, v, m)
	if err != nil {
		return fmt.Errorf("encode setup: %w", err)
	}
	if _, err := stream.Write(buf); err != nil {
		return fmt.Errorf("write setup: %w", err)
	}
	return nil
}
