package moq

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/zsiec/moq/wire"
)

// subscriber tracks this session's outgoing subscriptions and mirrors
// peer announcements. The subscription maps are mutated only here;
// incoming group streams read them by track alias.
type subscriber struct {
	sess   *Session
	log    *slog.Logger
	remote *announceIndex // peer-announced paths

	mu            sync.Mutex
	pending       map[uint64]*subscription // awaiting first response, by request ID
	byID          map[uint64]*subscription
	byAlias       map[uint64]*subscription
	announceByReq map[uint64]Path // peer announce request ID -> path, drafts 15+
}

// subscription is one requested track: the network side writes incoming
// groups into writer, the application reads them from reader.
type subscription struct {
	id     uint64
	alias  uint64
	writer *TrackWriter
	reader *Track
	first  chan error // first response resolves the Subscribe call
}

func newSubscriber(s *Session) *subscriber {
	return &subscriber{
		sess:          s,
		log:           s.log.With("role", "subscriber"),
		remote:        newAnnounceIndex(),
		pending:       make(map[uint64]*subscription),
		byID:          make(map[uint64]*subscription),
		byAlias:       make(map[uint64]*subscription),
		announceByReq: make(map[uint64]Path),
	}
}

// RemoteBroadcast is a placeholder for a peer-published broadcast.
// Creating it involves no network activity; each Subscribe call issues
// its own request.
type RemoteBroadcast struct {
	sess *Session
	path Path
}

// Path returns the broadcast path.
func (b *RemoteBroadcast) Path() Path { return b.path }

// Subscribe requests one track of the broadcast. The first peer response
// must be an OK; any other first response fails this track only. The
// returned track ends when the publisher sends its done message, and
// closing it locally unsubscribes.
func (b *RemoteBroadcast) Subscribe(ctx context.Context, track string) (*Track, error) {
	return b.sess.sub.subscribe(ctx, b.path, track)
}

func (s *subscriber) subscribe(ctx context.Context, path Path, track string) (*Track, error) {
	sess := s.sess

	id, err := sess.control.nextRequestID(ctx)
	if err != nil {
		return nil, err
	}

	writer, reader := newTrackPipe(track)
	sub := &subscription{
		id:     id,
		alias:  id, // replaced by the alias bound in SUBSCRIBE_OK
		writer: writer,
		reader: reader,
		first:  make(chan error, 1),
	}
	s.mu.Lock()
	s.pending[id] = sub
	s.mu.Unlock()

	err = sess.control.send(&wire.Subscribe{
		RequestID:  id,
		Broadcast:  path.Segments(),
		Track:      track,
		Priority:   128,
		GroupOrder: wire.GroupOrderAscending,
		Forward:    1,
		Filter:     wire.FilterLatestObject,
	})
	if err != nil {
		s.drop(sub)
		return nil, err
	}

	select {
	case err := <-sub.first:
		if err != nil {
			s.drop(sub)
			return nil, err
		}
	case <-ctx.Done():
		s.drop(sub)
		return nil, ctx.Err()
	case <-sess.ctx.Done():
		s.drop(sub)
		return nil, ErrSessionClosed
	}

	reader.setOnClose(func() { s.unsubscribe(sub) })
	return reader, nil
}

// drop removes a subscription from every map without teardown messages.
func (s *subscriber) drop(sub *subscription) {
	s.mu.Lock()
	delete(s.pending, sub.id)
	delete(s.byID, sub.id)
	if s.byAlias[sub.alias] == sub {
		delete(s.byAlias, sub.alias)
	}
	s.mu.Unlock()
}

// unsubscribe tears one subscription down after a local track close.
func (s *subscriber) unsubscribe(sub *subscription) {
	s.mu.Lock()
	_, known := s.byID[sub.id]
	s.mu.Unlock()
	if !known {
		return
	}
	s.drop(sub)
	err := s.sess.control.send(&wire.Unsubscribe{RequestID: sub.id})
	if err != nil {
		s.log.Debug("unsubscribe failed", "requestID", sub.id, "error", err)
	}
}

// handleSubscribeOk resolves a pending subscription and binds its alias.
func (s *subscriber) handleSubscribeOk(m *wire.SubscribeOk) {
	s.mu.Lock()
	sub := s.pending[m.RequestID]
	if sub != nil {
		delete(s.pending, m.RequestID)
		sub.alias = m.TrackAlias
		s.byID[sub.id] = sub
		s.byAlias[sub.alias] = sub
	}
	s.mu.Unlock()
	if sub == nil {
		s.log.Debug("subscribe ok for unknown request", "requestID", m.RequestID)
		return
	}
	sub.first <- nil
}

// handleRequestError fails whichever pending request the ID belongs to.
// Errors for non-subscription requests (namespace operations) are logged;
// they fail silently by design since announcements are advisory.
func (s *subscriber) handleRequestError(requestID, code uint64, reason string) {
	s.mu.Lock()
	sub := s.pending[requestID]
	if sub != nil {
		delete(s.pending, requestID)
	}
	s.mu.Unlock()
	if sub == nil {
		s.log.Debug("request rejected", "requestID", requestID, "code", code, "reason", reason)
		return
	}
	sub.first <- &RequestError{Code: code, Reason: reason}
}

// handlePublishDone ends a subscription from the publishing side.
func (s *subscriber) handlePublishDone(m *wire.PublishDone) {
	s.mu.Lock()
	sub := s.byID[m.RequestID]
	pendingSub := s.pending[m.RequestID]
	s.mu.Unlock()

	if pendingSub != nil {
		// The first response to a subscribe must be an OK.
		pendingSub.first <- &ProtocolError{
			Code:    ErrorCodeProtocolViolation,
			Message: "publish done before subscribe ok",
		}
		return
	}
	if sub == nil {
		return
	}
	s.drop(sub)
	if m.Status == wire.PublishDoneFinished {
		sub.writer.Close()
	} else {
		sub.writer.CloseWithError(fmt.Errorf("%w: publish done (%#x): %s",
			ErrTrackClosed, m.Status, m.Reason))
	}
}

// handleGroupStream decodes one incoming unidirectional group stream and
// feeds it into the subscription matched by track alias. An alias at or
// above the next unallocated request ID cannot belong to any past
// subscription and is a protocol error; below it, the stream is late
// data for a closed subscription and is discarded.
func (s *subscriber) handleGroupStream(stream ReceiveStream) {
	br := bufio.NewReader(stream)
	h, err := wire.ReadGroupHeader(br)
	if err != nil {
		stream.CancelRead(ErrorCodeProtocolViolation)
		s.log.Debug("bad group header", "error", err)
		return
	}

	s.mu.Lock()
	sub := s.byAlias[h.TrackAlias]
	s.mu.Unlock()
	if sub == nil {
		if h.TrackAlias >= s.sess.control.peekNextRequestID() {
			s.sess.fail(&ProtocolError{
				Code:    ErrorCodeProtocolViolation,
				Message: fmt.Sprintf("group stream for unallocated track alias %d", h.TrackAlias),
			})
			return
		}
		stream.CancelRead(ErrorCodeNoError)
		return
	}

	gw, err := sub.writer.OpenGroup(h.Sequence)
	if err != nil {
		stream.CancelRead(ErrorCodeNoError)
		s.log.Debug("group rejected", "sequence", h.Sequence, "error", err)
		return
	}

	for {
		o, err := wire.ReadObject(br, h)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Clean FIN without an explicit end marker.
				gw.Close()
				return
			}
			gw.CloseWithError(err)
			stream.CancelRead(ErrorCodeProtocolViolation)
			return
		}
		if o.End {
			gw.Close()
			return
		}
		if o.Delta != 0 {
			s.log.Warn("non-zero object ID delta ignored",
				"alias", h.TrackAlias, "sequence", h.Sequence, "delta", o.Delta)
		}
		if err := gw.WriteFrame(o.Payload); err != nil {
			stream.CancelRead(ErrorCodeNoError)
			return
		}
	}
}

// announced returns a watch over peer broadcasts under prefix. Draft 16
// runs the watch on a dedicated stream; all other dialects request
// updates on the control stream and filter the mirrored announcement
// index.
func (s *subscriber) announced(ctx context.Context, prefix Path) (*Announced, error) {
	sess := s.sess
	switch sess.version {
	case VersionLite01, VersionLite02, VersionLite03:
		watch := newAnnounced(nil)
		watch.onClose = func() { s.remote.unwatch(watch) }
		s.remote.watch(prefix, watch)
		if err := sess.control.send(&wire.AnnouncePlease{Prefix: prefix.String()}); err != nil {
			watch.Close()
			return nil, err
		}
		return watch, nil

	case VersionIETF14, VersionIETF15:
		id, err := sess.control.nextRequestID(ctx)
		if err != nil {
			return nil, err
		}
		watch := newAnnounced(nil)
		watch.onClose = func() {
			s.remote.unwatch(watch)
			unsub := &wire.UnsubscribeNamespace{RequestID: id}
			if sess.version == VersionIETF14 {
				unsub = &wire.UnsubscribeNamespace{Prefix: prefix.Segments()}
			}
			if err := sess.control.send(unsub); err != nil {
				s.log.Debug("namespace unsubscribe failed", "error", err)
			}
		}
		s.remote.watch(prefix, watch)
		err = sess.control.send(&wire.SubscribeNamespace{
			RequestID: id,
			Prefix:    prefix.Segments(),
		})
		if err != nil {
			watch.Close()
			return nil, err
		}
		return watch, nil

	case VersionIETF16:
		return s.announcedStream(ctx, prefix)
	}
	return nil, &wire.ErrUnknownVersion{Value: uint64(sess.version)}
}

// announcedStream opens the draft-16 dedicated announce stream.
func (s *subscriber) announcedStream(ctx context.Context, prefix Path) (*Announced, error) {
	sess := s.sess

	id, err := sess.control.nextRequestID(ctx)
	if err != nil {
		return nil, err
	}
	stream, err := sess.conn.OpenStream(ctx)
	if err != nil {
		return nil, err
	}

	framer := newControlFramer(stream, sess.version)
	err = framer.send(&wire.SubscribeNamespace{RequestID: id, Prefix: prefix.Segments()})
	if err != nil {
		stream.CancelWrite(ErrorCodeInternal)
		stream.CancelRead(ErrorCodeInternal)
		return nil, err
	}

	watch := newAnnounced(func() {
		// Closing our sending side tells the publisher to stop.
		stream.Close()
		stream.CancelRead(ErrorCodeNoError)
	})

	go func() {
		defer watch.Close()
		byReq := make(map[uint64]Path)

		first, err := framer.receive()
		if err != nil {
			return
		}
		switch m := first.(type) {
		case *wire.RequestOk:
		case *wire.RequestError:
			s.log.Debug("announce watch rejected", "code", m.ErrorCode, "reason", m.Reason)
			return
		default:
			sess.fail(&ProtocolError{
				Code:    ErrorCodeProtocolViolation,
				Message: "unexpected first message on announce stream",
			})
			return
		}

		for {
			msg, err := framer.receive()
			if err != nil {
				return
			}
			switch m := msg.(type) {
			case *wire.PublishNamespace:
				path, err := PathFromSegments(m.Namespace)
				if err != nil {
					continue
				}
				byReq[m.RequestID] = path
				watch.deliver(Announcement{Path: path, Active: true})
			case *wire.PublishNamespaceDone:
				path, ok := byReq[m.RequestID]
				if !ok {
					continue
				}
				delete(byReq, m.RequestID)
				watch.deliver(Announcement{Path: path, Active: false})
			default:
				s.log.Debug("unexpected message on announce stream")
			}
		}
	}()
	return watch, nil
}

// handleAnnounce mirrors a lite-dialect announcement.
func (s *subscriber) handleAnnounce(m *wire.Announce) {
	path, err := ParsePath(m.Path)
	if err != nil {
		s.log.Debug("announce with invalid path", "path", m.Path)
		return
	}
	s.remote.announce(path, m.Active)
}

// handlePublishNamespace mirrors an IETF announcement and acknowledges it.
func (s *subscriber) handlePublishNamespace(m *wire.PublishNamespace) {
	sess := s.sess
	path, err := PathFromSegments(m.Namespace)
	if err != nil {
		s.log.Debug("announce with invalid namespace", "error", err)
		return
	}

	s.mu.Lock()
	s.announceByReq[m.RequestID] = path
	s.mu.Unlock()
	s.remote.announce(path, true)

	var reply wire.ControlMessage
	switch sess.version {
	case VersionIETF14:
		reply = &wire.PublishNamespaceOk{RequestID: m.RequestID}
	case VersionIETF15, VersionIETF16:
		reply = &wire.RequestOk{RequestID: m.RequestID}
	default:
		return
	}
	if err := sess.control.send(reply); err != nil {
		s.log.Debug("announce ack failed", "error", err)
	}
}

// handlePublishNamespaceDone mirrors an announcement withdrawal.
func (s *subscriber) handlePublishNamespaceDone(m *wire.PublishNamespaceDone) {
	var path Path
	switch s.sess.version {
	case VersionIETF14:
		var err error
		if path, err = PathFromSegments(m.Namespace); err != nil {
			return
		}
	case VersionIETF15, VersionIETF16:
		s.mu.Lock()
		path = s.announceByReq[m.RequestID]
		delete(s.announceByReq, m.RequestID)
		s.mu.Unlock()
		if path == "" {
			return
		}
	default:
		return
	}
	s.remote.announce(path, false)
}

// closeAll fails every in-flight and active subscription; called on
// session close.
func (s *subscriber) closeAll(err error) {
	s.mu.Lock()
	pending := make([]*subscription, 0, len(s.pending))
	for _, sub := range s.pending {
		pending = append(pending, sub)
	}
	active := make([]*subscription, 0, len(s.byID))
	for _, sub := range s.byID {
		active = append(active, sub)
	}
	s.pending = make(map[uint64]*subscription)
	s.byID = make(map[uint64]*subscription)
	s.byAlias = make(map[uint64]*subscription)
	s.mu.Unlock()

	if err == nil {
		err = ErrSessionClosed
	}
	for _, sub := range pending {
		select {
		case sub.first <- err:
		default:
		}
	}
	for _, sub := range active {
		sub.writer.CloseWithError(err)
	}
}
