package moq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zsiec/moq/wire"
)

// publisher holds the session's announced broadcasts and serves inbound
// subscriptions. The announcement index and broadcast map are mutated
// only here; background tasks read them through index watchers.
type publisher struct {
	sess  *Session
	log   *slog.Logger
	index *announceIndex

	mu          sync.Mutex
	broadcasts  map[Path]*Broadcast
	announceIDs map[Path]uint64 // request ID of our PUBLISH_NAMESPACE, drafts 15+
	subs        map[uint64]*publishedSub
}

// publishedSub is one peer subscription being served: a track reader fed
// by the broadcast's handler, drained group by group onto uni streams.
type publishedSub struct {
	id       uint64
	alias    uint64
	priority atomic.Uint32
	track    *Track
	cancel   context.CancelFunc
}

func newPublisher(s *Session) *publisher {
	return &publisher{
		sess:        s,
		log:         s.log.With("role", "publisher"),
		index:       newAnnounceIndex(),
		broadcasts:  make(map[Path]*Broadcast),
		announceIDs: make(map[Path]uint64),
		subs:        make(map[uint64]*publishedSub),
	}
}

// publish registers the broadcast, announces it, and watches its closure
// in the background so one broadcast's lifecycle never blocks another's.
func (p *publisher) publish(path Path, b *Broadcast) error {
	p.mu.Lock()
	if _, dup := p.broadcasts[path]; dup {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateBroadcast, path)
	}
	p.broadcasts[path] = b
	p.mu.Unlock()

	p.index.announce(path, true)

	if err := p.sendAnnounce(path); err != nil {
		p.mu.Lock()
		delete(p.broadcasts, path)
		p.mu.Unlock()
		p.index.announce(path, false)
		return err
	}

	go p.watchBroadcastClose(path, b)
	return nil
}

// sendAnnounce emits the dialect-appropriate announcement. Lite watchers
// and draft-16 announce streams are fed from the index, so those dialects
// send nothing on the control stream here.
func (p *publisher) sendAnnounce(path Path) error {
	s := p.sess
	switch s.version {
	case VersionLite01, VersionLite02, VersionLite03, VersionIETF16:
		return nil
	case VersionIETF14, VersionIETF15:
		id, err := s.control.nextRequestID(s.ctx)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.announceIDs[path] = id
		p.mu.Unlock()
		return s.control.send(&wire.PublishNamespace{
			RequestID: id,
			Namespace: path.Segments(),
		})
	}
	return &wire.ErrUnknownVersion{Value: uint64(s.version)}
}

func (p *publisher) watchBroadcastClose(path Path, b *Broadcast) {
	select {
	case <-b.Done():
	case <-p.sess.ctx.Done():
		return
	}
	p.unannounce(path)
}

// unannounce withdraws the broadcast's announcement and de-registers it.
func (p *publisher) unannounce(path Path) {
	p.mu.Lock()
	delete(p.broadcasts, path)
	announceID, hadID := p.announceIDs[path]
	delete(p.announceIDs, path)
	p.mu.Unlock()

	if !p.index.announce(path, false) {
		return
	}

	s := p.sess
	switch s.version {
	case VersionLite01, VersionLite02, VersionLite03, VersionIETF16:
		// Index watchers forward the inactive transition.
	case VersionIETF14:
		if err := s.control.send(&wire.PublishNamespaceDone{Namespace: path.Segments()}); err != nil {
			p.log.Debug("unannounce failed", "path", path, "error", err)
		}
	case VersionIETF15:
		if !hadID {
			return
		}
		if err := s.control.send(&wire.PublishNamespaceDone{RequestID: announceID}); err != nil {
			p.log.Debug("unannounce failed", "path", path, "error", err)
		}
	}
}

// handleSubscribe serves one inbound SUBSCRIBE: looks the broadcast up,
// binds a track alias (reusing the request ID), and spawns the group
// streaming task.
func (p *publisher) handleSubscribe(m *wire.Subscribe) {
	s := p.sess

	path, err := PathFromSegments(m.Broadcast)
	if err != nil {
		p.rejectSubscribe(m.RequestID, RequestErrorTrackDoesNotExist, "invalid broadcast path")
		return
	}

	p.mu.Lock()
	b := p.broadcasts[path]
	p.mu.Unlock()
	if b == nil {
		p.rejectSubscribe(m.RequestID, RequestErrorTrackDoesNotExist, "unknown broadcast")
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	track, ok := b.subscribeTrack(ctx, m.Track)
	if !ok {
		cancel()
		p.rejectSubscribe(m.RequestID, RequestErrorTrackDoesNotExist, "unknown track")
		return
	}

	sub := &publishedSub{
		id:     m.RequestID,
		alias:  m.RequestID,
		track:  track,
		cancel: cancel,
	}
	sub.priority.Store(uint32(m.Priority))

	p.mu.Lock()
	p.subs[sub.id] = sub
	p.mu.Unlock()

	err = s.control.send(&wire.SubscribeOk{
		RequestID:  sub.id,
		TrackAlias: sub.alias,
		Priority:   m.Priority,
		GroupOrder: wire.GroupOrderAscending,
	})
	if err != nil {
		p.removeSub(sub)
		return
	}

	p.log.Debug("subscription accepted",
		"path", path, "track", m.Track, "requestID", sub.id)
	go p.runSubscription(ctx, sub)
}

func (p *publisher) rejectSubscribe(requestID, code uint64, reason string) {
	s := p.sess
	var m wire.ControlMessage
	switch s.version {
	case VersionLite01, VersionLite02, VersionLite03, VersionIETF14:
		m = &wire.SubscribeError{RequestID: requestID, ErrorCode: code, Reason: reason}
	case VersionIETF15, VersionIETF16:
		m = &wire.RequestError{RequestID: requestID, ErrorCode: code, Reason: reason}
	default:
		return
	}
	if err := s.control.send(m); err != nil {
		p.log.Debug("subscribe reject failed", "requestID", requestID, "error", err)
	}
}

// runSubscription pulls groups from the track and streams each on its
// own unidirectional stream. A failure in one group's stream aborts only
// that stream.
func (p *publisher) runSubscription(ctx context.Context, sub *publishedSub) {
	defer p.removeSub(sub)

	var streams sync.WaitGroup
	for {
		g, err := sub.track.NextGroup(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				// Let in-flight group streams finish before declaring the
				// subscription done.
				streams.Wait()
				p.sendPublishDone(sub.id, wire.PublishDoneFinished, "end of track")
			case errors.Is(err, context.Canceled):
				p.sendPublishDone(sub.id, wire.PublishDoneCancelled, "unsubscribed")
			default:
				p.sendPublishDone(sub.id, wire.PublishDoneError, err.Error())
			}
			return
		}
		streams.Add(1)
		go func() {
			defer streams.Done()
			p.streamGroup(ctx, sub, g)
		}()
	}
}

func (p *publisher) sendPublishDone(requestID, status uint64, reason string) {
	err := p.sess.control.send(&wire.PublishDone{
		RequestID: requestID,
		Status:    status,
		Reason:    reason,
	})
	if err != nil {
		p.log.Debug("publish done failed", "requestID", requestID, "error", err)
	}
}

// streamGroup writes one group onto a fresh unidirectional stream: the
// header once, then each frame as the handler produces it, then the
// explicit end marker.
func (p *publisher) streamGroup(ctx context.Context, sub *publishedSub, g *Group) {
	st, err := p.sess.conn.OpenUniStream(ctx)
	if err != nil {
		p.log.Debug("open group stream failed", "group", g.Sequence(), "error", err)
		g.Close()
		return
	}

	h := wire.GroupHeader{
		TrackAlias:  sub.alias,
		Sequence:    g.Sequence(),
		Priority:    byte(sub.priority.Load()),
		HasPriority: true,
		EndMarker:   true,
	}
	buf := h.Append(nil)
	if _, err := st.Write(buf); err != nil {
		st.CancelWrite(ErrorCodeInternal)
		g.Close()
		return
	}

	for {
		frame, err := g.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				buf = wire.AppendEndOfGroup(buf[:0])
				if _, err := st.Write(buf); err == nil {
					st.Close()
					return
				}
			}
			st.CancelWrite(ErrorCodeInternal)
			g.Close()
			return
		}
		buf = wire.AppendObject(buf[:0], frame)
		if _, err := st.Write(buf); err != nil {
			st.CancelWrite(ErrorCodeInternal)
			g.Close()
			return
		}
	}
}

func (p *publisher) removeSub(sub *publishedSub) {
	p.mu.Lock()
	if p.subs[sub.id] == sub {
		delete(p.subs, sub.id)
	}
	p.mu.Unlock()
	sub.cancel()
	sub.track.Close()
}

// handleUnsubscribe cancels one served subscription.
func (p *publisher) handleUnsubscribe(m *wire.Unsubscribe) {
	p.mu.Lock()
	sub := p.subs[m.RequestID]
	p.mu.Unlock()
	if sub == nil {
		p.log.Debug("unsubscribe for unknown request", "requestID", m.RequestID)
		return
	}
	sub.cancel()
}

// handleSubscribeUpdate adjusts the priority used for subsequent groups.
func (p *publisher) handleSubscribeUpdate(m *wire.SubscribeUpdate) {
	p.mu.Lock()
	sub := p.subs[m.RequestID]
	p.mu.Unlock()
	if sub == nil {
		return
	}
	sub.priority.Store(uint32(m.Priority))
}

// handleAnnouncePlease starts forwarding lite-dialect announcements for
// the requested prefix: the current active set first, then transitions.
func (p *publisher) handleAnnouncePlease(m *wire.AnnouncePlease) {
	s := p.sess
	prefix := Path(m.Prefix)

	watch := newAnnounced(nil)
	p.index.watch(prefix, watch)
	go func() {
		defer p.index.unwatch(watch)
		for {
			ann, err := watch.Next(s.ctx)
			if err != nil {
				return
			}
			err = s.control.send(&wire.Announce{
				Path:   ann.Path.String(),
				Active: ann.Active,
			})
			if err != nil {
				return
			}
		}
	}()
}

// handleSubscribeNamespace acknowledges an IETF namespace subscription.
// Announcements already flow proactively on the control stream (drafts
// 14/15) or over dedicated announce streams (draft 16), so the watcher
// filters on its own side.
func (p *publisher) handleSubscribeNamespace(m *wire.SubscribeNamespace) {
	s := p.sess
	var reply wire.ControlMessage
	switch s.version {
	case VersionIETF14:
		reply = &wire.SubscribeNamespaceOk{RequestID: m.RequestID}
	case VersionIETF15, VersionIETF16:
		reply = &wire.RequestOk{RequestID: m.RequestID}
	default:
		return
	}
	if err := s.control.send(reply); err != nil {
		p.log.Debug("namespace subscription ack failed", "error", err)
	}
}

// handleAnnounceCancel withdraws an announcement at the peer's request.
// The broadcast itself stays subscribable; only the announcement state
// changes.
func (p *publisher) handleAnnounceCancel(m *wire.PublishNamespaceCancel) {
	var path Path
	switch p.sess.version {
	case VersionIETF14:
		var err error
		if path, err = PathFromSegments(m.Namespace); err != nil {
			return
		}
	case VersionIETF15, VersionIETF16:
		p.mu.Lock()
		for candidate, id := range p.announceIDs {
			if id == m.RequestID {
				path = candidate
				break
			}
		}
		p.mu.Unlock()
		if path == "" {
			return
		}
	default:
		return
	}
	p.log.Debug("announcement cancelled by peer", "path", path, "code", m.ErrorCode)
	p.unannounce(path)
}

// handleTrackStatusRequest answers a draft-14 status probe from the
// announcement index.
func (p *publisher) handleTrackStatusRequest(m *wire.TrackStatusRequest) {
	status := wire.TrackStatusNotExist
	if path, err := PathFromSegments(m.Namespace); err == nil && p.index.isActive(path) {
		status = wire.TrackStatusInProgress
	}
	err := p.sess.control.send(&wire.TrackStatus{
		Namespace: m.Namespace,
		Track:     m.Track,
		Status:    status,
	})
	if err != nil {
		p.log.Debug("track status reply failed", "error", err)
	}
}

// serveAnnounceStream handles one draft-16 dedicated announce stream: a
// framed SUBSCRIBE_NAMESPACE request, then announcements forwarded as
// framed namespace messages until either side closes the stream.
func (p *publisher) serveAnnounceStream(stream Stream) {
	s := p.sess

	br := newControlFramer(stream, s.version)
	msg, err := br.receive()
	if err != nil {
		stream.CancelWrite(ErrorCodeProtocolViolation)
		stream.CancelRead(ErrorCodeProtocolViolation)
		return
	}
	req, ok := msg.(*wire.SubscribeNamespace)
	if !ok {
		stream.CancelWrite(ErrorCodeProtocolViolation)
		stream.CancelRead(ErrorCodeProtocolViolation)
		return
	}
	prefix, err := PathFromSegments(req.Prefix)
	if err != nil && len(req.Prefix) != 0 {
		stream.CancelWrite(ErrorCodeProtocolViolation)
		stream.CancelRead(ErrorCodeProtocolViolation)
		return
	}

	if err := br.send(&wire.RequestOk{RequestID: req.RequestID}); err != nil {
		return
	}

	watch := newAnnounced(nil)
	p.index.watch(prefix, watch)
	defer p.index.unwatch(watch)

	// The peer closing its sending side ends the watch.
	go func() {
		var buf [1]byte
		for {
			if _, err := stream.Read(buf[:]); err != nil {
				watch.Close()
				return
			}
		}
	}()

	announceIDs := make(map[Path]uint64)
	for {
		ann, err := watch.Next(s.ctx)
		if err != nil {
			stream.Close()
			return
		}
		var m wire.ControlMessage
		if ann.Active {
			id, err := s.control.nextRequestID(s.ctx)
			if err != nil {
				stream.Close()
				return
			}
			announceIDs[ann.Path] = id
			m = &wire.PublishNamespace{RequestID: id, Namespace: ann.Path.Segments()}
		} else {
			id, ok := announceIDs[ann.Path]
			if !ok {
				continue
			}
			delete(announceIDs, ann.Path)
			m = &wire.PublishNamespaceDone{RequestID: id}
		}
		if err := br.send(m); err != nil {
			return
		}
	}
}

// closeAll cancels every served subscription; called on session close.
func (p *publisher) closeAll() {
	p.mu.Lock()
	subs := make([]*publishedSub, 0, len(p.subs))
	for _, sub := range p.subs {
		subs = append(subs, sub)
	}
	p.mu.Unlock()
	for _, sub := range subs {
		sub.cancel()
	}
}
