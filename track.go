package moq

import (
	"context"
	"io"
	"sync"
)

const (
	groupBuffer = 8
	frameBuffer = 16
)

// newTrackPipe creates the two ends of a track: the publisher (or the
// network, on the subscriber side) writes groups into the TrackWriter and
// the consumer pulls them from the Track. Closing either end releases the
// other.
func newTrackPipe(name string) (*TrackWriter, *Track) {
	p := &trackPipe{
		name:   name,
		groups: make(chan *groupPipe, groupBuffer),
		done:   make(chan struct{}),
		seen:   make(map[uint64]struct{}),
	}
	return &TrackWriter{pipe: p}, &Track{pipe: p}
}

type trackPipe struct {
	name   string
	groups chan *groupPipe
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	err     error
	seen    map[uint64]struct{}
	onClose func()
}

func (p *trackPipe) close(err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.err = err
	onClose := p.onClose
	p.mu.Unlock()

	close(p.done)
	if onClose != nil {
		onClose()
	}
}

func (p *trackPipe) closeErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// TrackWriter is the producing end of a track. One writer goroutine at a
// time may open groups; the groups themselves may then be filled
// concurrently.
type TrackWriter struct {
	pipe *trackPipe
}

// Name returns the track name.
func (w *TrackWriter) Name() string { return w.pipe.name }

// OpenGroup starts a new group with the given sequence number and hands
// it to the consumer. Sequence numbers need not be contiguous but must
// never repeat within the track.
func (w *TrackWriter) OpenGroup(sequence uint64) (*GroupWriter, error) {
	p := w.pipe
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrTrackClosed
	}
	if _, dup := p.seen[sequence]; dup {
		p.mu.Unlock()
		return nil, ErrDuplicateGroup
	}
	p.seen[sequence] = struct{}{}
	p.mu.Unlock()

	g := newGroupPipe(sequence, p.done)
	select {
	case p.groups <- g:
		return &GroupWriter{pipe: g}, nil
	case <-p.done:
		return nil, ErrTrackClosed
	}
}

// Close ends the track normally: the consumer sees io.EOF after draining
// any groups already opened.
func (w *TrackWriter) Close() error {
	w.pipe.close(nil)
	return nil
}

// CloseWithError ends the track with a failure the consumer observes from
// NextGroup.
func (w *TrackWriter) CloseWithError(err error) {
	w.pipe.close(err)
}

// Done is closed when the track is closed from either end.
func (w *TrackWriter) Done() <-chan struct{} { return w.pipe.done }

// Track is the consuming end of a track: an ordered sequence of groups.
// Group arrival order is not guaranteed to follow sequence numbers, since
// each group travels on its own stream.
type Track struct {
	pipe *trackPipe
}

// Name returns the track name.
func (t *Track) Name() string { return t.pipe.name }

// NextGroup returns the next group, io.EOF once the track has ended
// cleanly, or the track's close error.
func (t *Track) NextGroup(ctx context.Context) (*Group, error) {
	p := t.pipe
	select {
	case g := <-p.groups:
		return &Group{pipe: g}, nil
	default:
	}
	select {
	case g := <-p.groups:
		return &Group{pipe: g}, nil
	case <-p.done:
		// Groups opened before the close are still delivered.
		select {
		case g := <-p.groups:
			return &Group{pipe: g}, nil
		default:
		}
		if err := p.closeErr(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close abandons the track from the consuming side. On a subscribed
// track this tears the subscription down.
func (t *Track) Close() error {
	t.pipe.close(ErrTrackClosed)
	return nil
}

func (t *Track) setOnClose(fn func()) {
	t.pipe.mu.Lock()
	t.pipe.onClose = fn
	t.pipe.mu.Unlock()
}

func newGroupPipe(seq uint64, trackDone <-chan struct{}) *groupPipe {
	return &groupPipe{
		seq:       seq,
		frames:    make(chan []byte, frameBuffer),
		done:      make(chan struct{}),
		trackDone: trackDone,
	}
}

type groupPipe struct {
	seq    uint64
	frames chan []byte

	done      chan struct{}
	trackDone <-chan struct{}
	once      sync.Once

	mu  sync.Mutex
	err error
}

func (g *groupPipe) abort(err error) {
	g.once.Do(func() {
		g.mu.Lock()
		g.err = err
		g.mu.Unlock()
		close(g.done)
	})
}

func (g *groupPipe) abortErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// GroupWriter fills one group with frames. It is not safe for concurrent
// use; each group has a single producer.
type GroupWriter struct {
	pipe   *groupPipe
	closed bool
}

// Sequence returns the group's sequence number.
func (w *GroupWriter) Sequence() uint64 { return w.pipe.seq }

// WriteFrame appends one frame. A nil payload is delivered as a present,
// zero-length frame. The payload must not be modified after the call.
func (w *GroupWriter) WriteFrame(payload []byte) error {
	if w.closed {
		return ErrGroupClosed
	}
	if payload == nil {
		payload = []byte{}
	}
	select {
	case w.pipe.frames <- payload:
		return nil
	case <-w.pipe.done:
		return ErrGroupClosed
	case <-w.pipe.trackDone:
		return ErrTrackClosed
	}
}

// Close marks the end of the group; the consumer sees io.EOF after the
// last frame.
func (w *GroupWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.pipe.frames)
	return nil
}

// CloseWithError aborts the group; buffered frames may be lost.
func (w *GroupWriter) CloseWithError(err error) {
	if w.closed {
		return
	}
	w.closed = true
	if err == nil {
		err = ErrGroupClosed
	}
	w.pipe.abort(err)
}

// Group is the consuming end of one group: frames in exactly the order
// they were written.
type Group struct {
	pipe *groupPipe
}

// Sequence returns the group's sequence number.
func (g *Group) Sequence() uint64 { return g.pipe.seq }

// NextFrame returns the next frame, io.EOF at the end of the group, or
// the group's abort error. A returned frame may be empty; emptiness and
// end-of-group are distinct conditions.
func (g *Group) NextFrame(ctx context.Context) ([]byte, error) {
	select {
	case f, ok := <-g.pipe.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	default:
	}
	select {
	case f, ok := <-g.pipe.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-g.pipe.done:
		if err := g.pipe.abortErr(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close abandons the rest of the group.
func (g *Group) Close() error {
	g.pipe.abort(ErrGroupClosed)
	return nil
}
