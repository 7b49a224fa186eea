package moq

import (
	"context"
	"sync"
)

// TrackHandler produces the frames of one track for one subscriber. The
// handler runs on its own goroutine per subscription and should return
// when ctx is cancelled or the writer is closed; the writer is closed
// automatically when it returns.
type TrackHandler func(ctx context.Context, track *TrackWriter)

// Broadcast is a named collection of tracks owned by the publishing side.
// Tracks are registered by name; every subscription gets a fresh handler
// invocation, so late subscribers see the track from wherever the handler
// chooses to start. Closing the broadcast withdraws its announcement and
// ends all subscriptions.
type Broadcast struct {
	mu     sync.Mutex
	tracks map[string]TrackHandler
	closed bool
	err    error
	done   chan struct{}
}

// NewBroadcast creates an empty broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{
		tracks: make(map[string]TrackHandler),
		done:   make(chan struct{}),
	}
}

// HandleTrack registers (or replaces) the handler serving the named
// track.
func (b *Broadcast) HandleTrack(name string, h TrackHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tracks[name] = h
}

// subscribeTrack starts one subscription against the named track,
// returning its consuming end, or false if the track does not exist.
func (b *Broadcast) subscribeTrack(ctx context.Context, name string) (*Track, bool) {
	b.mu.Lock()
	h, ok := b.tracks[name]
	closed := b.closed
	b.mu.Unlock()
	if !ok || closed {
		return nil, false
	}

	ctx, cancel := context.WithCancel(ctx)
	writer, reader := newTrackPipe(name)
	go func() {
		// Broadcast closure ends the subscription even while the
		// handler is blocked writing.
		select {
		case <-b.done:
		case <-writer.Done():
		case <-ctx.Done():
		}
		cancel()
		writer.Close()
	}()
	go func() {
		h(ctx, writer)
		writer.Close()
	}()
	return reader, true
}

// Close ends the broadcast normally.
func (b *Broadcast) Close() error {
	b.closeWith(nil)
	return nil
}

// CloseWithError ends the broadcast with a failure observable via Err.
func (b *Broadcast) CloseWithError(err error) {
	b.closeWith(err)
}

func (b *Broadcast) closeWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.err = err
	close(b.done)
}

// Done is closed when the broadcast has been closed.
func (b *Broadcast) Done() <-chan struct{} { return b.done }

// Err returns the close reason, nil for a normal close.
func (b *Broadcast) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
