package moq

import (
	"context"
	"sync"
)

// Announcement reports that a broadcast under a watched prefix became
// active or inactive. The sequence of announcements for one path is an
// eventually-consistent view of its availability.
type Announcement struct {
	Path   Path
	Active bool
}

const announceBuffer = 16

// Announced is a lazily consumed sequence of announcements matching one
// prefix. Closing it cancels the underlying watch.
type Announced struct {
	ch      chan Announcement
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func newAnnounced(onClose func()) *Announced {
	return &Announced{
		ch:      make(chan Announcement, announceBuffer),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Next returns the next announcement, blocking until one arrives, the
// watch is closed, or ctx ends.
func (a *Announced) Next(ctx context.Context) (Announcement, error) {
	select {
	case ann := <-a.ch:
		return ann, nil
	default:
	}
	select {
	case ann := <-a.ch:
		return ann, nil
	case <-a.done:
		return Announcement{}, ErrSessionClosed
	case <-ctx.Done():
		return Announcement{}, ctx.Err()
	}
}

// Close stops the watch.
func (a *Announced) Close() error {
	a.once.Do(func() {
		close(a.done)
		if a.onClose != nil {
			a.onClose()
		}
	})
	return nil
}

// deliver drops the announcement if the watcher is closed or its buffer
// is full; announcements are hints, not a reliable log.
func (a *Announced) deliver(ann Announcement) {
	select {
	case <-a.done:
	case a.ch <- ann:
	default:
	}
}

// announceIndex tracks which paths are currently active and fans state
// transitions out to prefix watchers. The publisher uses it for locally
// published broadcasts; the subscriber mirrors peer announcements into a
// second instance. Repeated announcements of an unchanged state are
// dropped, which makes replay on watch registration idempotent.
type announceIndex struct {
	mu       sync.Mutex
	active   map[Path]struct{}
	watchers map[*Announced]Path
}

func newAnnounceIndex() *announceIndex {
	return &announceIndex{
		active:   make(map[Path]struct{}),
		watchers: make(map[*Announced]Path),
	}
}

// announce records a path transition and notifies matching watchers.
// Returns false if the transition is a no-op.
func (x *announceIndex) announce(path Path, active bool) bool {
	x.mu.Lock()
	if active {
		if _, ok := x.active[path]; ok {
			x.mu.Unlock()
			return false
		}
		x.active[path] = struct{}{}
	} else {
		if _, ok := x.active[path]; !ok {
			x.mu.Unlock()
			return false
		}
		delete(x.active, path)
	}
	targets := make([]*Announced, 0, len(x.watchers))
	for w, prefix := range x.watchers {
		if path.HasPrefix(prefix) {
			targets = append(targets, w)
		}
	}
	x.mu.Unlock()

	ann := Announcement{Path: path, Active: active}
	for _, w := range targets {
		w.deliver(ann)
	}
	return true
}

// watch registers a prefix watcher and replays the currently active set
// before any live transition can be delivered.
func (x *announceIndex) watch(prefix Path, w *Announced) {
	x.mu.Lock()
	var replay []Path
	for p := range x.active {
		if p.HasPrefix(prefix) {
			replay = append(replay, p)
		}
	}
	x.watchers[w] = prefix
	x.mu.Unlock()

	for _, p := range replay {
		w.deliver(Announcement{Path: p, Active: true})
	}
}

func (x *announceIndex) unwatch(w *Announced) {
	x.mu.Lock()
	delete(x.watchers, w)
	x.mu.Unlock()
}

// isActive reports whether path is currently announced.
func (x *announceIndex) isActive(path Path) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.active[path]
	return ok
}
