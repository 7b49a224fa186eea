package moq

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/zsiec/moq/wire"
)

func newTestControlStream(t *testing.T, v wire.Version, client bool, limit uint64) (*controlStream, *memStream) {
	t.Helper()
	local, remote := newMemStreamPair()
	cs := newControlStream(local, v, client, limit, bufio.NewReader(local), slog.Default())
	return cs, remote
}

func TestControlStreamRequestIDParity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cs, _ := newTestControlStream(t, wire.VersionIETF16, true, 100)
	for want := uint64(0); want < 6; want += 2 {
		id, err := cs.nextRequestID(ctx)
		if err != nil {
			t.Fatalf("nextRequestID: %v", err)
		}
		if id != want {
			t.Fatalf("client request ID = %d, want %d", id, want)
		}
	}

	cs, _ = newTestControlStream(t, wire.VersionIETF16, false, 100)
	for want := uint64(1); want < 7; want += 2 {
		id, err := cs.nextRequestID(ctx)
		if err != nil {
			t.Fatalf("nextRequestID: %v", err)
		}
		if id != want {
			t.Fatalf("server request ID = %d, want %d", id, want)
		}
	}
}

func TestControlStreamBlocksAtCeiling(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cs, remote := newTestControlStream(t, wire.VersionIETF16, true, 2)
	if id, err := cs.nextRequestID(ctx); err != nil || id != 0 {
		t.Fatalf("first allocation: id=%d err=%v", id, err)
	}

	got := make(chan uint64, 1)
	go func() {
		id, err := cs.nextRequestID(ctx)
		if err != nil {
			t.Errorf("blocked allocation: %v", err)
			return
		}
		got <- id
	}()

	// The stalled allocator announces itself exactly once.
	peer := newControlFramer(remote, wire.VersionIETF16)
	msg, err := peer.receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	blocked, ok := msg.(*wire.RequestsBlocked)
	if !ok {
		t.Fatalf("got %T, want *wire.RequestsBlocked", msg)
	}
	if blocked.MaxRequestID != 2 {
		t.Fatalf("blocked at %d, want 2", blocked.MaxRequestID)
	}

	select {
	case id := <-got:
		t.Fatalf("allocation %d succeeded past the ceiling", id)
	case <-time.After(20 * time.Millisecond):
	}

	if err := cs.setMaxRequestID(4); err != nil {
		t.Fatalf("setMaxRequestID: %v", err)
	}
	select {
	case id := <-got:
		if id != 2 {
			t.Fatalf("unblocked allocation = %d, want 2", id)
		}
	case <-time.After(time.Second):
		t.Fatal("allocation still blocked after ceiling raise")
	}
}

func TestControlStreamRejectsNonIncreasingCeiling(t *testing.T) {
	t.Parallel()

	cs, _ := newTestControlStream(t, wire.VersionIETF16, true, 10)
	err := cs.setMaxRequestID(10)
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want ProtocolError", err)
	}
	if pe.Code != ErrorCodeProtocolViolation {
		t.Fatalf("code = %d, want %d", pe.Code, ErrorCodeProtocolViolation)
	}
}

func TestControlStreamCloseResolvesWaiters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cs, _ := newTestControlStream(t, wire.VersionIETF16, true, 0)
	done := make(chan error, 1)
	go func() {
		_, err := cs.nextRequestID(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cs.close(ErrSessionClosed)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSessionClosed) {
			t.Fatalf("got %v, want ErrSessionClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not resolved by close")
	}
}

func TestControlStreamLiteUnlimited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The lite dialect carries no request flow control; a zero ceiling
	// must not block.
	cs, _ := newTestControlStream(t, wire.VersionLite03, true, 0)
	for want := uint64(0); want < 20; want += 2 {
		id, err := cs.nextRequestID(ctx)
		if err != nil {
			t.Fatalf("nextRequestID: %v", err)
		}
		if id != want {
			t.Fatalf("id = %d, want %d", id, want)
		}
	}
}

func TestControlStreamRoundTrip(t *testing.T) {
	t.Parallel()

	local, remote := newMemStreamPair()
	a := newControlStream(local, wire.VersionIETF15, true, 100, bufio.NewReader(local), slog.Default())
	b := newControlStream(remote, wire.VersionIETF15, false, 100, bufio.NewReader(remote), slog.Default())

	want := &wire.Subscribe{
		RequestID: 0,
		Broadcast: []string{"room", "alice"},
		Track:     "video",
		Priority:  128,
		Forward:   1,
		Filter:    wire.FilterLatestObject,
	}
	if err := a.send(want); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg, err := b.receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	got, ok := msg.(*wire.Subscribe)
	if !ok {
		t.Fatalf("got %T, want *wire.Subscribe", msg)
	}
	if got.Track != want.Track || len(got.Broadcast) != 2 || got.Broadcast[1] != "alice" {
		t.Fatalf("round trip mangled subscribe: %+v", got)
	}
}
