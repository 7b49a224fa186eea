package moq

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// testVersions covers one draft of each wire family plus the IETF
// drafts with diverging message layouts.
var testVersions = []Version{VersionLite03, VersionIETF14, VersionIETF15, VersionIETF16}

// newSessionPair connects a client and server session over an in-memory
// connection pinned to a single version.
func newSessionPair(t *testing.T, v Version) (client, server *Session) {
	t.Helper()

	cc, sc := newMemConnPair(v.ALPN())
	cfg := &Config{Versions: []Version{v}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan *Session, 1)
	errc := make(chan error, 1)
	go func() {
		s, err := Accept(ctx, sc, cfg)
		if err != nil {
			errc <- err
			return
		}
		accepted <- s
	}()

	client, err := Connect(ctx, cc, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	select {
	case server = <-accepted:
	case err := <-errc:
		t.Fatalf("Accept: %v", err)
	case <-ctx.Done():
		t.Fatal("handshake timed out")
	}

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestSessionHandshake(t *testing.T) {
	t.Parallel()

	for _, v := range testVersions {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()
			client, server := newSessionPair(t, v)
			if client.Version() != v {
				t.Fatalf("client negotiated %s, want %s", client.Version(), v)
			}
			if server.Version() != v {
				t.Fatalf("server negotiated %s, want %s", server.Version(), v)
			}
		})
	}
}

func TestSessionPublishSubscribe(t *testing.T) {
	t.Parallel()

	for _, v := range testVersions {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			client, server := newSessionPair(t, v)

			frames := [][]byte{[]byte("frame-0"), []byte("frame-1")}
			release := make(chan struct{})
			b := NewBroadcast()
			b.HandleTrack("video", func(ctx context.Context, w *TrackWriter) {
				gw, err := w.OpenGroup(0)
				if err != nil {
					t.Errorf("OpenGroup: %v", err)
					return
				}
				for _, f := range frames {
					if err := gw.WriteFrame(f); err != nil {
						t.Errorf("WriteFrame: %v", err)
						return
					}
				}
				gw.Close()
				select {
				case <-release:
				case <-ctx.Done():
				}
			})
			if err := server.Publish("room/alice", b); err != nil {
				t.Fatalf("Publish: %v", err)
			}

			track, err := client.Consume("room/alice").Subscribe(ctx, "video")
			if err != nil {
				t.Fatalf("Subscribe: %v", err)
			}

			g, err := track.NextGroup(ctx)
			if err != nil {
				t.Fatalf("NextGroup: %v", err)
			}
			if g.Sequence() != 0 {
				t.Fatalf("group sequence = %d, want 0", g.Sequence())
			}
			for i, want := range frames {
				got, err := g.NextFrame(ctx)
				if err != nil {
					t.Fatalf("NextFrame %d: %v", i, err)
				}
				if !bytes.Equal(got, want) {
					t.Fatalf("frame %d = %q, want %q", i, got, want)
				}
			}
			if _, err := g.NextFrame(ctx); err != io.EOF {
				t.Fatalf("got %v, want io.EOF at end of group", err)
			}

			// Releasing the handler ends the track; the subscriber sees a
			// clean end of the subscription.
			close(release)
			if _, err := track.NextGroup(ctx); err != io.EOF {
				t.Fatalf("got %v, want io.EOF after publisher finished", err)
			}
		})
	}
}

func TestSessionSubscribeUnknownBroadcast(t *testing.T) {
	t.Parallel()

	for _, v := range testVersions {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			client, _ := newSessionPair(t, v)

			_, err := client.Consume("no/such").Subscribe(ctx, "video")
			if err == nil {
				t.Fatal("subscribe to unknown broadcast succeeded")
			}
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("got %v, want *RequestError", err)
			}
			if reqErr.Code != RequestErrorTrackDoesNotExist {
				t.Fatalf("code = %d, want %d", reqErr.Code, RequestErrorTrackDoesNotExist)
			}
		})
	}
}

func TestSessionAnnounced(t *testing.T) {
	t.Parallel()

	for _, v := range testVersions {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			client, server := newSessionPair(t, v)

			watch, err := client.Announced(ctx, "room")
			if err != nil {
				t.Fatalf("Announced: %v", err)
			}

			if err := server.Publish("room/alice", NewBroadcast()); err != nil {
				t.Fatalf("Publish room/alice: %v", err)
			}
			if err := server.Publish("other/bob", NewBroadcast()); err != nil {
				t.Fatalf("Publish other/bob: %v", err)
			}

			ann, err := watch.Next(ctx)
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if ann.Path != "room/alice" || !ann.Active {
				t.Fatalf("got %+v, want active room/alice", ann)
			}

			// other/bob is outside the prefix and must never show up.
			short, cancelShort := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancelShort()
			if extra, err := watch.Next(short); err == nil {
				t.Fatalf("unexpected announcement %+v", extra)
			}
		})
	}
}

func TestSessionAnnouncedReplaysExisting(t *testing.T) {
	t.Parallel()

	for _, v := range testVersions {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			client, server := newSessionPair(t, v)

			if err := server.Publish("room/alice", NewBroadcast()); err != nil {
				t.Fatalf("Publish: %v", err)
			}

			// Watching after the fact still yields the active broadcast.
			watch, err := client.Announced(ctx, "room")
			if err != nil {
				t.Fatalf("Announced: %v", err)
			}
			ann, err := watch.Next(ctx)
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if ann.Path != "room/alice" || !ann.Active {
				t.Fatalf("got %+v, want active room/alice", ann)
			}
		})
	}
}

func TestSessionDuplicatePublish(t *testing.T) {
	t.Parallel()

	client, _ := newSessionPair(t, VersionIETF16)
	if err := client.Publish("room/alice", NewBroadcast()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := client.Publish("room/alice", NewBroadcast()); !errors.Is(err, ErrDuplicateBroadcast) {
		t.Fatalf("got %v, want ErrDuplicateBroadcast", err)
	}
}

func TestSessionPublishInvalidPath(t *testing.T) {
	t.Parallel()

	client, _ := newSessionPair(t, VersionIETF16)
	if err := client.Publish("room//alice", NewBroadcast()); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("got %v, want ErrInvalidPath", err)
	}
}

func TestSessionClose(t *testing.T) {
	t.Parallel()

	client, server := newSessionPair(t, VersionIETF16)
	client.Close()

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("client session did not shut down")
	}
	select {
	case <-server.Done():
	case <-time.After(time.Second):
		t.Fatal("server session did not observe the close")
	}
	if err := client.Err(); err != nil {
		t.Fatalf("local graceful close reported %v", err)
	}

	ctx := context.Background()
	if _, err := client.Announced(ctx, "room"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("got %v, want ErrSessionClosed", err)
	}
}
