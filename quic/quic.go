// Package quic runs moq sessions over QUIC connections using
// github.com/quic-go/quic-go.
package quic

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	quicgo "github.com/quic-go/quic-go"

	"github.com/zsiec/moq"
)

// quicConfig matches the transport settings used for media sessions: a
// generous idle timeout so a paused publisher does not drop the session.
func quicConfig() *quicgo.Config {
	return &quicgo.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}
}

// ALPNs returns the TLS application protocols for the given versions, in
// order, deduplicated. The result feeds tls.Config.NextProtos.
func ALPNs(versions []moq.Version) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range versions {
		p := v.ALPN()
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Dial connects to addr and performs the client session handshake.
// When tlsConf carries no NextProtos they are filled in from the
// configured versions.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config, cfg *moq.Config) (*moq.Session, error) {
	if tlsConf == nil {
		return nil, fmt.Errorf("quic: nil TLS config")
	}
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = ALPNs(versions(cfg))
	}
	conn, err := quicgo.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	sess, err := moq.Connect(ctx, Wrap(conn), cfg)
	if err != nil {
		conn.CloseWithError(quicgo.ApplicationErrorCode(moq.ErrorCodeInternal), "session handshake failed")
		return nil, err
	}
	return sess, nil
}

// Listener accepts QUIC connections and hands back established sessions.
type Listener struct {
	ln  *quicgo.Listener
	cfg *moq.Config
}

// Listen starts a QUIC listener on addr. When tlsConf carries no
// NextProtos they are filled in from the configured versions.
func Listen(addr string, tlsConf *tls.Config, cfg *moq.Config) (*Listener, error) {
	if tlsConf == nil {
		return nil, fmt.Errorf("quic: nil TLS config")
	}
	if len(tlsConf.NextProtos) == 0 {
		tlsConf = tlsConf.Clone()
		tlsConf.NextProtos = ALPNs(versions(cfg))
	}
	ln, err := quicgo.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Listener{ln: ln, cfg: cfg}, nil
}

// Accept waits for the next connection and performs the server session
// handshake on it.
func (l *Listener) Accept(ctx context.Context) (*moq.Session, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return moq.Accept(ctx, Wrap(conn), l.cfg)
}

// Addr returns the listener's local address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops the listener. Established sessions are unaffected.
func (l *Listener) Close() error { return l.ln.Close() }

func versions(cfg *moq.Config) []moq.Version {
	if cfg == nil || len(cfg.Versions) == 0 {
		return moq.DefaultVersions
	}
	return cfg.Versions
}
