package wire

import (
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// ClientSetup is the first message sent on an IETF-dialect control stream.
type ClientSetup struct {
	Versions []uint64
	Params   Parameters
}

func (m *ClientSetup) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, uint64(len(m.Versions)))
		for _, ver := range m.Versions {
			buf = quicvarint.Append(buf, ver)
		}
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseClientSetup(r *Reader) (*ClientSetup, error) {
	var m ClientSetup
	count, err := r.Varint()
	if err != nil {
		return nil, &ParseError{Message: "CLIENT_SETUP", Field: "num_versions", Err: err}
	}
	if count > uint64(r.Remaining()) {
		return nil, &ParseError{Message: "CLIENT_SETUP", Field: "num_versions", Err: io.ErrUnexpectedEOF}
	}
	m.Versions = make([]uint64, count)
	for i := range m.Versions {
		if m.Versions[i], err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "CLIENT_SETUP", Field: "version", Err: err}
		}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "CLIENT_SETUP", Field: "params", Err: err}
	}
	return &m, nil
}

// ServerSetup answers a ClientSetup with the selected version.
type ServerSetup struct {
	Version uint64
	Params  Parameters
}

func (m *ServerSetup) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.Version)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseServerSetup(r *Reader) (*ServerSetup, error) {
	var m ServerSetup
	var err error
	if m.Version, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SERVER_SETUP", Field: "version", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "SERVER_SETUP", Field: "params", Err: err}
	}
	return &m, nil
}

// SessionClient is the lite-dialect session handshake request. The
// extension list reuses the parameter codec.
type SessionClient struct {
	Versions   []uint64
	Extensions Parameters
}

func (m *SessionClient) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		buf = quicvarint.Append(buf, uint64(len(m.Versions)))
		for _, ver := range m.Versions {
			buf = quicvarint.Append(buf, ver)
		}
		return m.Extensions.Append(buf), nil
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSessionClient(r *Reader) (*SessionClient, error) {
	var m SessionClient
	count, err := r.Varint()
	if err != nil {
		return nil, &ParseError{Message: "SESSION_CLIENT", Field: "num_versions", Err: err}
	}
	if count > uint64(r.Remaining()) {
		return nil, &ParseError{Message: "SESSION_CLIENT", Field: "num_versions", Err: io.ErrUnexpectedEOF}
	}
	m.Versions = make([]uint64, count)
	for i := range m.Versions {
		if m.Versions[i], err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "SESSION_CLIENT", Field: "version", Err: err}
		}
	}
	if m.Extensions, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "SESSION_CLIENT", Field: "extensions", Err: err}
	}
	return &m, nil
}

// SessionServer is the lite-dialect session handshake response.
type SessionServer struct {
	Version    uint64
	Extensions Parameters
}

func (m *SessionServer) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		buf = quicvarint.Append(buf, m.Version)
		return m.Extensions.Append(buf), nil
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSessionServer(r *Reader) (*SessionServer, error) {
	var m SessionServer
	var err error
	if m.Version, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SESSION_SERVER", Field: "version", Err: err}
	}
	if m.Extensions, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "SESSION_SERVER", Field: "extensions", Err: err}
	}
	return &m, nil
}

// SessionUpdate carries a lite-dialect session bitrate hint.
type SessionUpdate struct {
	Bitrate uint64
}

func (m *SessionUpdate) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		return quicvarint.Append(buf, m.Bitrate), nil
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSessionUpdate(r *Reader) (*SessionUpdate, error) {
	var m SessionUpdate
	var err error
	if m.Bitrate, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SESSION_UPDATE", Field: "bitrate", Err: err}
	}
	return &m, nil
}
