package wire

import "github.com/quic-go/quic-go/quicvarint"

// RequestOk is the generic success reply introduced in IETF draft 15,
// replacing the per-request OK messages for namespace operations.
type RequestOk struct {
	RequestID uint64
	Params    Parameters
}

func (m *RequestOk) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		return m.Params.Append(buf), nil
	case VersionIETF14, VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseRequestOk(r *Reader) (*RequestOk, error) {
	var m RequestOk
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "REQUEST_OK", Field: "request_id", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "REQUEST_OK", Field: "params", Err: err}
	}
	return &m, nil
}

// RequestError is the generic failure reply introduced in IETF draft 15.
// It reuses draft 14's SUBSCRIBE_ERROR type ID; the version registry
// resolves which message the ID means.
type RequestError struct {
	RequestID uint64
	ErrorCode uint64
	Reason    string
}

func (m *RequestError) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = quicvarint.Append(buf, m.ErrorCode)
		return AppendString(buf, m.Reason), nil
	case VersionIETF14, VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseRequestError(r *Reader) (*RequestError, error) {
	var m RequestError
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "REQUEST_ERROR", Field: "request_id", Err: err}
	}
	if m.ErrorCode, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "REQUEST_ERROR", Field: "error_code", Err: err}
	}
	if m.Reason, err = r.String(); err != nil {
		return nil, &ParseError{Message: "REQUEST_ERROR", Field: "reason", Err: err}
	}
	return &m, nil
}

// MaxRequestID raises the peer's request ID ceiling (exclusive). IETF
// dialect only; lite sessions run without request flow control.
type MaxRequestID struct {
	MaxRequestID uint64
}

func (m *MaxRequestID) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return quicvarint.Append(buf, m.MaxRequestID), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseMaxRequestID(r *Reader) (*MaxRequestID, error) {
	var m MaxRequestID
	var err error
	if m.MaxRequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "MAX_REQUEST_ID", Field: "max_request_id", Err: err}
	}
	return &m, nil
}

// RequestsBlocked tells the peer that request allocation is stalled at
// the current ceiling.
type RequestsBlocked struct {
	MaxRequestID uint64
}

func (m *RequestsBlocked) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return quicvarint.Append(buf, m.MaxRequestID), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseRequestsBlocked(r *Reader) (*RequestsBlocked, error) {
	var m RequestsBlocked
	var err error
	if m.MaxRequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "REQUESTS_BLOCKED", Field: "max_request_id", Err: err}
	}
	return &m, nil
}

// GoAway signals a graceful session shutdown, optionally pointing at a
// replacement session URI.
type GoAway struct {
	URI string
}

func (m *GoAway) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03,
		VersionIETF14, VersionIETF15, VersionIETF16:
		return AppendString(buf, m.URI), nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseGoAway(r *Reader) (*GoAway, error) {
	var m GoAway
	var err error
	if m.URI, err = r.String(); err != nil {
		return nil, &ParseError{Message: "GOAWAY", Field: "uri", Err: err}
	}
	return &m, nil
}
