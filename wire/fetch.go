package wire

import "github.com/quic-go/quic-go/quicvarint"

// Fetch requests a bounded range of past groups from a track (IETF
// dialect only).
type Fetch struct {
	RequestID  uint64
	Namespace  []string
	Track      string
	StartGroup uint64
	StartObj   uint64
	EndGroup   uint64
	EndObj     uint64
	Priority   byte
	GroupOrder byte
	Params     Parameters
}

func (m *Fetch) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendTuple(buf, m.Namespace)
		buf = AppendString(buf, m.Track)
		buf = quicvarint.Append(buf, m.StartGroup)
		buf = quicvarint.Append(buf, m.StartObj)
		buf = quicvarint.Append(buf, m.EndGroup)
		buf = quicvarint.Append(buf, m.EndObj)
		buf = append(buf, m.Priority, m.GroupOrder)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseFetch(r *Reader) (*Fetch, error) {
	var m Fetch
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "request_id", Err: err}
	}
	if m.Namespace, err = r.Tuple(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "namespace", Err: err}
	}
	if m.Track, err = r.String(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "track", Err: err}
	}
	if m.StartGroup, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "start_group", Err: err}
	}
	if m.StartObj, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "start_object", Err: err}
	}
	if m.EndGroup, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "end_group", Err: err}
	}
	if m.EndObj, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "end_object", Err: err}
	}
	if m.Priority, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "priority", Err: err}
	}
	if m.GroupOrder, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "group_order", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "FETCH", Field: "params", Err: err}
	}
	return &m, nil
}

// FetchOk confirms a fetch and describes the available range.
type FetchOk struct {
	RequestID    uint64
	GroupOrder   byte
	EndOfTrack   bool
	LargestGroup uint64
	LargestObj   uint64
	Params       Parameters
}

func (m *FetchOk) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = append(buf, m.GroupOrder)
		buf = AppendBool(buf, m.EndOfTrack)
		buf = quicvarint.Append(buf, m.LargestGroup)
		buf = quicvarint.Append(buf, m.LargestObj)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseFetchOk(r *Reader) (*FetchOk, error) {
	var m FetchOk
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH_OK", Field: "request_id", Err: err}
	}
	if m.GroupOrder, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "FETCH_OK", Field: "group_order", Err: err}
	}
	if m.EndOfTrack, err = r.Bool(); err != nil {
		return nil, &ParseError{Message: "FETCH_OK", Field: "end_of_track", Err: err}
	}
	if m.LargestGroup, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH_OK", Field: "largest_group", Err: err}
	}
	if m.LargestObj, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH_OK", Field: "largest_object", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "FETCH_OK", Field: "params", Err: err}
	}
	return &m, nil
}

// FetchError rejects a fetch. Draft 14 only; later drafts use RequestError.
type FetchError struct {
	RequestID uint64
	ErrorCode uint64
	Reason    string
}

func (m *FetchError) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = quicvarint.Append(buf, m.ErrorCode)
		return AppendString(buf, m.Reason), nil
	case VersionIETF15, VersionIETF16, VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseFetchError(r *Reader) (*FetchError, error) {
	var m FetchError
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH_ERROR", Field: "request_id", Err: err}
	}
	if m.ErrorCode, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH_ERROR", Field: "error_code", Err: err}
	}
	if m.Reason, err = r.String(); err != nil {
		return nil, &ParseError{Message: "FETCH_ERROR", Field: "reason", Err: err}
	}
	return &m, nil
}

// FetchCancel abandons an in-flight fetch.
type FetchCancel struct {
	RequestID uint64
}

func (m *FetchCancel) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return quicvarint.Append(buf, m.RequestID), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseFetchCancel(r *Reader) (*FetchCancel, error) {
	var m FetchCancel
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "FETCH_CANCEL", Field: "request_id", Err: err}
	}
	return &m, nil
}
