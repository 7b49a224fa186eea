package wire

import "github.com/quic-go/quic-go/quicvarint"

// Track status codes.
const (
	TrackStatusInProgress  uint64 = 0x00
	TrackStatusNotExist    uint64 = 0x01
	TrackStatusNotStarted  uint64 = 0x02
	TrackStatusFinished    uint64 = 0x03
	TrackStatusUnavailable uint64 = 0x04
)

// TrackStatusRequest asks for the status of a track. Draft 14 only;
// draft 15 folded the request into the request/response pair around
// TrackStatus itself.
type TrackStatusRequest struct {
	RequestID uint64
	Namespace []string
	Track     string
	Params    Parameters
}

func (m *TrackStatusRequest) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendTuple(buf, m.Namespace)
		buf = AppendString(buf, m.Track)
		return m.Params.Append(buf), nil
	case VersionIETF15, VersionIETF16, VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseTrackStatusRequest(r *Reader) (*TrackStatusRequest, error) {
	var m TrackStatusRequest
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "TRACK_STATUS_REQUEST", Field: "request_id", Err: err}
	}
	if m.Namespace, err = r.Tuple(); err != nil {
		return nil, &ParseError{Message: "TRACK_STATUS_REQUEST", Field: "namespace", Err: err}
	}
	if m.Track, err = r.String(); err != nil {
		return nil, &ParseError{Message: "TRACK_STATUS_REQUEST", Field: "track", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "TRACK_STATUS_REQUEST", Field: "params", Err: err}
	}
	return &m, nil
}

// TrackStatus reports a track's status. Draft 14 keys the response by
// namespace and track name; later drafts reference the request ID.
type TrackStatus struct {
	RequestID    uint64   // drafts 15+
	Namespace    []string // draft 14
	Track        string   // draft 14
	Status       uint64
	LargestGroup uint64
	LargestObj   uint64
	Params       Parameters // drafts 15+
}

func (m *TrackStatus) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		buf = AppendTuple(buf, m.Namespace)
		buf = AppendString(buf, m.Track)
		buf = quicvarint.Append(buf, m.Status)
		buf = quicvarint.Append(buf, m.LargestGroup)
		buf = quicvarint.Append(buf, m.LargestObj)
		return buf, nil
	case VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = quicvarint.Append(buf, m.Status)
		buf = quicvarint.Append(buf, m.LargestGroup)
		buf = quicvarint.Append(buf, m.LargestObj)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseTrackStatus(r *Reader, v Version) (*TrackStatus, error) {
	var m TrackStatus
	var err error
	switch v {
	case VersionIETF14:
		if m.Namespace, err = r.Tuple(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "namespace", Err: err}
		}
		if m.Track, err = r.String(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "track", Err: err}
		}
		if m.Status, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "status", Err: err}
		}
		if m.LargestGroup, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "largest_group", Err: err}
		}
		if m.LargestObj, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "largest_object", Err: err}
		}
		return &m, nil
	case VersionIETF15, VersionIETF16:
		if m.RequestID, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "request_id", Err: err}
		}
		if m.Status, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "status", Err: err}
		}
		if m.LargestGroup, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "largest_group", Err: err}
		}
		if m.LargestObj, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "largest_object", Err: err}
		}
		if m.Params, err = ParseParameters(r); err != nil {
			return nil, &ParseError{Message: "TRACK_STATUS", Field: "params", Err: err}
		}
		return &m, nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

// Publish offers a track to the peer unsolicited (IETF dialect).
type Publish struct {
	RequestID     uint64
	Namespace     []string
	Track         string
	TrackAlias    uint64
	GroupOrder    byte
	ContentExists bool
	LargestGroup  uint64
	LargestObj    uint64
	Forward       byte
	Params        Parameters
}

func (m *Publish) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendTuple(buf, m.Namespace)
		buf = AppendString(buf, m.Track)
		buf = quicvarint.Append(buf, m.TrackAlias)
		buf = append(buf, m.GroupOrder)
		buf = AppendBool(buf, m.ContentExists)
		if m.ContentExists {
			buf = quicvarint.Append(buf, m.LargestGroup)
			buf = quicvarint.Append(buf, m.LargestObj)
		}
		buf = append(buf, m.Forward)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parsePublish(r *Reader) (*Publish, error) {
	var m Publish
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "request_id", Err: err}
	}
	if m.Namespace, err = r.Tuple(); err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "namespace", Err: err}
	}
	if m.Track, err = r.String(); err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "track", Err: err}
	}
	if m.TrackAlias, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "track_alias", Err: err}
	}
	if m.GroupOrder, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "group_order", Err: err}
	}
	exists, err := r.Bool()
	if err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "content_exists", Err: err}
	}
	m.ContentExists = exists
	if exists {
		if m.LargestGroup, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "PUBLISH", Field: "largest_group", Err: err}
		}
		if m.LargestObj, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "PUBLISH", Field: "largest_object", Err: err}
		}
	}
	if m.Forward, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "forward", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "PUBLISH", Field: "params", Err: err}
	}
	return &m, nil
}

// PublishOk accepts an unsolicited Publish.
type PublishOk struct {
	RequestID  uint64
	Forward    byte
	Priority   byte
	GroupOrder byte
	Params     Parameters
}

func (m *PublishOk) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = append(buf, m.Forward, m.Priority, m.GroupOrder)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parsePublishOk(r *Reader) (*PublishOk, error) {
	var m PublishOk
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_OK", Field: "request_id", Err: err}
	}
	if m.Forward, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_OK", Field: "forward", Err: err}
	}
	if m.Priority, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_OK", Field: "priority", Err: err}
	}
	if m.GroupOrder, err = r.Byte(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_OK", Field: "group_order", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "PUBLISH_OK", Field: "params", Err: err}
	}
	return &m, nil
}
