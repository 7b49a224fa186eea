package wire

import (
	"strings"

	"github.com/quic-go/quic-go/quicvarint"
)

// Subscribe requests delivery of one track of a broadcast. The lite
// dialect encodes the broadcast as a single path string and carries the
// priority in a fixed position; IETF drafts encode a namespace tuple, and
// from draft 15 the priority, group order, and forward fields move out of
// fixed positions into the parameter list.
type Subscribe struct {
	RequestID  uint64
	Broadcast  []string // namespace segments
	Track      string
	Priority   byte
	GroupOrder byte
	Forward    byte
	Filter     uint64 // IETF only
	StartGroup uint64 // FilterAbsoluteStart / FilterAbsoluteRange
	StartObj   uint64 // FilterAbsoluteStart / FilterAbsoluteRange
	EndGroup   uint64 // FilterAbsoluteRange
	Params     Parameters
}

func (m *Subscribe) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendString(buf, strings.Join(m.Broadcast, "/"))
		buf = AppendString(buf, m.Track)
		buf = append(buf, m.Priority)
		return buf, nil

	case VersionIETF14:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendTuple(buf, m.Broadcast)
		buf = AppendString(buf, m.Track)
		buf = append(buf, m.Priority, m.GroupOrder, m.Forward)
		buf = quicvarint.Append(buf, m.Filter)
		buf = m.appendFilterRange(buf)
		return m.Params.Append(buf), nil

	case VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendTuple(buf, m.Broadcast)
		buf = AppendString(buf, m.Track)
		buf = quicvarint.Append(buf, m.Filter)
		buf = m.appendFilterRange(buf)
		p := m.Params
		p.SetVarint(ParamPriority, uint64(m.Priority))
		p.SetVarint(ParamGroupOrder, uint64(m.GroupOrder))
		p.SetVarint(ParamForward, uint64(m.Forward))
		return p.Append(buf), nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func (m *Subscribe) appendFilterRange(buf []byte) []byte {
	switch m.Filter {
	case FilterAbsoluteStart:
		buf = quicvarint.Append(buf, m.StartGroup)
		buf = quicvarint.Append(buf, m.StartObj)
	case FilterAbsoluteRange:
		buf = quicvarint.Append(buf, m.StartGroup)
		buf = quicvarint.Append(buf, m.StartObj)
		buf = quicvarint.Append(buf, m.EndGroup)
	}
	return buf
}

func parseSubscribe(r *Reader, v Version) (*Subscribe, error) {
	var m Subscribe
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE", Field: "request_id", Err: err}
	}

	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		path, err := r.String()
		if err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "broadcast", Err: err}
		}
		m.Broadcast = splitPath(path)
		if m.Track, err = r.String(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "track", Err: err}
		}
		if m.Priority, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "priority", Err: err}
		}
		return &m, nil

	case VersionIETF14:
		if m.Broadcast, err = r.Tuple(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "namespace", Err: err}
		}
		if m.Track, err = r.String(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "track", Err: err}
		}
		if m.Priority, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "priority", Err: err}
		}
		if m.GroupOrder, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "group_order", Err: err}
		}
		if m.Forward, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "forward", Err: err}
		}
		if err = m.parseFilterRange(r); err != nil {
			return nil, err
		}
		if m.Params, err = ParseParameters(r); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "params", Err: err}
		}
		return &m, nil

	case VersionIETF15, VersionIETF16:
		if m.Broadcast, err = r.Tuple(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "namespace", Err: err}
		}
		if m.Track, err = r.String(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "track", Err: err}
		}
		if err = m.parseFilterRange(r); err != nil {
			return nil, err
		}
		if m.Params, err = ParseParameters(r); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE", Field: "params", Err: err}
		}
		if p, ok := m.Params.Varint(ParamPriority); ok {
			m.Priority = byte(p)
		}
		if p, ok := m.Params.Varint(ParamGroupOrder); ok {
			m.GroupOrder = byte(p)
		}
		if p, ok := m.Params.Varint(ParamForward); ok {
			m.Forward = byte(p)
		}
		return &m, nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func (m *Subscribe) parseFilterRange(r *Reader) error {
	var err error
	if m.Filter, err = r.Varint(); err != nil {
		return &ParseError{Message: "SUBSCRIBE", Field: "filter_type", Err: err}
	}
	switch m.Filter {
	case FilterAbsoluteStart:
		if m.StartGroup, err = r.Varint(); err != nil {
			return &ParseError{Message: "SUBSCRIBE", Field: "start_group", Err: err}
		}
		if m.StartObj, err = r.Varint(); err != nil {
			return &ParseError{Message: "SUBSCRIBE", Field: "start_object", Err: err}
		}
	case FilterAbsoluteRange:
		if m.StartGroup, err = r.Varint(); err != nil {
			return &ParseError{Message: "SUBSCRIBE", Field: "start_group", Err: err}
		}
		if m.StartObj, err = r.Varint(); err != nil {
			return &ParseError{Message: "SUBSCRIBE", Field: "start_object", Err: err}
		}
		if m.EndGroup, err = r.Varint(); err != nil {
			return &ParseError{Message: "SUBSCRIBE", Field: "end_group", Err: err}
		}
	}
	return nil
}

// SubscribeOk confirms a subscription and binds the track alias used by
// subsequent group streams. The lite dialect only echoes the request ID
// and publisher priority (the request ID doubles as the alias there).
type SubscribeOk struct {
	RequestID     uint64
	TrackAlias    uint64
	Expires       uint64
	Priority      byte // lite only
	GroupOrder    byte
	ContentExists bool
	LargestGroup  uint64 // only when ContentExists
	LargestObj    uint64 // only when ContentExists
	Params        Parameters
}

func (m *SubscribeOk) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = append(buf, m.Priority)
		return buf, nil

	case VersionIETF14:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = quicvarint.Append(buf, m.TrackAlias)
		buf = quicvarint.Append(buf, m.Expires)
		buf = append(buf, m.GroupOrder)
		buf = AppendBool(buf, m.ContentExists)
		if m.ContentExists {
			buf = quicvarint.Append(buf, m.LargestGroup)
			buf = quicvarint.Append(buf, m.LargestObj)
		}
		return m.Params.Append(buf), nil

	case VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = quicvarint.Append(buf, m.TrackAlias)
		buf = AppendBool(buf, m.ContentExists)
		if m.ContentExists {
			buf = quicvarint.Append(buf, m.LargestGroup)
			buf = quicvarint.Append(buf, m.LargestObj)
		}
		p := m.Params
		p.SetVarint(ParamExpires, m.Expires)
		p.SetVarint(ParamGroupOrder, uint64(m.GroupOrder))
		return p.Append(buf), nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSubscribeOk(r *Reader, v Version) (*SubscribeOk, error) {
	var m SubscribeOk
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "request_id", Err: err}
	}

	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		if m.Priority, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "priority", Err: err}
		}
		m.TrackAlias = m.RequestID
		return &m, nil

	case VersionIETF14:
		if m.TrackAlias, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "track_alias", Err: err}
		}
		if m.Expires, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "expires", Err: err}
		}
		if m.GroupOrder, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "group_order", Err: err}
		}
		if err = m.parseLargest(r); err != nil {
			return nil, err
		}
		if m.Params, err = ParseParameters(r); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "params", Err: err}
		}
		return &m, nil

	case VersionIETF15, VersionIETF16:
		if m.TrackAlias, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "track_alias", Err: err}
		}
		if err = m.parseLargest(r); err != nil {
			return nil, err
		}
		if m.Params, err = ParseParameters(r); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_OK", Field: "params", Err: err}
		}
		if e, ok := m.Params.Varint(ParamExpires); ok {
			m.Expires = e
		}
		if g, ok := m.Params.Varint(ParamGroupOrder); ok {
			m.GroupOrder = byte(g)
		}
		return &m, nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func (m *SubscribeOk) parseLargest(r *Reader) error {
	exists, err := r.Bool()
	if err != nil {
		return &ParseError{Message: "SUBSCRIBE_OK", Field: "content_exists", Err: err}
	}
	m.ContentExists = exists
	if !exists {
		return nil
	}
	if m.LargestGroup, err = r.Varint(); err != nil {
		return &ParseError{Message: "SUBSCRIBE_OK", Field: "largest_group", Err: err}
	}
	if m.LargestObj, err = r.Varint(); err != nil {
		return &ParseError{Message: "SUBSCRIBE_OK", Field: "largest_object", Err: err}
	}
	return nil
}

// SubscribeError rejects a subscription. Valid in the lite dialect and
// IETF draft 14; drafts 15 and 16 replaced it with the generic
// RequestError under the same IETF type ID.
type SubscribeError struct {
	RequestID uint64
	ErrorCode uint64
	Reason    string
}

func (m *SubscribeError) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03, VersionIETF14:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = quicvarint.Append(buf, m.ErrorCode)
		return AppendString(buf, m.Reason), nil
	case VersionIETF15, VersionIETF16:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSubscribeError(r *Reader) (*SubscribeError, error) {
	var m SubscribeError
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_ERROR", Field: "request_id", Err: err}
	}
	if m.ErrorCode, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_ERROR", Field: "error_code", Err: err}
	}
	if m.Reason, err = r.String(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_ERROR", Field: "reason", Err: err}
	}
	return &m, nil
}

// SubscribeUpdate adjusts an active subscription's delivery preferences.
type SubscribeUpdate struct {
	RequestID uint64
	Priority  byte
	Forward   byte
	Params    Parameters
}

func (m *SubscribeUpdate) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = append(buf, m.Priority)
		return buf, nil
	case VersionIETF14:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = append(buf, m.Priority, m.Forward)
		return m.Params.Append(buf), nil
	case VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		p := m.Params
		p.SetVarint(ParamPriority, uint64(m.Priority))
		p.SetVarint(ParamForward, uint64(m.Forward))
		return p.Append(buf), nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSubscribeUpdate(r *Reader, v Version) (*SubscribeUpdate, error) {
	var m SubscribeUpdate
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_UPDATE", Field: "request_id", Err: err}
	}
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		if m.Priority, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_UPDATE", Field: "priority", Err: err}
		}
		return &m, nil
	case VersionIETF14:
		if m.Priority, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_UPDATE", Field: "priority", Err: err}
		}
		if m.Forward, err = r.Byte(); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_UPDATE", Field: "forward", Err: err}
		}
		if m.Params, err = ParseParameters(r); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_UPDATE", Field: "params", Err: err}
		}
		return &m, nil
	case VersionIETF15, VersionIETF16:
		if m.Params, err = ParseParameters(r); err != nil {
			return nil, &ParseError{Message: "SUBSCRIBE_UPDATE", Field: "params", Err: err}
		}
		if p, ok := m.Params.Varint(ParamPriority); ok {
			m.Priority = byte(p)
		}
		if p, ok := m.Params.Varint(ParamForward); ok {
			m.Forward = byte(p)
		}
		return &m, nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

// Unsubscribe cancels a subscription from the consuming side.
type Unsubscribe struct {
	RequestID uint64
}

func (m *Unsubscribe) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03,
		VersionIETF14, VersionIETF15, VersionIETF16:
		return quicvarint.Append(buf, m.RequestID), nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseUnsubscribe(r *Reader) (*Unsubscribe, error) {
	var m Unsubscribe
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "UNSUBSCRIBE", Field: "request_id", Err: err}
	}
	return &m, nil
}

// PublishDone signals from the publishing side that a subscription has no
// further groups, with a status code and reason.
type PublishDone struct {
	RequestID uint64
	Status    uint64
	Reason    string
}

func (m *PublishDone) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03,
		VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = quicvarint.Append(buf, m.Status)
		return AppendString(buf, m.Reason), nil
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parsePublishDone(r *Reader) (*PublishDone, error) {
	var m PublishDone
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_DONE", Field: "request_id", Err: err}
	}
	if m.Status, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_DONE", Field: "status", Err: err}
	}
	if m.Reason, err = r.String(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_DONE", Field: "reason", Err: err}
	}
	return &m, nil
}

// splitPath splits a lite-dialect path string into segments. Validation
// of segment contents happens above the wire layer.
func splitPath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}
