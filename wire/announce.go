package wire

import (
	"strings"

	"github.com/quic-go/quic-go/quicvarint"
)

// PublishNamespace announces a broadcast namespace to the peer (IETF
// dialect). The lite dialect uses Announce instead.
type PublishNamespace struct {
	RequestID uint64
	Namespace []string
	Params    Parameters
}

func (m *PublishNamespace) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendTuple(buf, m.Namespace)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parsePublishNamespace(r *Reader) (*PublishNamespace, error) {
	var m PublishNamespace
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE", Field: "request_id", Err: err}
	}
	if m.Namespace, err = r.Tuple(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE", Field: "namespace", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE", Field: "params", Err: err}
	}
	return &m, nil
}

// PublishNamespaceOk acknowledges a PublishNamespace. Draft 14 only;
// drafts 15 and 16 reply with the generic RequestOk.
type PublishNamespaceOk struct {
	RequestID uint64
}

func (m *PublishNamespaceOk) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		return quicvarint.Append(buf, m.RequestID), nil
	case VersionIETF15, VersionIETF16, VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parsePublishNamespaceOk(r *Reader) (*PublishNamespaceOk, error) {
	var m PublishNamespaceOk
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE_OK", Field: "request_id", Err: err}
	}
	return &m, nil
}

// PublishNamespaceError rejects a PublishNamespace. Draft 14 only.
type PublishNamespaceError struct {
	RequestID uint64
	ErrorCode uint64
	Reason    string
}

func (m *PublishNamespaceError) Append(buf []byte, v Version) ([]byte, error) {
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

func parsePublishNamespaceError(r *Reader) (*PublishNamespaceError, error) {
	var m PublishNamespaceError
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE_ERROR", Field: "request_id", Err: err}
	}
	if m.ErrorCode, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE_ERROR", Field: "error_code", Err: err}
	}
	if m.Reason, err = r.String(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE_ERROR", Field: "reason", Err: err}
	}
	return &m, nil
}

// PublishNamespaceDone withdraws a previously announced namespace. Draft
// 14 identifies the namespace by tuple; later drafts reference the
// original announce request instead.
type PublishNamespaceDone struct {
	RequestID uint64   // drafts 15+
	Namespace []string // draft 14
}

func (m *PublishNamespaceDone) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		return AppendTuple(buf, m.Namespace), nil
	case VersionIETF15, VersionIETF16:
		return quicvarint.Append(buf, m.RequestID), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parsePublishNamespaceDone(r *Reader, v Version) (*PublishNamespaceDone, error) {
	var m PublishNamespaceDone
	var err error
	switch v {
	case VersionIETF14:
		if m.Namespace, err = r.Tuple(); err != nil {
			return nil, &ParseError{Message: "PUBLISH_NAMESPACE_DONE", Field: "namespace", Err: err}
		}
		return &m, nil
	case VersionIETF15, VersionIETF16:
		if m.RequestID, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "PUBLISH_NAMESPACE_DONE", Field: "request_id", Err: err}
		}
		return &m, nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

// PublishNamespaceCancel asks the announcing peer to stop publishing a
// namespace, carrying the reason. Mirrors PublishNamespaceDone's
// per-draft addressing.
type PublishNamespaceCancel struct {
	RequestID uint64   // drafts 15+
	Namespace []string // draft 14
	ErrorCode uint64
	Reason    string
}

func (m *PublishNamespaceCancel) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		buf = AppendTuple(buf, m.Namespace)
	case VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	default:
		return nil, &ErrUnknownVersion{Value: uint64(v)}
	}
	buf = quicvarint.Append(buf, m.ErrorCode)
	return AppendString(buf, m.Reason), nil
}

func parsePublishNamespaceCancel(r *Reader, v Version) (*PublishNamespaceCancel, error) {
	var m PublishNamespaceCancel
	var err error
	switch v {
	case VersionIETF14:
		if m.Namespace, err = r.Tuple(); err != nil {
			return nil, &ParseError{Message: "PUBLISH_NAMESPACE_CANCEL", Field: "namespace", Err: err}
		}
	case VersionIETF15, VersionIETF16:
		if m.RequestID, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "PUBLISH_NAMESPACE_CANCEL", Field: "request_id", Err: err}
		}
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	default:
		return nil, &ErrUnknownVersion{Value: uint64(v)}
	}
	if m.ErrorCode, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE_CANCEL", Field: "error_code", Err: err}
	}
	if m.Reason, err = r.String(); err != nil {
		return nil, &ParseError{Message: "PUBLISH_NAMESPACE_CANCEL", Field: "reason", Err: err}
	}
	return &m, nil
}

// SubscribeNamespace requests announcements for all broadcasts under a
// prefix (IETF dialect). The lite dialect uses AnnouncePlease.
type SubscribeNamespace struct {
	RequestID uint64
	Prefix    []string
	Params    Parameters
}

func (m *SubscribeNamespace) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		buf = quicvarint.Append(buf, m.RequestID)
		buf = AppendTuple(buf, m.Prefix)
		return m.Params.Append(buf), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSubscribeNamespace(r *Reader) (*SubscribeNamespace, error) {
	var m SubscribeNamespace
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_NAMESPACE", Field: "request_id", Err: err}
	}
	if m.Prefix, err = r.Tuple(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_NAMESPACE", Field: "prefix", Err: err}
	}
	if m.Params, err = ParseParameters(r); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_NAMESPACE", Field: "params", Err: err}
	}
	return &m, nil
}

// SubscribeNamespaceOk acknowledges a SubscribeNamespace. Draft 14 only.
type SubscribeNamespaceOk struct {
	RequestID uint64
}

func (m *SubscribeNamespaceOk) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		return quicvarint.Append(buf, m.RequestID), nil
	case VersionIETF15, VersionIETF16, VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseSubscribeNamespaceOk(r *Reader) (*SubscribeNamespaceOk, error) {
	var m SubscribeNamespaceOk
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_NAMESPACE_OK", Field: "request_id", Err: err}
	}
	return &m, nil
}

// SubscribeNamespaceError rejects a SubscribeNamespace. Draft 14 only.
type SubscribeNamespaceError struct {
	RequestID uint64
	ErrorCode uint64
	Reason    string
}

func (m *SubscribeNamespaceError) Append(buf []byte, v Version) ([]byte, error) {
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

func parseSubscribeNamespaceError(r *Reader) (*SubscribeNamespaceError, error) {
	var m SubscribeNamespaceError
	var err error
	if m.RequestID, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_NAMESPACE_ERROR", Field: "request_id", Err: err}
	}
	if m.ErrorCode, err = r.Varint(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_NAMESPACE_ERROR", Field: "error_code", Err: err}
	}
	if m.Reason, err = r.String(); err != nil {
		return nil, &ParseError{Message: "SUBSCRIBE_NAMESPACE_ERROR", Field: "reason", Err: err}
	}
	return &m, nil
}

// UnsubscribeNamespace cancels a namespace subscription. Draft 14
// addresses it by prefix, later drafts by the original request.
type UnsubscribeNamespace struct {
	RequestID uint64   // drafts 15+
	Prefix    []string // draft 14
}

func (m *UnsubscribeNamespace) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionIETF14:
		return AppendTuple(buf, m.Prefix), nil
	case VersionIETF15, VersionIETF16:
		return quicvarint.Append(buf, m.RequestID), nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseUnsubscribeNamespace(r *Reader, v Version) (*UnsubscribeNamespace, error) {
	var m UnsubscribeNamespace
	var err error
	switch v {
	case VersionIETF14:
		if m.Prefix, err = r.Tuple(); err != nil {
			return nil, &ParseError{Message: "UNSUBSCRIBE_NAMESPACE", Field: "prefix", Err: err}
		}
		return &m, nil
	case VersionIETF15, VersionIETF16:
		if m.RequestID, err = r.Varint(); err != nil {
			return nil, &ParseError{Message: "UNSUBSCRIBE_NAMESPACE", Field: "request_id", Err: err}
		}
		return &m, nil
	case VersionLite01, VersionLite02, VersionLite03:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

// Announce notifies a watcher that a broadcast under its requested prefix
// became active or inactive (lite dialect).
type Announce struct {
	Path   string
	Active bool
}

func (m *Announce) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		buf = AppendString(buf, m.Path)
		return AppendBool(buf, m.Active), nil
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseAnnounce(r *Reader) (*Announce, error) {
	var m Announce
	var err error
	if m.Path, err = r.String(); err != nil {
		return nil, &ParseError{Message: "ANNOUNCE", Field: "path", Err: err}
	}
	if m.Active, err = r.Bool(); err != nil {
		return nil, &ParseError{Message: "ANNOUNCE", Field: "active", Err: err}
	}
	return &m, nil
}

// AnnouncePlease requests announcements for a path prefix (lite dialect).
type AnnouncePlease struct {
	Prefix string
}

func (m *AnnouncePlease) Append(buf []byte, v Version) ([]byte, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		return AppendString(buf, m.Prefix), nil
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return nil, ErrUnsupportedDialect
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}

func parseAnnouncePlease(r *Reader) (*AnnouncePlease, error) {
	var m AnnouncePlease
	var err error
	if m.Prefix, err = r.String(); err != nil {
		return nil, &ParseError{Message: "ANNOUNCE_PLEASE", Field: "prefix", Err: err}
	}
	return &m, nil
}

// JoinPath joins namespace segments into a lite-dialect path string.
func JoinPath(segments []string) string {
	return strings.Join(segments, "/")
}
