package wire

// Message type IDs. The numeric values are stable within a family but a
// given ID can mean different kinds in different versions: 0x05 is
// SUBSCRIBE_ERROR in IETF draft 14 and the generic REQUEST_ERROR from
// draft 15, and the lite family reuses the low ID space for its own
// messages entirely. Only the registry functions below resolve IDs;
// message types never carry their own.
const (
	// IETF family.
	idSubscribeUpdate         uint64 = 0x02
	idSubscribe               uint64 = 0x03
	idSubscribeOk             uint64 = 0x04
	idSubscribeError          uint64 = 0x05 // RequestError from draft 15
	idPublishNamespace        uint64 = 0x06
	idPublishNamespaceOk      uint64 = 0x07 // RequestOk from draft 15
	idPublishNamespaceError   uint64 = 0x08
	idPublishNamespaceDone    uint64 = 0x09
	idUnsubscribe             uint64 = 0x0a
	idPublishDone             uint64 = 0x0b
	idPublishNamespaceCancel  uint64 = 0x0c
	idTrackStatusRequest      uint64 = 0x0d
	idTrackStatus             uint64 = 0x0e
	idGoAway                  uint64 = 0x10
	idSubscribeNamespace      uint64 = 0x11
	idSubscribeNamespaceOk    uint64 = 0x12
	idSubscribeNamespaceError uint64 = 0x13
	idUnsubscribeNamespace    uint64 = 0x14
	idMaxRequestID            uint64 = 0x15
	idFetch                   uint64 = 0x16
	idFetchCancel             uint64 = 0x17
	idFetchOk                 uint64 = 0x18
	idFetchError              uint64 = 0x19
	idRequestsBlocked         uint64 = 0x1a
	idPublish                 uint64 = 0x1d
	idPublishOk               uint64 = 0x1e
	idClientSetup             uint64 = 0x20
	idServerSetup             uint64 = 0x21

	// Lite family. Shares 0x02-0x04 layouts-by-coincidence only; the
	// registry keeps the tables fully separate.
	idLiteSessionClient   uint64 = 0x00
	idLiteSessionServer   uint64 = 0x01
	idLiteSessionUpdate   uint64 = 0x02
	idLiteSubscribe       uint64 = 0x03
	idLiteSubscribeOk     uint64 = 0x04
	idLiteSubscribeUpdate uint64 = 0x08
	idLiteSubscribeError  uint64 = 0x09
	idLitePublishDone     uint64 = 0x0a
	idLiteUnsubscribe     uint64 = 0x0b
	idLiteAnnounce        uint64 = 0x10
	idLiteAnnouncePlease  uint64 = 0x11
	idLiteGoAway          uint64 = 0x12
)

// TypeID returns the on-wire message type ID for m under version v, or
// ErrUnsupportedDialect if the message does not exist in v's table.
func TypeID(v Version, m ControlMessage) (uint64, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		return liteTypeID(m)
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return ietfTypeID(v, m)
	}
	return 0, &ErrUnknownVersion{Value: uint64(v)}
}

func liteTypeID(m ControlMessage) (uint64, error) {
	switch m.(type) {
	case *SessionClient:
		return idLiteSessionClient, nil
	case *SessionServer:
		return idLiteSessionServer, nil
	case *SessionUpdate:
		return idLiteSessionUpdate, nil
	case *Subscribe:
		return idLiteSubscribe, nil
	case *SubscribeOk:
		return idLiteSubscribeOk, nil
	case *SubscribeUpdate:
		return idLiteSubscribeUpdate, nil
	case *SubscribeError:
		return idLiteSubscribeError, nil
	case *PublishDone:
		return idLitePublishDone, nil
	case *Unsubscribe:
		return idLiteUnsubscribe, nil
	case *Announce:
		return idLiteAnnounce, nil
	case *AnnouncePlease:
		return idLiteAnnouncePlease, nil
	case *GoAway:
		return idLiteGoAway, nil
	}
	return 0, ErrUnsupportedDialect
}

func ietfTypeID(v Version, m ControlMessage) (uint64, error) {
	switch m := m.(type) {
	case *ClientSetup:
		return idClientSetup, nil
	case *ServerSetup:
		return idServerSetup, nil
	case *SubscribeUpdate:
		return idSubscribeUpdate, nil
	case *Subscribe:
		return idSubscribe, nil
	case *SubscribeOk:
		return idSubscribeOk, nil
	case *SubscribeError:
		if v != VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idSubscribeError, nil
	case *RequestError:
		if v == VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idSubscribeError, nil
	case *PublishNamespace:
		return idPublishNamespace, nil
	case *PublishNamespaceOk:
		if v != VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idPublishNamespaceOk, nil
	case *RequestOk:
		if v == VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idPublishNamespaceOk, nil
	case *PublishNamespaceError:
		if v != VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idPublishNamespaceError, nil
	case *PublishNamespaceDone:
		return idPublishNamespaceDone, nil
	case *Unsubscribe:
		return idUnsubscribe, nil
	case *PublishDone:
		return idPublishDone, nil
	case *PublishNamespaceCancel:
		return idPublishNamespaceCancel, nil
	case *TrackStatusRequest:
		if v != VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idTrackStatusRequest, nil
	case *TrackStatus:
		return idTrackStatus, nil
	case *GoAway:
		return idGoAway, nil
	case *SubscribeNamespace:
		return idSubscribeNamespace, nil
	case *SubscribeNamespaceOk:
		if v != VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idSubscribeNamespaceOk, nil
	case *SubscribeNamespaceError:
		if v != VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idSubscribeNamespaceError, nil
	case *UnsubscribeNamespace:
		return idUnsubscribeNamespace, nil
	case *MaxRequestID:
		return idMaxRequestID, nil
	case *Fetch:
		return idFetch, nil
	case *FetchCancel:
		return idFetchCancel, nil
	case *FetchOk:
		return idFetchOk, nil
	case *FetchError:
		if v != VersionIETF14 {
			return 0, ErrUnsupportedDialect
		}
		return idFetchError, nil
	case *RequestsBlocked:
		return idRequestsBlocked, nil
	case *Publish:
		return idPublish, nil
	case *PublishOk:
		return idPublishOk, nil
	default:
		_ = m
		return 0, ErrUnsupportedDialect
	}
}

// ParseControlPayload decodes one control message body according to the
// active version's type table. The payload must be exactly one framed
// body; trailing bytes after the message's fields are a decode error so a
// partially implemented parser cannot silently desync the stream.
func ParseControlPayload(v Version, typeID uint64, payload []byte) (ControlMessage, error) {
	r := NewReader(payload)
	m, err := parseControlPayload(v, typeID, r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, ErrLengthMismatch
	}
	return m, nil
}

func parseControlPayload(v Version, typeID uint64, r *Reader) (ControlMessage, error) {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		switch typeID {
		case idLiteSessionClient:
			return parseSessionClient(r)
		case idLiteSessionServer:
			return parseSessionServer(r)
		case idLiteSessionUpdate:
			return parseSessionUpdate(r)
		case idLiteSubscribe:
			return parseSubscribe(r, v)
		case idLiteSubscribeOk:
			return parseSubscribeOk(r, v)
		case idLiteSubscribeUpdate:
			return parseSubscribeUpdate(r, v)
		case idLiteSubscribeError:
			return parseSubscribeError(r)
		case idLitePublishDone:
			return parsePublishDone(r)
		case idLiteUnsubscribe:
			return parseUnsubscribe(r)
		case idLiteAnnounce:
			return parseAnnounce(r)
		case idLiteAnnouncePlease:
			return parseAnnouncePlease(r)
		case idLiteGoAway:
			return parseGoAway(r)
		}
		return nil, &UnknownTypeError{Version: v, TypeID: typeID}

	case VersionIETF14, VersionIETF15, VersionIETF16:
		switch typeID {
		case idClientSetup:
			return parseClientSetup(r)
		case idServerSetup:
			return parseServerSetup(r)
		case idSubscribeUpdate:
			return parseSubscribeUpdate(r, v)
		case idSubscribe:
			return parseSubscribe(r, v)
		case idSubscribeOk:
			return parseSubscribeOk(r, v)
		case idSubscribeError:
			if v == VersionIETF14 {
				return parseSubscribeError(r)
			}
			return parseRequestError(r)
		case idPublishNamespace:
			return parsePublishNamespace(r)
		case idPublishNamespaceOk:
			if v == VersionIETF14 {
				return parsePublishNamespaceOk(r)
			}
			return parseRequestOk(r)
		case idPublishNamespaceError:
			if v != VersionIETF14 {
				return nil, &UnknownTypeError{Version: v, TypeID: typeID}
			}
			return parsePublishNamespaceError(r)
		case idPublishNamespaceDone:
			return parsePublishNamespaceDone(r, v)
		case idUnsubscribe:
			return parseUnsubscribe(r)
		case idPublishDone:
			return parsePublishDone(r)
		case idPublishNamespaceCancel:
			return parsePublishNamespaceCancel(r, v)
		case idTrackStatusRequest:
			if v != VersionIETF14 {
				return nil, &UnknownTypeError{Version: v, TypeID: typeID}
			}
			return parseTrackStatusRequest(r)
		case idTrackStatus:
			return parseTrackStatus(r, v)
		case idGoAway:
			return parseGoAway(r)
		case idSubscribeNamespace:
			return parseSubscribeNamespace(r)
		case idSubscribeNamespaceOk:
			if v != VersionIETF14 {
				return nil, &UnknownTypeError{Version: v, TypeID: typeID}
			}
			return parseSubscribeNamespaceOk(r)
		case idSubscribeNamespaceError:
			if v != VersionIETF14 {
				return nil, &UnknownTypeError{Version: v, TypeID: typeID}
			}
			return parseSubscribeNamespaceError(r)
		case idUnsubscribeNamespace:
			return parseUnsubscribeNamespace(r, v)
		case idMaxRequestID:
			return parseMaxRequestID(r)
		case idFetch:
			return parseFetch(r)
		case idFetchCancel:
			return parseFetchCancel(r)
		case idFetchOk:
			return parseFetchOk(r)
		case idFetchError:
			if v != VersionIETF14 {
				return nil, &UnknownTypeError{Version: v, TypeID: typeID}
			}
			return parseFetchError(r)
		case idRequestsBlocked:
			return parseRequestsBlocked(r)
		case idPublish:
			return parsePublish(r)
		case idPublishOk:
			return parsePublishOk(r)
		}
		return nil, &UnknownTypeError{Version: v, TypeID: typeID}
	}
	return nil, &ErrUnknownVersion{Value: uint64(v)}
}
