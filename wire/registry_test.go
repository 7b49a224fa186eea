package wire

import (
	"errors"
	"reflect"
	"testing"
)

// messageFixtures returns one populated instance of every control message
// kind, paired with the versions whose tables include it.
func messageFixtures() []struct {
	msg      ControlMessage
	versions []Version
} {
	lite := []Version{VersionLite01, VersionLite02, VersionLite03}
	ietf := []Version{VersionIETF14, VersionIETF15, VersionIETF16}
	all := Versions
	v14 := []Version{VersionIETF14}
	v15plus := []Version{VersionIETF15, VersionIETF16}

	return []struct {
		msg      ControlMessage
		versions []Version
	}{
		{&SessionClient{Versions: []uint64{uint64(VersionLite03)}}, lite},
		{&SessionServer{Version: uint64(VersionLite03)}, lite},
		{&SessionUpdate{Bitrate: 1_500_000}, lite},
		{&ClientSetup{Versions: []uint64{uint64(VersionIETF15)}}, ietf},
		{&ServerSetup{Version: uint64(VersionIETF15)}, ietf},
		{subscribeFixture(), all},
		{&SubscribeOk{RequestID: 1, TrackAlias: 1}, all},
		{&SubscribeUpdate{RequestID: 1, Priority: 9}, all},
		{&SubscribeError{RequestID: 1, ErrorCode: 404, Reason: "nope"}, append(lite, VersionIETF14)},
		{&RequestError{RequestID: 1, ErrorCode: 404, Reason: "nope"}, v15plus},
		{&RequestOk{RequestID: 1}, v15plus},
		{&Unsubscribe{RequestID: 1}, all},
		{&PublishDone{RequestID: 1, Status: PublishDoneFinished}, all},
		{&PublishNamespace{RequestID: 1, Namespace: []string{"a"}}, ietf},
		{&PublishNamespaceOk{RequestID: 1}, v14},
		{&PublishNamespaceError{RequestID: 1, ErrorCode: 1, Reason: "no"}, v14},
		{&PublishNamespaceDone{RequestID: 1, Namespace: []string{"a"}}, ietf},
		{&PublishNamespaceCancel{RequestID: 1, Namespace: []string{"a"}, ErrorCode: 2}, ietf},
		{&TrackStatusRequest{RequestID: 1, Namespace: []string{"a"}, Track: "t"}, v14},
		{&TrackStatus{RequestID: 1, Namespace: []string{"a"}, Track: "t", Status: TrackStatusInProgress}, ietf},
		{&GoAway{URI: "https://relay.example"}, all},
		{&SubscribeNamespace{RequestID: 1, Prefix: []string{"a"}}, ietf},
		{&SubscribeNamespaceOk{RequestID: 1}, v14},
		{&SubscribeNamespaceError{RequestID: 1, ErrorCode: 3, Reason: "no"}, v14},
		{&UnsubscribeNamespace{RequestID: 1, Prefix: []string{"a"}}, ietf},
		{&MaxRequestID{MaxRequestID: 64}, ietf},
		{&RequestsBlocked{MaxRequestID: 64}, ietf},
		{&Fetch{RequestID: 1, Namespace: []string{"a"}, Track: "t", EndGroup: 4}, ietf},
		{&FetchOk{RequestID: 1, LargestGroup: 4}, ietf},
		{&FetchError{RequestID: 1, ErrorCode: 5, Reason: "no"}, v14},
		{&FetchCancel{RequestID: 1}, ietf},
		{&Publish{RequestID: 1, Namespace: []string{"a"}, Track: "t", TrackAlias: 1}, ietf},
		{&PublishOk{RequestID: 1}, ietf},
		{&Announce{Path: "a/b", Active: true}, lite},
		{&AnnouncePlease{Prefix: "a"}, lite},
	}
}

func TestRegistryRoundTripEveryMessage(t *testing.T) {
	t.Parallel()
	for _, f := range messageFixtures() {
		for _, v := range f.versions {
			id, err := TypeID(v, f.msg)
			if err != nil {
				t.Fatalf("%T under %s: TypeID: %v", f.msg, v, err)
			}
			body, err := f.msg.Append(nil, v)
			if err != nil {
				t.Fatalf("%T under %s: Append: %v", f.msg, v, err)
			}
			got, err := ParseControlPayload(v, id, body)
			if err != nil {
				t.Fatalf("%T under %s: parse: %v", f.msg, v, err)
			}
			if reflect.TypeOf(got) != reflect.TypeOf(f.msg) {
				t.Fatalf("%T under %s: decoded as %T", f.msg, v, got)
			}
		}
	}
}

func TestRegistryRejectsUnsupportedVersions(t *testing.T) {
	t.Parallel()
	for _, f := range messageFixtures() {
		supported := make(map[Version]bool, len(f.versions))
		for _, v := range f.versions {
			supported[v] = true
		}
		for _, v := range Versions {
			if supported[v] {
				continue
			}
			if _, err := TypeID(v, f.msg); !errors.Is(err, ErrUnsupportedDialect) {
				t.Fatalf("%T under %s: TypeID err = %v, want ErrUnsupportedDialect", f.msg, v, err)
			}
			if _, err := f.msg.Append(nil, v); !errors.Is(err, ErrUnsupportedDialect) {
				t.Fatalf("%T under %s: Append err = %v, want ErrUnsupportedDialect", f.msg, v, err)
			}
		}
	}
}

func TestRegistryTypeIDReinterpretation(t *testing.T) {
	t.Parallel()
	// 0x05 is SUBSCRIBE_ERROR in draft 14 and REQUEST_ERROR from draft 15.
	body, err := (&SubscribeError{RequestID: 2, ErrorCode: 404, Reason: "x"}).Append(nil, VersionIETF14)
	if err != nil {
		t.Fatal(err)
	}
	m14, err := ParseControlPayload(VersionIETF14, 0x05, body)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m14.(*SubscribeError); !ok {
		t.Fatalf("draft 14 0x05 decoded as %T", m14)
	}

	body, err = (&RequestError{RequestID: 2, ErrorCode: 404, Reason: "x"}).Append(nil, VersionIETF15)
	if err != nil {
		t.Fatal(err)
	}
	m15, err := ParseControlPayload(VersionIETF15, 0x05, body)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m15.(*RequestError); !ok {
		t.Fatalf("draft 15 0x05 decoded as %T", m15)
	}

	// 0x10 is GOAWAY in the IETF family but ANNOUNCE in lite.
	body, err = (&Announce{Path: "room/alice", Active: true}).Append(nil, VersionLite02)
	if err != nil {
		t.Fatal(err)
	}
	lm, err := ParseControlPayload(VersionLite02, 0x10, body)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := lm.(*Announce); !ok {
		t.Fatalf("lite 0x10 decoded as %T", lm)
	}
}

func TestRegistryV14OnlyIDsUnknownLater(t *testing.T) {
	t.Parallel()
	// PUBLISH_NAMESPACE_ERROR (0x08) left the table in draft 15.
	for _, v := range []Version{VersionIETF15, VersionIETF16} {
		_, err := ParseControlPayload(v, idPublishNamespaceError, []byte{0x01, 0x01, 0x00})
		var ute *UnknownTypeError
		if !errors.As(err, &ute) {
			t.Fatalf("%s: err = %v, want UnknownTypeError", v, err)
		}
	}
}
