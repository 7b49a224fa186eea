package wire

import (
	"bytes"
	"testing"
)

func subscribeFixture() *Subscribe {
	return &Subscribe{
		RequestID:  8,
		Broadcast:  []string{"room", "alice"},
		Track:      "video",
		Priority:   128,
		GroupOrder: GroupOrderAscending,
		Forward:    1,
		Filter:     FilterNextGroupStart,
	}
}

func TestSubscribeRoundTripAllVersions(t *testing.T) {
	t.Parallel()
	for _, v := range Versions {
		buf, err := subscribeFixture().Append(nil, v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		r := NewReader(buf)
		got, err := parseSubscribe(r, v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if r.Remaining() != 0 {
			t.Fatalf("%s: %d trailing bytes", v, r.Remaining())
		}
		if got.RequestID != 8 || got.Track != "video" || got.Priority != 128 {
			t.Fatalf("%s: got %+v", v, got)
		}
		if len(got.Broadcast) != 2 || got.Broadcast[0] != "room" || got.Broadcast[1] != "alice" {
			t.Fatalf("%s: broadcast = %v", v, got.Broadcast)
		}
		// The lite dialect does not carry group order, forward, or filters.
		if v.IETF() {
			if got.GroupOrder != GroupOrderAscending || got.Forward != 1 {
				t.Fatalf("%s: order/forward = %d/%d", v, got.GroupOrder, got.Forward)
			}
			if got.Filter != FilterNextGroupStart {
				t.Fatalf("%s: filter = %d", v, got.Filter)
			}
		}
	}
}

func TestSubscribeDialectsDiffer(t *testing.T) {
	t.Parallel()
	m := subscribeFixture()
	b14, err := m.Append(nil, VersionIETF14)
	if err != nil {
		t.Fatal(err)
	}
	b15, err := m.Append(nil, VersionIETF15)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(b14, b15) {
		t.Fatal("draft 14 and draft 15 encodings should differ structurally")
	}

	// Draft 15 relocates priority into the parameter list.
	got, err := parseSubscribe(NewReader(b15), VersionIETF15)
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := got.Params.Varint(ParamPriority); !ok || p != 128 {
		t.Fatalf("priority param = %d (ok=%v)", p, ok)
	}
}

func TestSubscribeAbsoluteRange(t *testing.T) {
	t.Parallel()
	m := subscribeFixture()
	m.Filter = FilterAbsoluteRange
	m.StartGroup, m.StartObj, m.EndGroup = 10, 5, 20

	for _, v := range []Version{VersionIETF14, VersionIETF15, VersionIETF16} {
		buf, err := m.Append(nil, v)
		if err != nil {
			t.Fatal(err)
		}
		got, err := parseSubscribe(NewReader(buf), v)
		if err != nil {
			t.Fatal(err)
		}
		if got.StartGroup != 10 || got.StartObj != 5 || got.EndGroup != 20 {
			t.Fatalf("%s: range = (%d,%d)-%d", v, got.StartGroup, got.StartObj, got.EndGroup)
		}
	}
}

func TestSubscribeOkRoundTrip(t *testing.T) {
	t.Parallel()
	m := &SubscribeOk{
		RequestID:     3,
		TrackAlias:    3,
		Expires:       30,
		Priority:      200,
		GroupOrder:    GroupOrderDescending,
		ContentExists: true,
		LargestGroup:  42,
		LargestObj:    7,
	}
	for _, v := range Versions {
		buf, err := m.Append(nil, v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		got, err := parseSubscribeOk(NewReader(buf), v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if got.RequestID != 3 {
			t.Fatalf("%s: request id = %d", v, got.RequestID)
		}
		if v.Lite() {
			if got.Priority != 200 {
				t.Fatalf("%s: priority = %d", v, got.Priority)
			}
			// Lite has no separate alias field; the request ID is the alias.
			if got.TrackAlias != 3 {
				t.Fatalf("%s: alias = %d", v, got.TrackAlias)
			}
			continue
		}
		if got.TrackAlias != 3 || got.Expires != 30 || got.GroupOrder != GroupOrderDescending {
			t.Fatalf("%s: got %+v", v, got)
		}
		if !got.ContentExists || got.LargestGroup != 42 || got.LargestObj != 7 {
			t.Fatalf("%s: largest = (%d,%d) exists=%v", v, got.LargestGroup, got.LargestObj, got.ContentExists)
		}
	}
}

func TestSubscribeBoundaryValues(t *testing.T) {
	t.Parallel()
	m := &Subscribe{
		RequestID: 1<<62 - 1,
		Broadcast: []string{"日本語", ""},
		Track:     "",
		Priority:  0,
		Filter:    FilterLatestObject,
	}
	for _, v := range []Version{VersionLite01, VersionIETF14, VersionIETF16} {
		buf, err := m.Append(nil, v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		got, err := parseSubscribe(NewReader(buf), v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if got.RequestID != 1<<62-1 || got.Track != "" || got.Priority != 0 {
			t.Fatalf("%s: got %+v", v, got)
		}
		if got.Broadcast[0] != "日本語" {
			t.Fatalf("%s: broadcast = %v", v, got.Broadcast)
		}
	}

	// Priority 255 survives every dialect.
	m = subscribeFixture()
	m.Priority = 255
	for _, v := range Versions {
		buf, _ := m.Append(nil, v)
		got, err := parseSubscribe(NewReader(buf), v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if got.Priority != 255 {
			t.Fatalf("%s: priority = %d, want 255", v, got.Priority)
		}
	}
}

func TestPublishDoneRoundTrip(t *testing.T) {
	t.Parallel()
	m := &PublishDone{RequestID: 6, Status: PublishDoneFinished, Reason: "track ended"}
	for _, v := range Versions {
		buf, err := m.Append(nil, v)
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		got, err := parsePublishDone(NewReader(buf))
		if err != nil {
			t.Fatalf("%s: %v", v, err)
		}
		if got.RequestID != 6 || got.Status != PublishDoneFinished || got.Reason != "track ended" {
			t.Fatalf("%s: got %+v", v, got)
		}
	}
}
