package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/quic-go/quic-go/quicvarint"
)

func TestParametersRoundTrip(t *testing.T) {
	t.Parallel()
	var p Parameters
	p.SetVarint(ParamMaxRequestID, 100)
	p.SetBytes(ParamPath, []byte("/relay"))
	p.SetVarint(0x40, 7) // unknown even id survives a round-trip

	buf := p.Append(nil)
	got, err := ParseParameters(NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 3 {
		t.Fatalf("len = %d, want 3", got.Len())
	}
	if v, ok := got.Varint(ParamMaxRequestID); !ok || v != 100 {
		t.Fatalf("max request id = %d (ok=%v)", v, ok)
	}
	if b, ok := got.Bytes(ParamPath); !ok || !bytes.Equal(b, []byte("/relay")) {
		t.Fatalf("path = %q (ok=%v)", b, ok)
	}
	if v, ok := got.Varint(0x40); !ok || v != 7 {
		t.Fatalf("unknown param = %d (ok=%v)", v, ok)
	}
}

func TestParametersDuplicateID(t *testing.T) {
	t.Parallel()
	var buf []byte
	buf = quicvarint.Append(buf, 2) // count
	buf = quicvarint.Append(buf, ParamMaxRequestID)
	buf = quicvarint.Append(buf, 5)
	buf = quicvarint.Append(buf, ParamMaxRequestID)
	buf = quicvarint.Append(buf, 6)

	_, err := ParseParameters(NewReader(buf))
	if !errors.Is(err, ErrDuplicateParam) {
		t.Fatalf("err = %v, want ErrDuplicateParam", err)
	}
}

func TestParametersSetReplaces(t *testing.T) {
	t.Parallel()
	var p Parameters
	p.SetVarint(ParamMaxRequestID, 1)
	p.SetVarint(ParamMaxRequestID, 2)
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	if v, _ := p.Varint(ParamMaxRequestID); v != 2 {
		t.Fatalf("value = %d, want 2", v)
	}
}

func TestParametersEmpty(t *testing.T) {
	t.Parallel()
	var p Parameters
	buf := p.Append(nil)
	got, err := ParseParameters(NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 0 {
		t.Fatalf("len = %d, want 0", got.Len())
	}
}

func TestParametersOddEvenSelection(t *testing.T) {
	t.Parallel()
	var p Parameters
	p.SetBytes(ParamReason, []byte("gone"))
	buf := p.Append(nil)

	// Odd id must appear as a length-prefixed value on the wire.
	r := NewReader(buf)
	if count, _ := r.Varint(); count != 1 {
		t.Fatalf("count = %d", count)
	}
	if id, _ := r.Varint(); id != ParamReason {
		t.Fatalf("id = %#x", id)
	}
	b, err := r.Bytes()
	if err != nil || string(b) != "gone" {
		t.Fatalf("value = %q, %v", b, err)
	}
}
