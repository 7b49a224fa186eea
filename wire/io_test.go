package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/quic-go/quic-go/quicvarint"
)

func TestVarintRoundTrip(t *testing.T) {
	t.Parallel()
	for _, v := range []uint64{0, 1, 63, 64, 16383, 16384, 1<<30 - 1, 1 << 30, 1<<62 - 1} {
		buf := quicvarint.Append(nil, v)
		r := NewReader(buf)
		got, err := r.Varint()
		if err != nil {
			t.Fatalf("varint %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("varint = %d, want %d", got, v)
		}
		if r.Remaining() != 0 {
			t.Fatalf("varint %d left %d bytes", v, r.Remaining())
		}
	}
}

func TestBoolStrict(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0, 1, 2})

	v, err := r.Bool()
	if err != nil || v {
		t.Fatalf("byte 0: got (%v, %v), want (false, nil)", v, err)
	}
	v, err = r.Bool()
	if err != nil || !v {
		t.Fatalf("byte 1: got (%v, %v), want (true, nil)", v, err)
	}
	if _, err = r.Bool(); err == nil {
		t.Fatal("byte 2: expected decode error")
	}
}

func TestBytesAndString(t *testing.T) {
	t.Parallel()
	buf := AppendBytes(nil, []byte("hello"))
	buf = AppendString(buf, "wörld")
	buf = AppendString(buf, "")

	r := NewReader(buf)
	b, err := r.Bytes()
	if err != nil || !bytes.Equal(b, []byte("hello")) {
		t.Fatalf("bytes = %q, %v", b, err)
	}
	s, err := r.String()
	if err != nil || s != "wörld" {
		t.Fatalf("string = %q, %v", s, err)
	}
	s, err = r.String()
	if err != nil || s != "" {
		t.Fatalf("empty string = %q, %v", s, err)
	}
}

func TestBytesTruncated(t *testing.T) {
	t.Parallel()
	buf := quicvarint.Append(nil, 10)
	buf = append(buf, 1, 2, 3) // 3 of 10 declared bytes
	r := NewReader(buf)
	if _, err := r.Bytes(); err != io.ErrUnexpectedEOF {
		t.Fatalf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestTupleRoundTrip(t *testing.T) {
	t.Parallel()
	parts := []string{"room", "alice", ""}
	buf := AppendTuple(nil, parts)
	r := NewReader(buf)
	got, err := r.Tuple()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != "room" || got[1] != "alice" || got[2] != "" {
		t.Fatalf("tuple = %v", got)
	}
}

func TestTupleCountOverflow(t *testing.T) {
	t.Parallel()
	// Claims 2^40 elements with nothing behind it.
	buf := quicvarint.Append(nil, 1<<40)
	r := NewReader(buf)
	if _, err := r.Tuple(); err != io.ErrUnexpectedEOF {
		t.Fatalf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestReaderEOF(t *testing.T) {
	t.Parallel()
	r := NewReader(nil)
	if _, err := r.Varint(); err != io.ErrUnexpectedEOF {
		t.Fatalf("Varint err = %v, want ErrUnexpectedEOF", err)
	}
	if _, err := r.Byte(); err != io.ErrUnexpectedEOF {
		t.Fatalf("Byte err = %v, want ErrUnexpectedEOF", err)
	}
	if _, err := r.Bytes(); err != io.ErrUnexpectedEOF {
		t.Fatalf("Bytes err = %v, want ErrUnexpectedEOF", err)
	}
}
