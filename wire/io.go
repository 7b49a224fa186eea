package wire

import (
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// Reader wraps a byte slice for sequential varint/byte decoding of a
// control message payload. All reads are bounds-checked against the
// payload; running past the end yields io.ErrUnexpectedEOF.
type Reader struct {
	data []byte
	pos  int
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unconsumed bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Varint reads one QUIC variable-length integer (up to 62 significant
// bits, 2-bit length prefix selecting 1/2/4/8-byte forms).
func (r *Reader) Varint() (uint64, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	val, n, err := quicvarint.Parse(r.data[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += n
	return val, nil
}

// Byte reads a single raw byte.
func (r *Reader) Byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// Bool reads a single byte constrained to {0, 1}. Any other value is a
// decode error rather than being coerced.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errInvalidBool
}

// Bytes reads a varint length prefix followed by that many raw bytes.
// The returned slice aliases the underlying payload.
func (r *Reader) Bytes() ([]byte, error) {
	length, err := r.Varint()
	if err != nil {
		return nil, err
	}
	if uint64(r.Remaining()) < length {
		return nil, io.ErrUnexpectedEOF
	}
	end := r.pos + int(length)
	val := r.data[r.pos:end]
	r.pos = end
	return val, nil
}

// String reads a varint-length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

// AppendBool appends a boolean as a single {0, 1} byte.
func AppendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

// AppendBytes appends a varint-length-prefixed byte string.
func AppendBytes(buf []byte, data []byte) []byte {
	buf = quicvarint.Append(buf, uint64(len(data)))
	return append(buf, data...)
}

// AppendString appends a varint-length-prefixed UTF-8 string.
func AppendString(buf []byte, s string) []byte {
	buf = quicvarint.Append(buf, uint64(len(s)))
	return append(buf, s...)
}

// AppendTuple appends a count-prefixed sequence of length-prefixed
// segments, the IETF encoding for hierarchical namespaces.
func AppendTuple(buf []byte, parts []string) []byte {
	buf = quicvarint.Append(buf, uint64(len(parts)))
	for _, p := range parts {
		buf = AppendString(buf, p)
	}
	return buf
}

// Tuple reads a count-prefixed sequence of length-prefixed segments.
func (r *Reader) Tuple() ([]string, error) {
	count, err := r.Varint()
	if err != nil {
		return nil, err
	}
	// A tuple element costs at least one length byte on the wire, so the
	// count can never exceed the remaining payload.
	if count > uint64(r.Remaining()) {
		return nil, io.ErrUnexpectedEOF
	}
	parts := make([]string, count)
	for i := range parts {
		parts[i], err = r.String()
		if err != nil {
			return nil, err
		}
	}
	return parts, nil
}
