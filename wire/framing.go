package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/quic-go/quic-go/quicvarint"
)

// Control message wire framing: [type (varint)] [length (uint16 BE)] [body].
// The length frame bounds one message's bytes so a reader can consume
// exactly one message without understanding every field, but message
// *types* are never skippable (see UnknownTypeError).

// ControlReader wraps the stream source a control message is read from.
// A *bufio.Reader satisfies it.
type ControlReader interface {
	io.Reader
	io.ByteReader
}

// AppendControlMessage encodes a complete framed control message for
// version v: the version-resolved type ID, the 2-byte body length, and
// the body itself.
func AppendControlMessage(buf []byte, v Version, m ControlMessage) ([]byte, error) {
	typeID, err := TypeID(v, m)
	if err != nil {
		return nil, err
	}
	body, err := m.Append(nil, v)
	if err != nil {
		return nil, err
	}
	if len(body) > math.MaxUint16 {
		return nil, ErrMessageTooLarge
	}

	buf = quicvarint.Append(buf, typeID)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(body)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, body...), nil
}

// ReadControlMessage reads and decodes one framed control message from r
// under version v. Decode failures leave the stream position undefined;
// a control stream that produced one is no longer trustworthy.
func ReadControlMessage(r ControlReader, v Version) (ControlMessage, error) {
	typeID, err := quicvarint.Read(r)
	if err != nil {
		return nil, fmt.Errorf("read message type: %w", err)
	}

	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read message length: %w", err)
	}
	length := binary.BigEndian.Uint16(lenBuf[:])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("read message payload: %w", err)
		}
	}

	return ParseControlPayload(v, typeID, payload)
}
