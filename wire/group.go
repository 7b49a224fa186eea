package wire

import (
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// Group stream header type byte. The base value is 0x10; independent low
// bits signal optional header/object fields, and 0x20 marks the publisher
// priority as inherited from the originating control message rather than
// carried inline.
const (
	groupTypeBase uint64 = 0x10

	groupFlagExtensions   uint64 = 0x01 // objects carry extension blocks
	groupFlagSubgroup     uint64 = 0x02 // explicit subgroup ID in header
	groupFlagSubgroupPrev uint64 = 0x04 // subgroup continues from previous object
	groupFlagEndMarker    uint64 = 0x08 // stream terminates with an explicit end-of-group
	groupFlagNoPriority   uint64 = 0x20 // priority inherited, no priority byte

	groupFlagMask = groupFlagExtensions | groupFlagSubgroup | groupFlagSubgroupPrev |
		groupFlagEndMarker | groupFlagNoPriority
)

// Object status codes, emitted in place of a payload when the payload
// length is zero.
const (
	StatusNormal     uint64 = 0x00 // zero-length payload, object exists
	StatusEndOfGroup uint64 = 0x03 // no object: the group is complete
)

// GroupHeader is the fixed header at the start of each unidirectional
// group stream, binding its objects to a subscription by track alias.
type GroupHeader struct {
	TrackAlias  uint64
	Sequence    uint64
	Subgroup    uint64
	HasSubgroup bool
	// SubgroupPrev marks objects as continuing the previous object's
	// subgroup. Accepted on the wire, never emitted.
	SubgroupPrev bool
	Priority     byte
	// HasPriority is false when priority is inherited from the control
	// message that created the subscription.
	HasPriority bool
	// Extensions marks that each object carries an extension block.
	Extensions bool
	// EndMarker declares that the stream ends with an explicit
	// end-of-group status rather than a bare FIN.
	EndMarker bool
}

// Append encodes the header: type byte, track alias, group sequence,
// optional subgroup ID, optional priority.
func (h *GroupHeader) Append(buf []byte) []byte {
	t := groupTypeBase
	if h.Extensions {
		t |= groupFlagExtensions
	}
	if h.HasSubgroup {
		t |= groupFlagSubgroup
	}
	if h.SubgroupPrev {
		t |= groupFlagSubgroupPrev
	}
	if h.EndMarker {
		t |= groupFlagEndMarker
	}
	if !h.HasPriority {
		t |= groupFlagNoPriority
	}
	buf = quicvarint.Append(buf, t)
	buf = quicvarint.Append(buf, h.TrackAlias)
	buf = quicvarint.Append(buf, h.Sequence)
	if h.HasSubgroup {
		buf = quicvarint.Append(buf, h.Subgroup)
	}
	if h.HasPriority {
		buf = append(buf, h.Priority)
	}
	return buf
}

// ReadGroupHeader decodes a group stream header from the start of a
// unidirectional stream.
func ReadGroupHeader(r ControlReader) (GroupHeader, error) {
	var h GroupHeader

	t, err := quicvarint.Read(r)
	if err != nil {
		return h, fmt.Errorf("read group stream type: %w", err)
	}
	if t&^groupFlagMask != groupTypeBase {
		return h, fmt.Errorf("wire: unknown group stream type %#x", t)
	}
	h.Extensions = t&groupFlagExtensions != 0
	h.HasSubgroup = t&groupFlagSubgroup != 0
	h.SubgroupPrev = t&groupFlagSubgroupPrev != 0
	h.EndMarker = t&groupFlagEndMarker != 0
	h.HasPriority = t&groupFlagNoPriority == 0

	if h.TrackAlias, err = quicvarint.Read(r); err != nil {
		return h, fmt.Errorf("read track alias: %w", err)
	}
	if h.Sequence, err = quicvarint.Read(r); err != nil {
		return h, fmt.Errorf("read group sequence: %w", err)
	}
	if h.HasSubgroup {
		if h.Subgroup, err = quicvarint.Read(r); err != nil {
			return h, fmt.Errorf("read subgroup id: %w", err)
		}
	}
	if h.HasPriority {
		if h.Priority, err = r.ReadByte(); err != nil {
			return h, fmt.Errorf("read priority: %w", err)
		}
	}
	return h, nil
}

// Object is one decoded entry of a group stream: either a payload (which
// may legitimately be empty) or the end-of-group marker.
type Object struct {
	// Delta is the object-ID delta as read from the wire. Only zero is
	// produced by this implementation; a non-zero delta is reported to
	// the caller for logging and otherwise ignored.
	Delta   uint64
	Payload []byte
	// End marks the explicit end-of-group status. Payload is nil.
	End bool
}

// AppendObject encodes one object carrying payload. The object-ID delta
// is always zero and no extension block is written; the header's
// Extensions flag must be unset on streams produced with this encoder.
func AppendObject(buf []byte, payload []byte) []byte {
	buf = quicvarint.Append(buf, 0) // object ID delta
	buf = quicvarint.Append(buf, uint64(len(payload)))
	if len(payload) == 0 {
		return quicvarint.Append(buf, StatusNormal)
	}
	return append(buf, payload...)
}

// AppendEndOfGroup encodes the explicit end-of-group marker.
func AppendEndOfGroup(buf []byte) []byte {
	buf = quicvarint.Append(buf, 0) // object ID delta
	buf = quicvarint.Append(buf, 0) // zero length: status follows
	return quicvarint.Append(buf, StatusEndOfGroup)
}

// ReadObject decodes the next object from a group stream. io.EOF is
// returned untouched when the stream finishes cleanly between objects.
//
// An end-of-group status is accepted even when the header did not set
// the end-marker flag: some deployed encoders emit the marker without
// declaring it, and rejecting them breaks interop. This is a
// compatibility allowance, not licensed by the framing rules.
func ReadObject(r ControlReader, h GroupHeader) (Object, error) {
	var o Object

	delta, err := quicvarint.Read(r)
	if err != nil {
		if err == io.EOF {
			return o, io.EOF
		}
		return o, fmt.Errorf("read object id delta: %w", err)
	}
	o.Delta = delta

	if h.Extensions {
		extLen, err := quicvarint.Read(r)
		if err != nil {
			return o, fmt.Errorf("read extension length: %w", err)
		}
		// Extensions are bounded and skipped, not interpreted.
		if _, err := io.CopyN(io.Discard, r, int64(extLen)); err != nil {
			return o, fmt.Errorf("skip extensions: %w", err)
		}
	}

	length, err := quicvarint.Read(r)
	if err != nil {
		return o, fmt.Errorf("read payload length: %w", err)
	}
	if length > 0 {
		o.Payload = make([]byte, length)
		if _, err := io.ReadFull(r, o.Payload); err != nil {
			return o, fmt.Errorf("read payload: %w", err)
		}
		return o, nil
	}

	status, err := quicvarint.Read(r)
	if err != nil {
		return o, fmt.Errorf("read object status: %w", err)
	}
	switch status {
	case StatusNormal:
		o.Payload = []byte{}
		return o, nil
	case StatusEndOfGroup:
		o.End = true
		return o, nil
	}
	return o, ErrUnknownStatus
}
