package wire

import (
	"slices"

	"github.com/quic-go/quic-go/quicvarint"
)

// Well-known parameter IDs. Even IDs carry an inline varint value; odd IDs
// carry a length-prefixed byte string.
const (
	ParamPath         uint64 = 0x01 // odd: byte string
	ParamMaxRequestID uint64 = 0x02 // even: varint
	ParamPriority     uint64 = 0x10 // even: varint
	ParamGroupOrder   uint64 = 0x12 // even: varint
	ParamForward      uint64 = 0x14 // even: varint
	ParamExpires      uint64 = 0x16 // even: varint
	ParamReason       uint64 = 0x03 // odd: byte string
)

// Parameters is the extensible key-value tail carried by IETF-dialect
// messages. Unknown IDs are preserved so a re-encode round-trips; a
// duplicate ID is a decode error.
type Parameters struct {
	ids    []uint64
	values [][]byte // nil entry: varint parameter, value in varints
	varints []uint64
}

// SetVarint sets an even-numbered (varint-valued) parameter, replacing any
// existing entry with the same id.
func (p *Parameters) SetVarint(id, value uint64) {
	if i := slices.Index(p.ids, id); i >= 0 {
		p.values[i] = nil
		p.varints[i] = value
		return
	}
	p.ids = append(p.ids, id)
	p.values = append(p.values, nil)
	p.varints = append(p.varints, value)
}

// SetBytes sets an odd-numbered (length-prefixed) parameter, replacing any
// existing entry with the same id.
func (p *Parameters) SetBytes(id uint64, value []byte) {
	if value == nil {
		value = []byte{}
	}
	if i := slices.Index(p.ids, id); i >= 0 {
		p.values[i] = value
		p.varints[i] = 0
		return
	}
	p.ids = append(p.ids, id)
	p.values = append(p.values, value)
	p.varints = append(p.varints, 0)
}

// Varint returns the varint value for id, if present.
func (p *Parameters) Varint(id uint64) (uint64, bool) {
	i := slices.Index(p.ids, id)
	if i < 0 || p.values[i] != nil {
		return 0, false
	}
	return p.varints[i], true
}

// Bytes returns the byte-string value for id, if present.
func (p *Parameters) Bytes(id uint64) ([]byte, bool) {
	i := slices.Index(p.ids, id)
	if i < 0 || p.values[i] == nil {
		return nil, false
	}
	return p.values[i], true
}

// Len returns the number of parameters.
func (p *Parameters) Len() int {
	return len(p.ids)
}

// Append encodes the parameter list: a count followed by, per entry, the
// id varint and either an inline varint (even id) or a length-prefixed
// byte string (odd id).
func (p *Parameters) Append(buf []byte) []byte {
	buf = quicvarint.Append(buf, uint64(len(p.ids)))
	for i, id := range p.ids {
		buf = quicvarint.Append(buf, id)
		if id%2 == 0 {
			buf = quicvarint.Append(buf, p.varints[i])
		} else {
			buf = AppendBytes(buf, p.values[i])
		}
	}
	return buf
}

// ParseParameters decodes a parameter list from r. Even ids read an inline
// varint, odd ids a length-prefixed byte string. A repeated id fails with
// ErrDuplicateParam.
func ParseParameters(r *Reader) (Parameters, error) {
	var p Parameters
	count, err := r.Varint()
	if err != nil {
		return p, err
	}
	for i := uint64(0); i < count; i++ {
		id, err := r.Varint()
		if err != nil {
			return p, err
		}
		if slices.Contains(p.ids, id) {
			return p, ErrDuplicateParam
		}
		if id%2 == 0 {
			v, err := r.Varint()
			if err != nil {
				return p, err
			}
			p.SetVarint(id, v)
		} else {
			b, err := r.Bytes()
			if err != nil {
				return p, err
			}
			p.SetBytes(id, slices.Clone(b))
		}
	}
	return p, nil
}
