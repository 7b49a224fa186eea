package wire

import "fmt"

// Version identifies one negotiated protocol draft. Exactly six values are
// recognized, split across two mutually incompatible wire families. A
// session's version is fixed at setup and selects the message-ID table and
// field layouts for the rest of the session.
//
// Code that branches on a Version must enumerate all six constants and
// treat anything else as an error; there is deliberately no catch-all
// behavior, so a new draft shows up as a missed case at every dispatch
// site that needs updating.
type Version uint64

const (
	// Lite family: the original pre-IETF dialect.
	VersionLite01 Version = 0xff0bad01
	VersionLite02 Version = 0xff0bad02
	VersionLite03 Version = 0xff0bad03

	// IETF family: draft-ietf-moq-transport. 0xff000000 + draft number.
	VersionIETF14 Version = 0xff00000e
	VersionIETF15 Version = 0xff00000f
	VersionIETF16 Version = 0xff000010
)

// Versions lists every recognized version, newest first within each family.
var Versions = []Version{
	VersionIETF16, VersionIETF15, VersionIETF14,
	VersionLite03, VersionLite02, VersionLite01,
}

// ErrUnknownVersion reports a version value outside the six recognized drafts.
type ErrUnknownVersion struct {
	Value uint64
}

func (e *ErrUnknownVersion) Error() string {
	return fmt.Sprintf("wire: unknown protocol version %#x", e.Value)
}

// ParseVersion validates a wire-encoded version value.
func ParseVersion(v uint64) (Version, error) {
	switch Version(v) {
	case VersionLite01, VersionLite02, VersionLite03,
		VersionIETF14, VersionIETF15, VersionIETF16:
		return Version(v), nil
	}
	return 0, &ErrUnknownVersion{Value: v}
}

// Lite reports whether v belongs to the lite family.
func (v Version) Lite() bool {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		return true
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return false
	}
	return false
}

// IETF reports whether v belongs to the IETF family.
func (v Version) IETF() bool {
	switch v {
	case VersionIETF14, VersionIETF15, VersionIETF16:
		return true
	case VersionLite01, VersionLite02, VersionLite03:
		return false
	}
	return false
}

// ALPN returns the TLS application protocol string used to select v's
// family during the transport handshake. The lite family shares a single
// constant; IETF drafts are distinguished per draft.
func (v Version) ALPN() string {
	switch v {
	case VersionLite01, VersionLite02, VersionLite03:
		return "moql"
	case VersionIETF14:
		return "moq-14"
	case VersionIETF15:
		return "moq-15"
	case VersionIETF16:
		return "moq-16"
	}
	return ""
}

func (v Version) String() string {
	switch v {
	case VersionLite01:
		return "lite-01"
	case VersionLite02:
		return "lite-02"
	case VersionLite03:
		return "lite-03"
	case VersionIETF14:
		return "ietf-14"
	case VersionIETF15:
		return "ietf-15"
	case VersionIETF16:
		return "ietf-16"
	}
	return fmt.Sprintf("version(%#x)", uint64(v))
}

// SelectVersion picks the preferred common version between the locally
// supported set and the versions offered by a peer. Offered values that
// are not recognized drafts are skipped, matching setup semantics where a
// peer may offer future versions we do not speak.
func SelectVersion(supported []Version, offered []uint64) (Version, bool) {
	for _, s := range supported {
		for _, o := range offered {
			if uint64(s) == o {
				return s, true
			}
		}
	}
	return 0, false
}
