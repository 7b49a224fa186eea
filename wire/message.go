package wire

// ControlMessage is one control-stream message. Implementations are plain
// structs with exported fields; ownership is transient (constructed,
// encoded or decoded, then discarded).
//
// Append encodes the message body for the given version. Messages that do
// not exist in a version's dialect return ErrUnsupportedDialect; the
// session layer never reaches that path because it only constructs
// messages valid for its negotiated version.
type ControlMessage interface {
	Append(buf []byte, v Version) ([]byte, error)
}

// Group order values carried by subscribe/fetch messages.
const (
	GroupOrderDefault    byte = 0x00
	GroupOrderAscending  byte = 0x01
	GroupOrderDescending byte = 0x02
)

// Subscribe filter types (IETF dialect).
const (
	FilterNextGroupStart uint64 = 0x01
	FilterLatestObject   uint64 = 0x02
	FilterAbsoluteStart  uint64 = 0x03
	FilterAbsoluteRange  uint64 = 0x04
)

// PublishDone status codes.
const (
	PublishDoneFinished  uint64 = 0x00
	PublishDoneError     uint64 = 0x01
	PublishDoneCancelled uint64 = 0x02
)
