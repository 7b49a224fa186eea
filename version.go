package moq

import "github.com/zsiec/moq/wire"

// Version identifies a negotiated protocol draft. See the wire package
// for the registry; re-exported here so callers configuring a session do
// not need to import wire directly.
type Version = wire.Version

const (
	VersionLite01 = wire.VersionLite01
	VersionLite02 = wire.VersionLite02
	VersionLite03 = wire.VersionLite03
	VersionIETF14 = wire.VersionIETF14
	VersionIETF15 = wire.VersionIETF15
	VersionIETF16 = wire.VersionIETF16
)

// DefaultVersions is the full supported set, preferred order.
var DefaultVersions = []Version{
	VersionIETF16, VersionIETF15, VersionIETF14,
	VersionLite03, VersionLite02, VersionLite01,
}
