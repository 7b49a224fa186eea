// Package moq implements a pub/sub media transport engine in the style of
// Media over QUIC: broadcasts (named collections of tracks) are announced,
// subscribed to, and streamed as sequences of frames grouped into ordered
// groups, all multiplexed over one connection.
//
// The protocol exists in two incompatible wire families, the original
// "lite" dialect (drafts 01-03) and the IETF dialect (drafts 14-16), both
// served through a single Session abstraction. The negotiated
// Version fixes the message-ID table and field layouts for the life of the
// session; see the wire subpackage for the codec.
//
// A Session composes the connection, the control stream (with request-ID
// flow control), and the publisher and subscriber roles. Publish registers
// a Broadcast and announces it; Consume returns a handle to a
// peer-published broadcast whose tracks can be subscribed individually.
// Each group of a track travels on its own unidirectional stream, so one
// stalled or failed group never blocks its siblings.
//
// The quic subpackage binds the transport interfaces to
// github.com/quic-go/quic-go.
package moq
