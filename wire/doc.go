// Package wire implements the versioned wire codec for the MoQ transport
// protocol: QUIC-style varint primitives, length-framed control messages,
// extensible parameter lists, the per-version message type registry, and
// the unidirectional group stream framing.
//
// The protocol exists in two incompatible families that share one codec
// surface here: the original "lite" dialect (drafts 01-03) and the IETF
// dialect (drafts 14-16). Every encode/decode path branches on [Version]
// with exhaustive switches; adding a version is a compile-visible change
// at each branch point.
//
// Session state, publisher/subscriber roles, and stream multiplexing live
// in the parent package [github.com/zsiec/moq].
package wire
