// Package protocol implements the binary wire protocol between a remote
// HostAdapter and the process that owns the live host objects.
//
// The client side (pkg/host/remote.Client) turns every adapter call into a
// Call frame; the bridge side executes it against a local adapter and
// answers with a Result or Error frame carrying the same sequence number.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHello (0x00): Version and surface negotiation
//   - FrameCall (0x01): Client → bridge adapter call
//   - FrameResult (0x02): Bridge → client successful call result
//   - FrameError (0x03): Bridge → client failed call or fatal error
//   - FrameClose (0x04): Either side is going away
//
// # Encoding
//
//   - Varint: Compact encoding for small integers (protobuf-style)
//   - ZigZag: Signed integers encoded as unsigned varints
//   - Length-prefixed: Strings prefixed with varint length
//   - Big-endian: Fixed-width integers and IEEE 754 floats
//
// Attribute values are a type byte followed by the content:
//
//	[0x00]                      null
//	[0x01][len][bytes]          string
//	[0x02][zigzag varint]       int
//	[0x03][8 bytes]             float
//	[0x04][0x00|0x01]           bool
//
// Example update call encoding:
//
//	[Seq: varint][Method: 0x02][Handle: varint][Diff count: varint]
//	  [Name: len-prefixed][Action: byte][Old: value][New: value]...
package protocol
