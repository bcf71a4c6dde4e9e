// Package protocol defines the wire-level message model of the Quanta
// client SDK: the Message structure shared by requests and responses, the
// closed set of message types, CRC32 payload checksums, and the feature and
// transport negotiation performed once per connection.
//
// Serialization of messages lives in the serializer sub-package; framing,
// compression and stream I/O live in the codec package. This package has no
// knowledge of sockets, pools or retries.
package protocol
