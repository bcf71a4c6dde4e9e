// Package serializer converts protocol Messages to and from their byte
// representation.
//
// Two implementations are provided behind the ISerializer interface: a
// custom binary format (the default wire format, fixed-width big-endian
// header followed by the payload) and a CBOR format useful for debugging
// and for servers that prefer a self-describing encoding. The codec package
// wraps a serializer with framing, compression and checksum validation.
package serializer
