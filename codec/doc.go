// Package codec turns protocol Messages into length-prefixed, checksummed,
// optionally LZ4-compressed byte frames and back.
//
// A frame is [4-byte big-endian length][serialized message]. The payload
// checksum is computed over the bytes as transmitted (after compression);
// decoding verifies it before any decompression and rejects the frame on
// mismatch instead of attempting recovery.
//
// The codec knows nothing about connections or retries; the conn package
// drives ReadMessage/WriteMessage over its socket.
package codec
