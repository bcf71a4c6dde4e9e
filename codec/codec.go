package codec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/protocol"
	"github.com/quantadb/quanta-go/protocol/serializer"
)

const (
	// DefaultMaxMessageSize bounds a single encoded message (1 MiB).
	DefaultMaxMessageSize = 1 << 20

	// DefaultCompressionThreshold is the payload size in bytes above which
	// compression kicks in when enabled.
	DefaultCompressionThreshold = 1024
)

// Codec encodes and decodes single logical messages. A codec is created per
// connection; compression may be switched off once after feature negotiation
// and the codec is not mutated afterwards.
type Codec struct {
	serializer           serializer.ISerializer
	maxMessageSize       int
	compressionEnabled   bool
	compressionThreshold int
}

// New creates a codec with the default binary serializer and default limits.
func New() *Codec {
	return NewWithSerializer(serializer.NewBinarySerializer(), DefaultMaxMessageSize)
}

// NewWithSerializer creates a codec with a custom serializer and message
// size limit. Compression is off until EnableCompression is called.
func NewWithSerializer(s serializer.ISerializer, maxMessageSize int) *Codec {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return &Codec{
		serializer:     s,
		maxMessageSize: maxMessageSize,
	}
}

// EnableCompression turns on payload compression for payloads larger than
// the threshold.
func (c *Codec) EnableCompression(threshold int) {
	if threshold <= 0 {
		threshold = DefaultCompressionThreshold
	}
	c.compressionEnabled = true
	c.compressionThreshold = threshold
}

// DisableCompression turns payload compression off, used when the feature
// was not negotiated with the server.
func (c *Codec) DisableCompression() {
	c.compressionEnabled = false
}

// CompressionEnabled reports whether outgoing payloads may be compressed.
func (c *Codec) CompressionEnabled() bool { return c.compressionEnabled }

// MaxMessageSize returns the configured message size limit.
func (c *Codec) MaxMessageSize() int { return c.maxMessageSize }

// --------------------------------------------------------------------------
// Encoding / Decoding
// --------------------------------------------------------------------------

// Encode serializes the message, compressing the payload first when
// compression is enabled and the payload exceeds the threshold. The checksum
// embedded in the result always covers the payload bytes as transmitted.
// The input message is not modified.
func (c *Codec) Encode(msg *protocol.Message) ([]byte, error) {
	m := *msg

	if c.compressionEnabled && len(m.Payload) > c.compressionThreshold {
		compressed, err := compress(m.Payload)
		if err != nil {
			return nil, dberr.Serialization("payload compression failed", err)
		}
		// Keep the compressed form only when it actually saves bytes
		if len(compressed) < len(m.Payload) {
			m.Payload = compressed
			m.Flags |= protocol.FlagCompressed
		}
	}
	m.Checksum = m.ComputeChecksum()

	encoded, err := c.serializer.Serialize(&m)
	if err != nil {
		return nil, err
	}
	if len(encoded) > c.maxMessageSize {
		return nil, dberr.MessageTooLarge(len(encoded), c.maxMessageSize)
	}
	return encoded, nil
}

// Decode deserializes a message, verifies the checksum against the payload
// as received and then undoes compression. A checksum mismatch means the
// frame is corrupt and is always an error, never a recovered message.
func (c *Codec) Decode(data []byte) (*protocol.Message, error) {
	if len(data) > c.maxMessageSize {
		return nil, dberr.MessageTooLarge(len(data), c.maxMessageSize)
	}

	var msg protocol.Message
	if err := c.serializer.Deserialize(data, &msg); err != nil {
		return nil, err
	}

	if actual := msg.ComputeChecksum(); actual != msg.Checksum {
		return nil, dberr.ChecksumMismatch(msg.Checksum, actual)
	}

	if msg.Compressed() {
		payload, err := decompress(msg.Payload)
		if err != nil {
			return nil, dberr.Serialization("payload decompression failed", err)
		}
		msg.Payload = payload
		msg.Flags &^= protocol.FlagCompressed
		msg.Checksum = msg.ComputeChecksum()
	}

	return &msg, nil
}

// EncodeWithLength prefixes the encoded message with its 4-byte big-endian
// length. The size limit is enforced before anything could be transmitted.
func (c *Codec) EncodeWithLength(msg *protocol.Message) ([]byte, error) {
	encoded, err := c.Encode(msg)
	if err != nil {
		return nil, err
	}

	result := make([]byte, 4+len(encoded))
	binary.BigEndian.PutUint32(result[:4], uint32(len(encoded)))
	copy(result[4:], encoded)
	return result, nil
}

// --------------------------------------------------------------------------
// Stream I/O
// --------------------------------------------------------------------------

// WriteMessage writes one length-prefixed frame to the stream.
func (c *Codec) WriteMessage(w io.Writer, msg *protocol.Message) error {
	frame, err := c.EncodeWithLength(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return dberr.Network("failed to write message", err)
	}
	return nil
}

// ReadMessage reads exactly one frame from the stream: first the 4-byte
// length, then precisely that many bytes. A short read is an I/O failure,
// not a protocol failure.
func (c *Codec) ReadMessage(r io.Reader) (*protocol.Message, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, dberr.Network("failed to read message length", err)
	}

	length := int(binary.BigEndian.Uint32(hdr[:]))
	// Validate before allocating
	if length > c.maxMessageSize {
		return nil, dberr.MessageTooLarge(length, c.maxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, dberr.Network("failed to read message body", err)
	}

	return c.Decode(data)
}

// --------------------------------------------------------------------------
// Compression Helpers
// --------------------------------------------------------------------------

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(payload []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(payload))
	return io.ReadAll(zr)
}
