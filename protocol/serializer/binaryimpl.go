package serializer

import (
	"encoding/binary"

	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/protocol"
)

// Binary layout of a serialized message:
// - 1 byte:  message type
// - 1 byte:  flags
// - 8 bytes: sender node id (uint64, big endian)
// - 8 bytes: recipient node id (uint64, big endian)
// - 8 bytes: sequence number (uint64, big endian)
// - 8 bytes: timestamp in unix milliseconds (int64, big endian)
// - 4 bytes: payload checksum (uint32, big endian)
// - 4 bytes: payload length (uint32, big endian)
// - N bytes: payload
const binaryHeaderSize = 1 + 1 + 8 + 8 + 8 + 8 + 4 + 4

// NewBinarySerializer creates the serializer for the default wire format.
func NewBinarySerializer() ISerializer {
	return &binarySerializerImpl{}
}

type binarySerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see ISerializer)
// --------------------------------------------------------------------------

func (b *binarySerializerImpl) Name() string { return "binary" }

func (b *binarySerializerImpl) Serialize(msg *protocol.Message) ([]byte, error) {
	if !msg.Type.Valid() {
		return nil, dberr.Serialization("invalid message type "+msg.Type.String(), nil)
	}

	result := make([]byte, binaryHeaderSize+len(msg.Payload))

	result[0] = byte(msg.Type)
	result[1] = msg.Flags

	pos := 2
	binary.BigEndian.PutUint64(result[pos:], uint64(msg.Sender))
	pos += 8
	binary.BigEndian.PutUint64(result[pos:], uint64(msg.Recipient))
	pos += 8
	binary.BigEndian.PutUint64(result[pos:], msg.Sequence)
	pos += 8
	binary.BigEndian.PutUint64(result[pos:], uint64(msg.Timestamp))
	pos += 8
	binary.BigEndian.PutUint32(result[pos:], msg.Checksum)
	pos += 4
	binary.BigEndian.PutUint32(result[pos:], uint32(len(msg.Payload)))
	pos += 4

	copy(result[pos:], msg.Payload)

	return result, nil
}

func (b *binarySerializerImpl) Deserialize(data []byte, msg *protocol.Message) error {
	if len(data) < binaryHeaderSize {
		return dberr.Serialization("data too short for message header", nil)
	}

	msg.Type = protocol.MessageType(data[0])
	if !msg.Type.Valid() {
		return dberr.Serialization("invalid message type "+msg.Type.String(), nil)
	}
	msg.Flags = data[1]

	pos := 2
	msg.Sender = protocol.NodeID(binary.BigEndian.Uint64(data[pos:]))
	pos += 8
	msg.Recipient = protocol.NodeID(binary.BigEndian.Uint64(data[pos:]))
	pos += 8
	msg.Sequence = binary.BigEndian.Uint64(data[pos:])
	pos += 8
	msg.Timestamp = int64(binary.BigEndian.Uint64(data[pos:]))
	pos += 8
	msg.Checksum = binary.BigEndian.Uint32(data[pos:])
	pos += 4
	payloadLen := binary.BigEndian.Uint32(data[pos:])
	pos += 4

	if len(data)-pos != int(payloadLen) {
		return dberr.Serialization("payload length does not match frame size", nil)
	}

	if payloadLen == 0 {
		msg.Payload = nil
		return nil
	}

	// Allocate only if the caller's buffer cannot hold the payload
	if msg.Payload == nil || cap(msg.Payload) < int(payloadLen) {
		msg.Payload = make([]byte, payloadLen)
	} else {
		msg.Payload = msg.Payload[:payloadLen]
	}
	copy(msg.Payload, data[pos:])

	return nil
}
