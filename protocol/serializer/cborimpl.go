package serializer

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/protocol"
)

// NewCBORSerializer creates a serializer using CBOR encoding. The format is
// self-describing and convenient for debugging; the binary serializer is the
// default on the wire.
func NewCBORSerializer() ISerializer {
	return &cborSerializerImpl{}
}

type cborSerializerImpl struct{}

// cborMessage mirrors protocol.Message with short field keys.
type cborMessage struct {
	Type      uint8  `cbor:"t"`
	Flags     uint8  `cbor:"f,omitempty"`
	Sender    uint64 `cbor:"s"`
	Recipient uint64 `cbor:"r,omitempty"`
	Sequence  uint64 `cbor:"q"`
	Timestamp int64  `cbor:"ts"`
	Payload   []byte `cbor:"p,omitempty"`
	Checksum  uint32 `cbor:"c"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see ISerializer)
// --------------------------------------------------------------------------

func (c *cborSerializerImpl) Name() string { return "cbor" }

func (c *cborSerializerImpl) Serialize(msg *protocol.Message) ([]byte, error) {
	if !msg.Type.Valid() {
		return nil, dberr.Serialization("invalid message type "+msg.Type.String(), nil)
	}

	b, err := cbor.Marshal(&cborMessage{
		Type:      uint8(msg.Type),
		Flags:     msg.Flags,
		Sender:    uint64(msg.Sender),
		Recipient: uint64(msg.Recipient),
		Sequence:  msg.Sequence,
		Timestamp: msg.Timestamp,
		Payload:   msg.Payload,
		Checksum:  msg.Checksum,
	})
	if err != nil {
		return nil, dberr.Serialization("cbor marshal failed", err)
	}
	return b, nil
}

func (c *cborSerializerImpl) Deserialize(data []byte, msg *protocol.Message) error {
	var cm cborMessage
	if err := cbor.Unmarshal(data, &cm); err != nil {
		return dberr.Serialization("cbor unmarshal failed", err)
	}

	msg.Type = protocol.MessageType(cm.Type)
	if !msg.Type.Valid() {
		return dberr.Serialization("invalid message type "+msg.Type.String(), nil)
	}
	msg.Flags = cm.Flags
	msg.Sender = protocol.NodeID(cm.Sender)
	msg.Recipient = protocol.NodeID(cm.Recipient)
	msg.Sequence = cm.Sequence
	msg.Timestamp = cm.Timestamp
	msg.Payload = cm.Payload
	msg.Checksum = cm.Checksum

	return nil
}
