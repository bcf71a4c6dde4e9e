package protocol

import (
	"hash/crc32"
	"time"
)

// NodeID identifies one addressable server in the cluster. The client uses
// id 0 for itself in the sender field.
type NodeID uint64

// ClientNodeID is the sender id the client stamps on outgoing messages.
const ClientNodeID NodeID = 0

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message flag bits.
const (
	// FlagCompressed marks a payload that was LZ4-compressed before the
	// checksum was computed.
	FlagCompressed uint8 = 1 << 0
)

// Message is a single logical message exchanged with a cluster node. The
// same structure is used for requests and responses; which fields matter
// depends on the message type.
type Message struct {
	// Type of message
	Type MessageType

	// Flag bits (compression)
	Flags uint8

	// Sender and recipient node ids
	Sender    NodeID
	Recipient NodeID

	// Sequence number, monotonic per connection, pairs a response with
	// its request
	Sequence uint64

	// Timestamp in unix milliseconds at creation time
	Timestamp int64

	// Application payload
	Payload []byte

	// CRC32 (IEEE) over Payload as transmitted
	Checksum uint32
}

// NewMessage creates a message with the current timestamp and a checksum
// computed over the given payload.
func NewMessage(msgType MessageType, sender, recipient NodeID, sequence uint64, payload []byte) *Message {
	m := &Message{
		Type:      msgType,
		Sender:    sender,
		Recipient: recipient,
		Sequence:  sequence,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
	m.Checksum = m.ComputeChecksum()
	return m
}

// ComputeChecksum returns the CRC32 (IEEE) of the payload.
func (m *Message) ComputeChecksum() uint32 {
	return crc32.ChecksumIEEE(m.Payload)
}

// VerifyChecksum reports whether the embedded checksum matches the payload.
func (m *Message) VerifyChecksum() bool {
	return m.Checksum == m.ComputeChecksum()
}

// Compressed reports whether the compression flag bit is set.
func (m *Message) Compressed() bool {
	return m.Flags&FlagCompressed != 0
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of a protocol message. The tag set is closed;
// application-level operations (queries, auth, admin) ride inside Data
// message payloads.
type MessageType uint8

const (
	MsgTUnknown MessageType = iota

	MsgTPing      // connection health probe
	MsgTPong      // response to a ping
	MsgTData      // query/response payload
	MsgTAck       // acknowledgment
	MsgTError     // error response, payload carries the error body
	MsgTHeartbeat // connection keep-alive
	MsgTClusterJoin
	MsgTClusterLeave
	MsgTReplication
	MsgTTransaction // transaction control (begin/commit/rollback)
)

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTPing:
		return "ping"
	case MsgTPong:
		return "pong"
	case MsgTData:
		return "data"
	case MsgTAck:
		return "ack"
	case MsgTError:
		return "error"
	case MsgTHeartbeat:
		return "heartbeat"
	case MsgTClusterJoin:
		return "cluster_join"
	case MsgTClusterLeave:
		return "cluster_leave"
	case MsgTReplication:
		return "replication"
	case MsgTTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// Valid reports whether t is part of the closed tag set.
func (t MessageType) Valid() bool {
	return t >= MsgTPing && t <= MsgTTransaction
}
