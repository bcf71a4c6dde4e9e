package serializer

import "github.com/quantadb/quanta-go/protocol"

// ISerializer is the interface for all message serializers.
type ISerializer interface {
	// Serialize serializes a Message into a byte array
	Serialize(msg *protocol.Message) ([]byte, error)
	// Deserialize deserializes a byte array into the given Message
	Deserialize(b []byte, msg *protocol.Message) error
	// Name returns the name of the serialization format (e.g. "binary")
	Name() string
}
